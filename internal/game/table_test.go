package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSit(t *testing.T) {
	table := NewTable("t", 3, 1, 2)

	a := &Player{ID: "a"}
	require.NoError(t, table.Sit(a, 1))
	assert.Equal(t, 1, a.Seat)

	assert.ErrorIs(t, table.Sit(&Player{ID: "b"}, 1), ErrSeatTaken)
	assert.ErrorIs(t, table.Sit(&Player{ID: "b"}, 3), ErrInvalidSeat)
	assert.ErrorIs(t, table.Sit(&Player{ID: "a"}, 2), ErrAlreadySeated)

	b := &Player{ID: "b"}
	require.NoError(t, table.Sit(b, -1))
	assert.Equal(t, 0, b.Seat, "first free seat")
	require.NoError(t, table.Sit(&Player{ID: "c"}, -1))
	assert.ErrorIs(t, table.Sit(&Player{ID: "d"}, -1), ErrTableFull)

	assert.Equal(t, 3, table.Occupied())
	ids := []string{}
	for _, p := range table.Players() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestRemove(t *testing.T) {
	table := newTestTable(t, 10, 20, 1000, 1000)
	e := stackedEngine(t, "")

	_, err := table.Remove("nobody")
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = e.StartHand(table)
	require.NoError(t, err)
	_, err = table.Remove("p0")
	assert.ErrorIs(t, err, ErrHandInProgress)

	mustAct(t, e, table, "p0", Fold, 0)
	p, err := table.Remove("p0")
	require.NoError(t, err)
	assert.Equal(t, "p0", p.ID)
	assert.Nil(t, table.Seats[0])
}

func TestNextSeatWraps(t *testing.T) {
	table := NewTable("t", 4, 1, 2)
	require.NoError(t, table.Sit(&Player{ID: "a", Stack: 10}, 0))
	require.NoError(t, table.Sit(&Player{ID: "b", Stack: 0}, 2))

	funded := func(p *Player) bool { return p.Stack > 0 }
	assert.Equal(t, 0, table.nextSeat(0, funded), "wraps back to itself")
	assert.Equal(t, 0, table.nextSeat(2, funded))
	assert.Equal(t, 0, table.nextSeat(-1, funded))
	assert.Equal(t, -1, table.nextSeat(0, func(*Player) bool { return false }))
}

func TestSnapshotHidesHoleCards(t *testing.T) {
	table := newTestTable(t, 10, 20, 1000, 1000)
	e := stackedEngine(t, p0Aces)

	_, err := e.StartHand(table)
	require.NoError(t, err)

	snap := table.Snapshot()
	assert.Equal(t, "hand-1", snap.HandID)
	assert.Equal(t, 1, snap.HandNumber)
	assert.Equal(t, Preflop, snap.Stage)
	assert.Equal(t, 30, snap.Pot)
	assert.Equal(t, 20, snap.CurrentBet)
	assert.Equal(t, 40, snap.MinRaise)
	assert.Equal(t, 0, snap.ActiveSeat)
	require.Len(t, snap.Seats, 2)
	assert.True(t, snap.Seats[0].HasCards)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "As")
	assert.Contains(t, string(data), `"stage":"preflop"`)

	mustAct(t, e, table, "p0", Fold, 0)
	snap = table.Snapshot()
	assert.Empty(t, snap.HandID)
	assert.Equal(t, -1, snap.ActiveSeat)
	assert.False(t, snap.Seats[0].HasCards)
}
