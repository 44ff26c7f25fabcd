package settlement

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type captureReporter struct {
	statements []Statement
	closings   []Closing
}

func (c *captureReporter) Report(_ context.Context, st Statement) error {
	c.statements = append(c.statements, st)
	return nil
}

func (c *captureReporter) Closed(_ context.Context, cl Closing) error {
	c.closings = append(c.closings, cl)
	return nil
}

func hand(id string, seats ...game.SeatResult) *game.HandResult {
	return &game.HandResult{HandID: id, TableID: "t1", Seats: seats}
}

func TestTrackerDeltas(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rep := &captureReporter{}
	tr := NewTracker(testLogger(), rep)

	require.NoError(t, tr.OpenSession(ctx, "t1", "alice", "addr-a", 1000))

	require.NoError(t, tr.SettleHand(ctx, hand("h1",
		game.SeatResult{PlayerID: "alice", StartingStack: 1000, EndingStack: 1050},
		game.SeatResult{PlayerID: "bob", StartingStack: 500, EndingStack: 450},
	)))
	require.NoError(t, tr.SettleHand(ctx, hand("h2",
		game.SeatResult{PlayerID: "alice", StartingStack: 1050, EndingStack: 900},
	)))

	require.Len(t, rep.statements, 2)
	require.Len(t, rep.statements[0].Entries, 1, "bob has no session")
	assert.Equal(t, Entry{
		PlayerID: "alice", Address: "addr-a", StartingStack: 1000, EndingStack: 1050,
		HandDelta: 50, SessionDelta: 50,
	}, rep.statements[0].Entries[0])
	assert.Equal(t, -150, rep.statements[1].Entries[0].HandDelta)
	assert.Equal(t, -100, rep.statements[1].Entries[0].SessionDelta)

	ref, stack, ok := tr.Session("t1", "alice")
	require.True(t, ok)
	assert.Equal(t, 1000, ref)
	assert.Equal(t, 900, stack)

	require.NoError(t, tr.CloseSession(ctx, "t1", "alice", 900))
	require.Len(t, rep.closings, 1)
	assert.Equal(t, Closing{
		TableID: "t1", PlayerID: "alice", Address: "addr-a",
		Reference: 1000, FinalStack: 900, SessionDelta: -100, Hands: 2,
	}, rep.closings[0])

	_, _, ok = tr.Session("t1", "alice")
	assert.False(t, ok)
	assert.ErrorIs(t, tr.CloseSession(ctx, "t1", "alice", 900), ErrNoSession)
}

func TestTrackerSkipsHandsWithoutSessions(t *testing.T) {
	t.Parallel()
	rep := &captureReporter{}
	tr := NewTracker(testLogger(), rep)

	require.NoError(t, tr.SettleHand(context.Background(), hand("h1",
		game.SeatResult{PlayerID: "bob", StartingStack: 500, EndingStack: 450},
	)))
	assert.Empty(t, rep.statements)
}

func TestTrackerSessionsArePerTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rep := &captureReporter{}
	tr := NewTracker(testLogger(), rep)

	require.NoError(t, tr.OpenSession(ctx, "t2", "alice", "addr-a", 1000))
	require.NoError(t, tr.SettleHand(ctx, hand("h1",
		game.SeatResult{PlayerID: "alice", StartingStack: 1000, EndingStack: 1200},
	)))
	assert.Empty(t, rep.statements)
}

func TestOpenSessionNeedsAddress(t *testing.T) {
	t.Parallel()
	tr := NewTracker(testLogger(), nil)
	assert.Error(t, tr.OpenSession(context.Background(), "t1", "alice", "", 1000))
}

func TestLogReporter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})
	tr := NewTracker(logger, nil)
	ctx := context.Background()

	require.NoError(t, tr.OpenSession(ctx, "t1", "alice", "addr-a", 1000))
	require.NoError(t, tr.SettleHand(ctx, hand("h1",
		game.SeatResult{PlayerID: "alice", StartingStack: 1000, EndingStack: 1040},
	)))
	require.NoError(t, tr.CloseSession(ctx, "t1", "alice", 1040))

	out := buf.String()
	assert.Contains(t, out, "Hand settled")
	assert.Contains(t, out, "session_delta=40")
	assert.Contains(t, out, "Session closed")
}
