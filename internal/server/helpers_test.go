package server

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// p0Aces gives p0, the first dealer, pocket aces heads-up. Dealing starts
// left of the dealer.
const p0Aces = "7c As 2d Ah 5s Kd 9s 4h 6s 3c 8s Jd"

func testTableConfig(name string, seats int) TableConfig {
	return TableConfig{
		Name:       name,
		MaxPlayers: seats,
		SmallBlind: 5,
		BigBlind:   10,
		BuyInMin:   100,
		BuyInMax:   2000,
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	started []game.Snapshot
	holes   []map[string][]poker.Card
	actions []ActionEvent
	streets []game.Street
	turns   []TurnNotice
	results []*game.HandResult
}

func (r *recordingPublisher) HandStarted(snap game.Snapshot, holeCards map[string][]poker.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, snap)
	r.holes = append(r.holes, holeCards)
}

func (r *recordingPublisher) ActionApplied(ev ActionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, ev)
}

func (r *recordingPublisher) BoardDealt(_, _ string, street game.Street, _ []poker.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streets = append(r.streets, street)
}

func (r *recordingPublisher) TurnChanged(notice TurnNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, notice)
}

func (r *recordingPublisher) HandEnded(res *game.HandResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingPublisher) lastTurn() TurnNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.turns) == 0 {
		return TurnNotice{}
	}
	return r.turns[len(r.turns)-1]
}

func (r *recordingPublisher) handsEnded() []*game.HandResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*game.HandResult(nil), r.results...)
}

func (r *recordingPublisher) handsStarted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started)
}

type serviceFixture struct {
	service *TableService
	clock   *quartz.Mock
	pub     *recordingPublisher
}

// newServiceFixture builds a service on a mock clock with one table "t1"
// dealing the same stacked deck every hand.
func newServiceFixture(t *testing.T, seats int, deck string, opts ...ServiceOption) *serviceFixture {
	t.Helper()
	clock := quartz.NewMock(t)
	pub := &recordingPublisher{}
	cards := poker.MustParseCards(deck)
	n := 0
	base := []ServiceOption{
		WithServiceClock(clock),
		WithPublisher(pub),
		WithTurnTimeout(30 * time.Second),
		WithHandDelay(2 * time.Second),
		WithEngineOptions(
			game.WithDeckFactory(func() (*poker.Deck, error) {
				return poker.NewStackedDeck(cards...)
			}),
			game.WithIDGenerator(func() string {
				n++
				return fmt.Sprintf("hand-%d", n)
			}),
		),
	}
	s := NewTableService(testLogger(), append(base, opts...)...)
	t.Cleanup(s.Stop)
	require.NoError(t, s.CreateTable(testTableConfig("t1", seats)))
	return &serviceFixture{service: s, clock: clock, pub: pub}
}

func (f *serviceFixture) join(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.service.Join("t1", id, "", -1, 1000)
		require.NoError(t, err)
	}
}

// fireNext advances the mock clock to the next timer and waits for its
// callback to finish.
func (f *serviceFixture) fireNext(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, w := f.clock.AdvanceNext()
	w.MustWait(ctx)
}

func (f *serviceFixture) stacks(t *testing.T) map[string]int {
	t.Helper()
	snap, err := f.service.Snapshot("t1")
	require.NoError(t, err)
	out := make(map[string]int)
	for _, seat := range snap.Seats {
		out[seat.PlayerID] = seat.Stack
	}
	return out
}

func seatStatus(t *testing.T, s *TableService, tableID, playerID string) game.Status {
	t.Helper()
	snap, err := s.Snapshot(tableID)
	require.NoError(t, err)
	for _, seat := range snap.Seats {
		if seat.PlayerID == playerID {
			return seat.Status
		}
	}
	t.Fatalf("player %s not seated", playerID)
	return 0
}
