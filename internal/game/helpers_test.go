package game

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/poker"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// newTestTable seats one connected player per stack, ids p0, p1, ...
func newTestTable(t *testing.T, sb, bb int, stacks ...int) *Table {
	t.Helper()
	table := NewTable("t1", max(len(stacks), 2), sb, bb)
	for i, stack := range stacks {
		p := &Player{ID: fmt.Sprintf("p%d", i), Stack: stack, Connected: true}
		require.NoError(t, table.Sit(p, i))
	}
	return table
}

// stackedEngine deals deck (space separated cards) on top of an otherwise
// ordered deck, every hand.
func stackedEngine(t *testing.T, deck string) *Engine {
	t.Helper()
	cards := poker.MustParseCards(deck)
	n := 0
	return NewEngine(testLogger(),
		WithClock(quartz.NewMock(t)),
		WithDeckFactory(func() (*poker.Deck, error) {
			return poker.NewStackedDeck(cards...)
		}),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("hand-%d", n)
		}),
	)
}

func shuffledEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(testLogger(), WithClock(quartz.NewMock(t)))
}

func player(table *Table, id string) *Player {
	return table.Player(id)
}

func mustAct(t *testing.T, e *Engine, table *Table, id string, a Action, amount int) *Outcome {
	t.Helper()
	out, err := e.ProcessAction(table, id, a, amount)
	require.NoError(t, err, "%s %s %d", id, a, amount)
	return out
}

func stacks(table *Table) map[string]int {
	out := make(map[string]int)
	for _, p := range table.Players() {
		out[p.ID] = p.Stack
	}
	return out
}
