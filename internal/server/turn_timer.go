package server

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Turn identifies one decision: a player, in a hand, at a point in the
// action. A timer that fires for a turn that is no longer current does
// nothing.
type Turn struct {
	TableID  string
	HandID   string
	PlayerID string
	Seq      int
}

// TurnTimers keeps at most one armed timer per table.
type TurnTimers struct {
	clock  quartz.Clock
	mu     sync.Mutex
	timers map[string]*armedTimer
}

type armedTimer struct {
	turn  Turn
	timer *quartz.Timer
}

// NewTurnTimers creates a registry driven by clock.
func NewTurnTimers(clock quartz.Clock) *TurnTimers {
	return &TurnTimers{clock: clock, timers: make(map[string]*armedTimer)}
}

// Arm schedules fire for turn after d, replacing any timer for the table.
func (tt *TurnTimers) Arm(turn Turn, d time.Duration, fire func(Turn)) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if old, ok := tt.timers[turn.TableID]; ok {
		old.timer.Stop()
	}
	armed := &armedTimer{turn: turn}
	armed.timer = tt.clock.AfterFunc(d, func() {
		tt.mu.Lock()
		if tt.timers[turn.TableID] == armed {
			delete(tt.timers, turn.TableID)
		}
		tt.mu.Unlock()
		fire(turn)
	}, "turn", turn.TableID)
	tt.timers[turn.TableID] = armed
}

// Disarm cancels the table's timer. A callback that has already started
// still runs and must check the turn itself.
func (tt *TurnTimers) Disarm(tableID string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if armed, ok := tt.timers[tableID]; ok {
		armed.timer.Stop()
		delete(tt.timers, tableID)
	}
}

// Armed returns the turn the table's timer is waiting on.
func (tt *TurnTimers) Armed(tableID string) (Turn, bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	armed, ok := tt.timers[tableID]
	if !ok {
		return Turn{}, false
	}
	return armed.turn, true
}

// Stop cancels every timer.
func (tt *TurnTimers) Stop() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	for id, armed := range tt.timers {
		armed.timer.Stop()
		delete(tt.timers, id)
	}
}
