package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type firedTurns struct {
	mu    sync.Mutex
	turns []Turn
}

func (f *firedTurns) fire(turn Turn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
}

func (f *firedTurns) all() []Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Turn(nil), f.turns...)
}

func TestTurnTimersFire(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	timers := NewTurnTimers(clock)
	fired := &firedTurns{}

	turn := Turn{TableID: "t1", HandID: "h1", PlayerID: "p0", Seq: 1}
	timers.Arm(turn, 30*time.Second, fired.fire)

	armed, ok := timers.Armed("t1")
	require.True(t, ok)
	assert.Equal(t, turn, armed)

	clock.Advance(29 * time.Second).MustWait(ctx)
	assert.Empty(t, fired.all())

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, []Turn{turn}, fired.all())

	_, ok = timers.Armed("t1")
	assert.False(t, ok, "a fired timer is no longer armed")
}

func TestTurnTimersArmReplaces(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	timers := NewTurnTimers(clock)
	fired := &firedTurns{}

	first := Turn{TableID: "t1", HandID: "h1", PlayerID: "p0", Seq: 1}
	second := Turn{TableID: "t1", HandID: "h1", PlayerID: "p1", Seq: 2}
	timers.Arm(first, 10*time.Second, fired.fire)
	clock.Advance(5 * time.Second).MustWait(ctx)
	timers.Arm(second, 10*time.Second, fired.fire)

	_, w := clock.AdvanceNext()
	w.MustWait(ctx)
	assert.Equal(t, []Turn{second}, fired.all())
}

func TestTurnTimersDisarm(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	timers := NewTurnTimers(clock)
	fired := &firedTurns{}

	timers.Arm(Turn{TableID: "t1", PlayerID: "p0"}, 10*time.Second, fired.fire)
	timers.Arm(Turn{TableID: "t2", PlayerID: "p0"}, 10*time.Second, fired.fire)
	timers.Disarm("t1")

	_, ok := timers.Armed("t1")
	assert.False(t, ok)
	_, ok = timers.Armed("t2")
	assert.True(t, ok)

	timers.Stop()
	_, ok = timers.Armed("t2")
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(time.Minute).MustWait(ctx)
	assert.Empty(t, fired.all())
}
