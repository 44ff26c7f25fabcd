package server

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokertable/internal/game"
)

// Recorder stores finished hands.
type Recorder interface {
	RecordHand(ctx context.Context, res *game.HandResult) error
}

// Settler reports chip movements for custodial sessions.
type Settler interface {
	OpenSession(ctx context.Context, tableID, playerID, address string, stack int) error
	SettleHand(ctx context.Context, res *game.HandResult) error
	CloseSession(ctx context.Context, tableID, playerID string, stack int) error
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// Dispatcher runs collaborator calls off the table lock, one job at a time
// in submission order. Submit never blocks.
type Dispatcher struct {
	logger   *log.Logger
	recorder Recorder
	settler  Settler

	mu      sync.Mutex
	queue   []job
	wake    chan struct{}
	closed  bool
	drained chan struct{}
}

// NewDispatcher creates a dispatcher. Either collaborator may be nil.
func NewDispatcher(logger *log.Logger, recorder Recorder, settler Settler) *Dispatcher {
	return &Dispatcher{
		logger:   logger.WithPrefix("dispatch"),
		recorder: recorder,
		settler:  settler,
		wake:     make(chan struct{}, 1),
		drained:  make(chan struct{}),
	}
}

func (d *Dispatcher) submit(j job) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("Dropping job after shutdown", "job", j.name)
		return
	}
	d.queue = append(d.queue, j)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// HandFinished queues the result for every collaborator. The recorder and
// settler run concurrently; the next job waits for both.
func (d *Dispatcher) HandFinished(res *game.HandResult) {
	d.submit(job{name: "hand " + res.HandID, run: func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		if d.recorder != nil {
			g.Go(func() error { return d.recorder.RecordHand(ctx, res) })
		}
		if d.settler != nil {
			g.Go(func() error { return d.settler.SettleHand(ctx, res) })
		}
		return g.Wait()
	}})
}

// SessionOpened queues a settlement session start.
func (d *Dispatcher) SessionOpened(tableID, playerID, address string, stack int) {
	if d.settler == nil || address == "" {
		return
	}
	d.submit(job{name: "open " + playerID, run: func(ctx context.Context) error {
		return d.settler.OpenSession(ctx, tableID, playerID, address, stack)
	}})
}

// SessionClosed queues a settlement session end.
func (d *Dispatcher) SessionClosed(tableID, playerID, address string, stack int) {
	if d.settler == nil || address == "" {
		return
	}
	d.submit(job{name: "close " + playerID, run: func(ctx context.Context) error {
		return d.settler.CloseSession(ctx, tableID, playerID, stack)
	}})
}

// Run processes jobs until ctx is cancelled, then finishes whatever was
// already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.drained)
	for {
		for {
			j, ok := d.next()
			if !ok {
				break
			}
			// Queued work completes even during shutdown.
			if err := j.run(context.WithoutCancel(ctx)); err != nil {
				d.logger.Error("Collaborator failed", "job", j.name, "error", err)
			}
		}

		select {
		case <-d.wake:
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			for {
				j, ok := d.next()
				if !ok {
					return nil
				}
				if err := j.run(context.WithoutCancel(ctx)); err != nil {
					d.logger.Error("Collaborator failed", "job", j.name, "error", err)
				}
			}
		}
	}
}

// Drained is closed once Run has returned.
func (d *Dispatcher) Drained() <-chan struct{} {
	return d.drained
}

// Pending reports the number of queued jobs.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) next() (job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return job{}, false
	}
	j := d.queue[0]
	d.queue = d.queue[1:]
	return j, true
}
