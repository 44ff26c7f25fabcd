// Package settlement reports chip movements for custodial players. It only
// computes deltas against a reference stack; moving funds is up to the
// Reporter.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/pokertable/internal/game"
)

var ErrNoSession = errors.New("no settlement session")

// Entry is one player's line in a statement.
type Entry struct {
	PlayerID      string `json:"playerId"`
	Address       string `json:"address"`
	StartingStack int    `json:"startingStack"`
	EndingStack   int    `json:"endingStack"`
	HandDelta     int    `json:"handDelta"`
	SessionDelta  int    `json:"sessionDelta"`
}

// Statement covers the custodial players of one hand.
type Statement struct {
	TableID string  `json:"tableId"`
	HandID  string  `json:"handId"`
	Entries []Entry `json:"entries"`
}

// Closing is a session's final position.
type Closing struct {
	TableID      string `json:"tableId"`
	PlayerID     string `json:"playerId"`
	Address      string `json:"address"`
	Reference    int    `json:"reference"`
	FinalStack   int    `json:"finalStack"`
	SessionDelta int    `json:"sessionDelta"`
	Hands        int    `json:"hands"`
}

// Reporter receives statements and closings.
type Reporter interface {
	Report(ctx context.Context, st Statement) error
	Closed(ctx context.Context, c Closing) error
}

type sessionKey struct {
	tableID  string
	playerID string
}

type session struct {
	address   string
	reference int
	stack     int
	hands     int
}

// Tracker keeps a reference stack per custodial player per table.
type Tracker struct {
	logger   *log.Logger
	reporter Reporter

	mu       sync.Mutex
	sessions map[sessionKey]*session
}

// NewTracker creates a tracker. A nil reporter logs statements.
func NewTracker(logger *log.Logger, reporter Reporter) *Tracker {
	if reporter == nil {
		reporter = NewLogReporter(logger)
	}
	return &Tracker{
		logger:   logger.WithPrefix("settlement"),
		reporter: reporter,
		sessions: make(map[sessionKey]*session),
	}
}

// OpenSession records stack as the player's reference.
func (t *Tracker) OpenSession(_ context.Context, tableID, playerID, address string, stack int) error {
	if address == "" {
		return fmt.Errorf("%s: custodial session needs an address", playerID)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sessionKey{tableID, playerID}] = &session{address: address, reference: stack, stack: stack}
	t.logger.Debug("Session opened", "table", tableID, "player", playerID, "reference", stack)
	return nil
}

// SettleHand reports the hand's deltas for every player with a session.
func (t *Tracker) SettleHand(ctx context.Context, res *game.HandResult) error {
	st := t.statement(res)
	if len(st.Entries) == 0 {
		return nil
	}
	return t.reporter.Report(ctx, st)
}

func (t *Tracker) statement(res *game.HandResult) Statement {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Statement{TableID: res.TableID, HandID: res.HandID}
	for _, seat := range res.Seats {
		s, ok := t.sessions[sessionKey{res.TableID, seat.PlayerID}]
		if !ok {
			continue
		}
		s.stack = seat.EndingStack
		s.hands++
		st.Entries = append(st.Entries, Entry{
			PlayerID:      seat.PlayerID,
			Address:       s.address,
			StartingStack: seat.StartingStack,
			EndingStack:   seat.EndingStack,
			HandDelta:     seat.Net(),
			SessionDelta:  seat.EndingStack - s.reference,
		})
	}
	return st
}

// Close ends a session and returns its final position.
func (t *Tracker) Close(tableID, playerID string, stack int) (Closing, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := sessionKey{tableID, playerID}
	s, ok := t.sessions[key]
	if !ok {
		return Closing{}, fmt.Errorf("%w: %s at %s", ErrNoSession, playerID, tableID)
	}
	delete(t.sessions, key)
	return Closing{
		TableID:      tableID,
		PlayerID:     playerID,
		Address:      s.address,
		Reference:    s.reference,
		FinalStack:   stack,
		SessionDelta: stack - s.reference,
		Hands:        s.hands,
	}, nil
}

// CloseSession ends the session and reports the closing.
func (t *Tracker) CloseSession(ctx context.Context, tableID, playerID string, stack int) error {
	c, err := t.Close(tableID, playerID, stack)
	if err != nil {
		return err
	}
	return t.reporter.Closed(ctx, c)
}

// Session returns a player's reference and last known stack.
func (t *Tracker) Session(tableID, playerID string) (reference, stack int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionKey{tableID, playerID}]
	if !ok {
		return 0, 0, false
	}
	return s.reference, s.stack, true
}

// LogReporter writes statements to the log.
type LogReporter struct {
	logger *log.Logger
}

func NewLogReporter(logger *log.Logger) *LogReporter {
	return &LogReporter{logger: logger.WithPrefix("settlement")}
}

func (r *LogReporter) Report(_ context.Context, st Statement) error {
	for _, e := range st.Entries {
		r.logger.Info("Hand settled", "table", st.TableID, "hand", st.HandID, "player", e.PlayerID,
			"address", e.Address, "hand_delta", e.HandDelta, "session_delta", e.SessionDelta)
	}
	return nil
}

func (r *LogReporter) Closed(_ context.Context, c Closing) error {
	r.logger.Info("Session closed", "table", c.TableID, "player", c.PlayerID, "address", c.Address,
		"final_stack", c.FinalStack, "session_delta", c.SessionDelta, "hands", c.Hands)
	return nil
}
