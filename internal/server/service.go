package server

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrInvalidBuyIn  = errors.New("invalid buy-in")
)

// TableInfo summarizes a table for listings.
type TableInfo struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	SmallBlind  int    `json:"smallBlind"`
	BigBlind    int    `json:"bigBlind"`
	BuyInMin    int    `json:"buyInMin"`
	BuyInMax    int    `json:"buyInMax"`
	HandRunning bool   `json:"handRunning"`
}

type tableEntry struct {
	cfg   TableConfig
	table *game.Table
	next  *quartz.Timer // pending hand start
}

// TableService owns every table and is the only path by which they change.
// Each table is guarded by its own lock: player requests are rejected with
// ErrTableBusy instead of queuing, while timers wait their turn.
type TableService struct {
	logger    *log.Logger
	clock     quartz.Clock
	engine    *game.Engine
	locks     *TableLocks
	timers    *TurnTimers
	publisher Publisher
	dispatch  *Dispatcher

	turnTimeout time.Duration
	handDelay   time.Duration

	mu     sync.RWMutex
	tables map[string]*tableEntry
}

// ServiceOption configures a TableService.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock       quartz.Clock
	publisher   Publisher
	dispatch    *Dispatcher
	engineOpts  []game.EngineOption
	turnTimeout time.Duration
	handDelay   time.Duration
}

// WithServiceClock sets the clock for timers, scheduling and timestamps.
func WithServiceClock(clock quartz.Clock) ServiceOption {
	return func(o *serviceOptions) { o.clock = clock }
}

// WithPublisher sets where table events go.
func WithPublisher(p Publisher) ServiceOption {
	return func(o *serviceOptions) { o.publisher = p }
}

// WithDispatcher sets the queue for persistence and settlement.
func WithDispatcher(d *Dispatcher) ServiceOption {
	return func(o *serviceOptions) { o.dispatch = d }
}

// WithEngineOptions passes options through to the game engine.
func WithEngineOptions(opts ...game.EngineOption) ServiceOption {
	return func(o *serviceOptions) { o.engineOpts = append(o.engineOpts, opts...) }
}

// WithTurnTimeout sets how long a player has to act.
func WithTurnTimeout(d time.Duration) ServiceOption {
	return func(o *serviceOptions) { o.turnTimeout = d }
}

// WithHandDelay sets the pause between hands.
func WithHandDelay(d time.Duration) ServiceOption {
	return func(o *serviceOptions) { o.handDelay = d }
}

// NewTableService creates an empty service.
func NewTableService(logger *log.Logger, opts ...ServiceOption) *TableService {
	o := serviceOptions{
		clock:       quartz.NewReal(),
		publisher:   nopPublisher{},
		turnTimeout: defaultTurnTimeout * time.Second,
		handDelay:   defaultHandDelayMs * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dispatch == nil {
		o.dispatch = NewDispatcher(logger, nil, nil)
	}

	engineOpts := append([]game.EngineOption{game.WithClock(o.clock)}, o.engineOpts...)
	return &TableService{
		logger:      logger.WithPrefix("tables"),
		clock:       o.clock,
		engine:      game.NewEngine(logger, engineOpts...),
		locks:       NewTableLocks(),
		timers:      NewTurnTimers(o.clock),
		publisher:   o.publisher,
		dispatch:    o.dispatch,
		turnTimeout: o.turnTimeout,
		handDelay:   o.handDelay,
		tables:      make(map[string]*tableEntry),
	}
}

// SetPublisher replaces the publisher. Call before any table is in play.
func (s *TableService) SetPublisher(p Publisher) {
	s.publisher = p
}

// CreateTable adds a table.
func (s *TableService) CreateTable(cfg TableConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[cfg.Name]; ok {
		return fmt.Errorf("%w: %s", ErrTableExists, cfg.Name)
	}
	s.tables[cfg.Name] = &tableEntry{
		cfg:   cfg,
		table: game.NewTable(cfg.Name, cfg.MaxPlayers, cfg.SmallBlind, cfg.BigBlind),
	}
	s.logger.Info("Table created", "id", cfg.Name, "seats", cfg.MaxPlayers,
		"blinds", fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind))
	return nil
}

func (s *TableService) entry(tableID string) (*tableEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	return e, nil
}

// withTable runs fn holding the table lock, failing fast if it is taken.
func (s *TableService) withTable(tableID string, fn func(e *tableEntry) error) error {
	e, err := s.entry(tableID)
	if err != nil {
		return err
	}
	unlock, err := s.locks.TryLock(tableID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(e)
}

// ListTables returns a summary of every table, sorted by id.
func (s *TableService) ListTables() []TableInfo {
	s.mu.RLock()
	entries := make([]*tableEntry, 0, len(s.tables))
	for _, e := range s.tables {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	slices.SortFunc(entries, func(a, b *tableEntry) int {
		if a.cfg.Name < b.cfg.Name {
			return -1
		}
		if a.cfg.Name > b.cfg.Name {
			return 1
		}
		return 0
	})

	infos := make([]TableInfo, 0, len(entries))
	for _, e := range entries {
		unlock := s.locks.Lock(e.cfg.Name)
		infos = append(infos, TableInfo{
			ID:          e.cfg.Name,
			PlayerCount: e.table.Occupied(),
			MaxPlayers:  e.cfg.MaxPlayers,
			SmallBlind:  e.cfg.SmallBlind,
			BigBlind:    e.cfg.BigBlind,
			BuyInMin:    e.cfg.BuyInMin,
			BuyInMax:    e.cfg.BuyInMax,
			HandRunning: e.table.Hand != nil,
		})
		unlock()
	}
	return infos
}

// Join seats a player with buyIn chips. A negative seat picks the first free
// one. Joining during a hand waits for the next deal.
func (s *TableService) Join(tableID, playerID, address string, seat, buyIn int) (game.Snapshot, error) {
	var snap game.Snapshot
	err := s.withTable(tableID, func(e *tableEntry) error {
		if buyIn < e.cfg.BuyInMin || buyIn > e.cfg.BuyInMax {
			return fmt.Errorf("%w: %d not in %d..%d", ErrInvalidBuyIn, buyIn, e.cfg.BuyInMin, e.cfg.BuyInMax)
		}
		p := &game.Player{ID: playerID, Address: address, Stack: buyIn, Connected: true}
		if e.table.Hand != nil {
			p.Status = game.StatusInNextHand
		}
		if err := e.table.Sit(p, seat); err != nil {
			return err
		}
		s.logger.Info("Player joined", "table", tableID, "player", playerID, "seat", p.Seat, "stack", buyIn)
		s.dispatch.SessionOpened(tableID, playerID, address, buyIn)
		s.maybeSchedule(e)
		snap = e.table.Snapshot()
		return nil
	})
	return snap, err
}

// Leave removes a player. A player in the running hand is folded when
// action reaches them, or straight away if it already has, and their seat
// is freed once the hand ends.
func (s *TableService) Leave(tableID, playerID string) error {
	return s.withTable(tableID, func(e *tableEntry) error {
		p := e.table.Player(playerID)
		if p == nil {
			return fmt.Errorf("%w: %s", game.ErrUnknownPlayer, playerID)
		}
		if !p.InHand() {
			s.remove(e, p)
			return nil
		}

		p.Leaving = true
		s.logger.Info("Player leaving after hand", "table", tableID, "player", playerID)
		if active := e.table.ActivePlayer(); active != nil && active.ID == playerID {
			_, err := s.apply(e, playerID, game.Fold, 0, false)
			return err
		}
		return nil
	})
}

// SetConnected records a connection change. Disconnected players keep their
// seat; their turns time out and they are not dealt in until they return.
func (s *TableService) SetConnected(tableID, playerID string, connected bool) error {
	e, err := s.entry(tableID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(tableID)
	defer unlock()

	p := e.table.Player(playerID)
	if p == nil {
		return fmt.Errorf("%w: %s", game.ErrUnknownPlayer, playerID)
	}
	p.Connected = connected
	s.logger.Info("Connection changed", "table", tableID, "player", playerID, "connected", connected)
	if connected {
		s.maybeSchedule(e)
	}
	return nil
}

// SitOut stops dealing the player in. During a hand it applies from the
// next one.
func (s *TableService) SitOut(tableID, playerID string) error {
	return s.withTable(tableID, func(e *tableEntry) error {
		p := e.table.Player(playerID)
		if p == nil {
			return fmt.Errorf("%w: %s", game.ErrUnknownPlayer, playerID)
		}
		if p.InHand() {
			p.SitOutNextHand = true
		} else {
			p.Status = game.StatusSittingOut
		}
		return nil
	})
}

// SitIn returns a sitting-out or away player to the game.
func (s *TableService) SitIn(tableID, playerID string) error {
	return s.withTable(tableID, func(e *tableEntry) error {
		p := e.table.Player(playerID)
		if p == nil {
			return fmt.Errorf("%w: %s", game.ErrUnknownPlayer, playerID)
		}
		p.AwayNextHand = false
		p.SitOutNextHand = false
		if p.InHand() {
			return nil
		}
		if p.Stack == 0 {
			return fmt.Errorf("%w: no chips", game.ErrInvalidAction)
		}
		switch p.Status {
		case game.StatusSittingOut, game.StatusAway:
			p.Status = game.StatusActive
		}
		s.maybeSchedule(e)
		return nil
	})
}

// Act submits a player's action.
func (s *TableService) Act(tableID, playerID string, action game.Action, amount int) error {
	return s.withTable(tableID, func(e *tableEntry) error {
		_, err := s.apply(e, playerID, action, amount, false)
		return err
	})
}

// Options returns the player's legal actions.
func (s *TableService) Options(tableID, playerID string) (game.Options, error) {
	var opts game.Options
	err := s.withTable(tableID, func(e *tableEntry) error {
		var err error
		opts, err = s.engine.Options(e.table, playerID)
		return err
	})
	return opts, err
}

// Snapshot returns the public table state.
func (s *TableService) Snapshot(tableID string) (game.Snapshot, error) {
	var snap game.Snapshot
	err := s.withTable(tableID, func(e *tableEntry) error {
		snap = e.table.Snapshot()
		return nil
	})
	return snap, err
}

// HoleCards returns a seated player's own cards for the running hand.
func (s *TableService) HoleCards(tableID, playerID string) ([]string, error) {
	var cards []string
	err := s.withTable(tableID, func(e *tableEntry) error {
		p := e.table.Player(playerID)
		if p == nil {
			return fmt.Errorf("%w: %s", game.ErrUnknownPlayer, playerID)
		}
		if p.InHand() {
			for _, c := range p.HoleCards {
				cards = append(cards, c.String())
			}
		}
		return nil
	})
	return cards, err
}

// StartHand deals a hand now if the table is idle.
func (s *TableService) StartHand(tableID string) error {
	return s.withTable(tableID, func(e *tableEntry) error {
		return s.startHand(e)
	})
}

// Stop cancels timers and pending deals.
func (s *TableService) Stop() {
	s.timers.Stop()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, e := range s.tables {
		unlock := s.locks.Lock(id)
		if e.next != nil {
			e.next.Stop()
			e.next = nil
		}
		unlock()
	}
}

// The methods below run with the table lock held.

func (s *TableService) apply(e *tableEntry, playerID string, action game.Action, amount int, timeout bool) (*game.Outcome, error) {
	out, err := s.engine.ProcessAction(e.table, playerID, action, amount)
	if err != nil {
		if errors.Is(err, game.ErrInvariantViolation) {
			s.timers.Disarm(e.cfg.Name)
			s.logger.Error("Hand halted, table needs inspection", "table", e.cfg.Name, "error", err)
		}
		return nil, err
	}
	s.timers.Disarm(e.cfg.Name)
	s.publish(e, out, timeout)
	return out, nil
}

func (s *TableService) startHand(e *tableEntry) error {
	if e.next != nil {
		e.next.Stop()
		e.next = nil
	}
	out, err := s.engine.StartHand(e.table)
	if err != nil {
		return err
	}
	s.publisher.HandStarted(*out.Snapshot, out.HoleCards)
	s.publish(e, out, false)
	return nil
}

// publish emits an outcome's events and then deals with whoever is next:
// a leaving player is folded at once, anyone else gets a turn timer.
func (s *TableService) publish(e *tableEntry, out *game.Outcome, timeout bool) {
	tableID := e.cfg.Name
	for {
		pot := 0
		if h := e.table.Hand; h != nil {
			pot = h.PotTotal()
		} else if out.Result != nil {
			pot = out.Result.Pot
		}
		for _, rec := range out.Actions {
			s.publisher.ActionApplied(ActionEvent{
				TableID:  tableID,
				HandID:   out.HandID,
				PlayerID: rec.PlayerID,
				Seat:     rec.Seat,
				Stage:    rec.Stage,
				Action:   rec.Action,
				Amount:   rec.Amount,
				BetTo:    rec.BetTo,
				Pot:      pot,
				Timeout:  timeout && rec.Action.PlayerAction(),
				At:       rec.At,
			})
		}
		var community []poker.Card
		if h := e.table.Hand; h != nil {
			community = h.Community
		} else if out.Result != nil {
			community = out.Result.Community
		}
		for _, street := range out.Dealt {
			s.publisher.BoardDealt(tableID, out.HandID, street, boardAt(community, street.Stage))
		}

		if out.Result != nil {
			s.handEnded(e, out.Result)
			return
		}
		if out.Turn == "" {
			return
		}

		p := e.table.Player(out.Turn)
		if p != nil && p.Leaving {
			next, err := s.engine.ProcessAction(e.table, p.ID, game.Fold, 0)
			if err != nil {
				s.logger.Error("Failed to fold leaving player", "table", tableID, "player", p.ID, "error", err)
				return
			}
			out, timeout = next, false
			continue
		}

		s.announceTurn(e, out)
		return
	}
}

func (s *TableService) announceTurn(e *tableEntry, out *game.Outcome) {
	h := e.table.Hand
	opts, _ := s.engine.Options(e.table, out.Turn)
	s.publisher.TurnChanged(TurnNotice{
		TableID:              e.cfg.Name,
		HandID:               h.ID,
		PlayerID:             out.Turn,
		Seat:                 out.TurnSeat,
		TimeRemainingSeconds: int(s.turnTimeout / time.Second),
		Options:              opts,
	})
	turn := Turn{TableID: e.cfg.Name, HandID: h.ID, PlayerID: out.Turn, Seq: out.TurnSeq}
	s.timers.Arm(turn, s.turnTimeout, s.onTurnTimeout)
}

func (s *TableService) handEnded(e *tableEntry, res *game.HandResult) {
	s.timers.Disarm(e.cfg.Name)
	s.publisher.HandEnded(res)
	s.dispatch.HandFinished(res)

	for _, p := range e.table.Players() {
		if p.Leaving || p.Status == game.StatusQuitting {
			s.remove(e, p)
		}
	}
	s.maybeSchedule(e)
}

func (s *TableService) remove(e *tableEntry, p *game.Player) {
	if _, err := e.table.Remove(p.ID); err != nil {
		s.logger.Error("Failed to remove player", "table", e.cfg.Name, "player", p.ID, "error", err)
		return
	}
	s.dispatch.SessionClosed(e.cfg.Name, p.ID, p.Address, p.Stack)
	s.logger.Info("Player left", "table", e.cfg.Name, "player", p.ID, "stack", p.Stack)
}

// maybeSchedule arranges the next deal if the table is idle and has enough
// players who could be dealt in.
func (s *TableService) maybeSchedule(e *tableEntry) {
	if e.table.Hand != nil || e.next != nil {
		return
	}
	eligible := 0
	for _, p := range e.table.Players() {
		if p.Eligible() {
			eligible++
		}
	}
	if eligible < 2 {
		return
	}
	tableID := e.cfg.Name
	e.next = s.clock.AfterFunc(s.handDelay, func() {
		s.onScheduledStart(tableID)
	}, "deal", tableID)
}

func (s *TableService) onScheduledStart(tableID string) {
	e, err := s.entry(tableID)
	if err != nil {
		return
	}
	unlock := s.locks.Lock(tableID)
	defer unlock()

	e.next = nil
	if e.table.Hand != nil {
		return
	}
	if err := s.startHand(e); err != nil {
		if errors.Is(err, game.ErrNotEnoughPlayers) {
			s.logger.Debug("Waiting for players", "table", tableID)
			return
		}
		s.logger.Error("Failed to start hand", "table", tableID, "error", err)
	}
}

// onTurnTimeout folds the player if the turn it was armed for is still the
// current one. Anything else means the player acted or the hand moved on.
func (s *TableService) onTurnTimeout(turn Turn) {
	e, err := s.entry(turn.TableID)
	if err != nil {
		return
	}
	unlock := s.locks.Lock(turn.TableID)
	defer unlock()

	h := e.table.Hand
	active := e.table.ActivePlayer()
	if h == nil || h.ID != turn.HandID || h.TurnSeq != turn.Seq || active == nil || active.ID != turn.PlayerID {
		s.logger.Debug("Ignoring stale turn timer", "table", turn.TableID, "player", turn.PlayerID)
		return
	}

	s.logger.Info("Turn timed out", "table", turn.TableID, "hand", h.ID, "player", turn.PlayerID)
	active.AwayNextHand = true
	if _, err := s.apply(e, turn.PlayerID, game.Fold, 0, true); err != nil {
		s.logger.Error("Timeout fold failed", "table", turn.TableID, "player", turn.PlayerID, "error", err)
	}
}

// boardAt is the community cards as they stood once stage was dealt.
func boardAt(community []poker.Card, stage game.Stage) []poker.Card {
	n := map[game.Stage]int{game.Flop: 3, game.Turn: 4, game.River: 5}[stage]
	return slices.Clone(community[:min(n, len(community))])
}
