package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokertable/internal/handid"
	"github.com/lox/pokertable/poker"
)

// Street is community cards dealt on reaching a stage.
type Street struct {
	Stage Stage        `json:"stage"`
	Cards []poker.Card `json:"cards"`
}

// Outcome describes everything that changed as a result of starting a hand
// or applying an action, for the caller to broadcast.
type Outcome struct {
	HandID    string
	Snapshot  *Snapshot               // set when a hand started
	HoleCards map[string][]poker.Card // set when a hand started
	Actions   []ActionRecord
	Dealt     []Street

	// Turn is the player now to act, empty when nobody is. TurnSeq
	// identifies this particular turn.
	Turn     string
	TurnSeat int
	TurnSeq  int

	Result *HandResult // set when the hand finished
}

// Engine runs hands on tables. It holds no table state itself; callers
// serialize access to each table.
type Engine struct {
	logger  *log.Logger
	clock   quartz.Clock
	newDeck func() (*poker.Deck, error)
	newID   func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the clock used for timestamps.
func WithClock(clock quartz.Clock) EngineOption {
	return func(e *Engine) { e.clock = clock }
}

// WithDeckFactory replaces the shuffled deck, for tests.
func WithDeckFactory(fn func() (*poker.Deck, error)) EngineOption {
	return func(e *Engine) { e.newDeck = fn }
}

// WithIDGenerator replaces the hand id generator.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an engine.
func NewEngine(logger *log.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		logger:  logger.WithPrefix("engine"),
		clock:   quartz.NewReal(),
		newDeck: poker.NewDeck,
		newID:   handid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartHand deals a new hand. It needs at least two seated, funded and
// connected players. The hand may finish immediately if the blinds put
// everyone all-in, in which case the outcome carries the result.
func (e *Engine) StartHand(t *Table) (*Outcome, error) {
	if t.Hand != nil {
		return nil, ErrHandInProgress
	}

	var dealt []*Player
	for _, p := range t.Players() {
		if p.Eligible() {
			dealt = append(dealt, p)
		}
	}
	if len(dealt) < 2 {
		return nil, fmt.Errorf("%w: %d eligible", ErrNotEnoughPlayers, len(dealt))
	}

	deck, err := e.newDeck()
	if err != nil {
		return nil, fmt.Errorf("shuffle: %w", err)
	}

	dealer := t.nextSeat(t.DealerSeat, (*Player).Eligible)
	t.DealerSeat = dealer

	h := &Hand{
		ID:             e.newID(),
		TableID:        t.ID,
		Stage:          Preflop,
		Betting:        NewBettingRound(t.BigBlind),
		DealerSeat:     dealer,
		ActiveSeat:     -1,
		StartingStacks: make(map[string]int, len(dealt)),
		StartedAt:      e.clock.Now(),
		deck:           deck,
		players:        dealt,
	}
	for _, p := range dealt {
		p.resetForHand()
		h.StartingStacks[p.ID] = p.Stack
	}
	t.Hand = h

	logger := e.logger.With("table", t.ID, "hand", h.ID)

	// One card at a time, starting left of the dealer.
	inHand := (*Player).InHand
	for range 2 {
		seat := dealer
		for range dealt {
			seat = t.nextSeat(seat, inHand)
			cards, err := deck.Draw(1)
			if err != nil {
				return nil, e.halt(t, fmt.Errorf("%w: dealing hole cards: %w", ErrInvariantViolation, err))
			}
			t.Seats[seat].HoleCards = append(t.Seats[seat].HoleCards, cards...)
		}
	}

	if len(dealt) == 2 {
		h.SmallBlindSeat = dealer
	} else {
		h.SmallBlindSeat = t.nextSeat(dealer, inHand)
	}
	h.BigBlindSeat = t.nextSeat(h.SmallBlindSeat, inHand)

	out := &Outcome{HandID: h.ID, HoleCards: make(map[string][]poker.Card, len(dealt))}
	for _, blind := range []struct {
		seat   int
		amount int
		action Action
	}{
		{h.SmallBlindSeat, t.SmallBlind, PostSmallBlind},
		{h.BigBlindSeat, t.BigBlind, PostBigBlind},
	} {
		p := t.Seats[blind.seat]
		moved := h.Betting.PostBlind(p, blind.amount)
		out.Actions = append(out.Actions, h.record(p, blind.action, moved, e.clock))
	}
	h.Betting.CurrentBet = max(h.Betting.CurrentBet, t.BigBlind)

	for _, p := range dealt {
		out.HoleCards[p.ID] = slices.Clone(p.HoleCards)
	}
	if err := e.checkChips(h); err != nil {
		return nil, e.halt(t, err)
	}

	snap := t.Snapshot()
	out.Snapshot = &snap
	logger.Info("Hand started", "players", len(dealt), "dealer", dealer,
		"sb", h.SmallBlindSeat, "bb", h.BigBlindSeat)

	if err := e.advance(t, out, h.BigBlindSeat); err != nil {
		return nil, err
	}
	if out.Snapshot != nil && t.Hand != nil {
		out.Snapshot.ActiveSeat = h.ActiveSeat
	}
	return out, nil
}

// Options returns the legal actions for a player. It is empty unless it is
// the player's turn.
func (e *Engine) Options(t *Table, playerID string) (Options, error) {
	h := t.Hand
	if h == nil || h.Halted || h.Stage == Showdown {
		return Options{}, ErrNoActiveHand
	}
	p := t.ActivePlayer()
	if p == nil || p.ID != playerID {
		return Options{}, ErrNotYourTurn
	}
	return h.Betting.Options(p), nil
}

// ProcessAction validates and applies a player's action, then moves the
// hand on: to the next player, the next street, a board run-out or the end
// of the hand.
func (e *Engine) ProcessAction(t *Table, playerID string, action Action, amount int) (*Outcome, error) {
	h := t.Hand
	if h == nil {
		return nil, ErrNoActiveHand
	}
	if h.Halted {
		e.logger.Error("Action on halted hand", "table", t.ID, "hand", h.ID, "player", playerID, "reason", h.HaltReason)
		return nil, ErrHandHalted
	}
	if h.Stage == Showdown {
		return nil, fmt.Errorf("%w: hand is at showdown", ErrNoActiveHand)
	}

	p := h.player(playerID)
	if p == nil {
		if t.Player(playerID) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
		}
		return nil, fmt.Errorf("%w: not dealt in", ErrNotYourTurn)
	}
	if active := t.ActivePlayer(); active == nil || active.ID != playerID {
		return nil, ErrNotYourTurn
	}

	logger := e.logger.With("table", t.ID, "hand", h.ID, "player", playerID)

	moved, err := h.Betting.Apply(action, amount, p, h.players)
	if err != nil {
		logger.Debug("Action rejected", "action", action, "amount", amount, "error", err)
		return nil, err
	}

	out := &Outcome{HandID: h.ID}
	out.Actions = append(out.Actions, h.record(p, action, moved, e.clock))
	logger.Debug("Action applied", "action", action, "moved", moved, "bet", p.Bet, "stack", p.Stack)

	if err := e.checkChips(h); err != nil {
		return nil, e.halt(t, err)
	}
	if err := e.advance(t, out, p.Seat); err != nil {
		return nil, err
	}
	return out, nil
}

// advance runs the round-advance step after the blinds or an action taken
// from seat.
func (e *Engine) advance(t *Table, out *Outcome, seat int) error {
	h := t.Hand

	if live := h.Live(); len(live) == 1 {
		res, err := e.awardFoldOut(t, live[0])
		if err != nil {
			return err
		}
		out.Result = res
		return nil
	}

	for {
		if e.needsRunOut(h) {
			for h.Stage < River {
				if err := e.dealStreet(t, out); err != nil {
					return err
				}
			}
			break
		}
		if !h.Betting.IsComplete(h.players) {
			next := t.nextSeat(seat, h.needsToAct)
			if next < 0 {
				return e.halt(t, fmt.Errorf("%w: betting open with nobody to act", ErrInvariantViolation))
			}
			h.setTurn(next, out)
			return nil
		}
		if h.Stage == River {
			break
		}
		if err := e.dealStreet(t, out); err != nil {
			return err
		}
		seat = h.DealerSeat
	}

	h.Stage = Showdown
	h.ActiveSeat = -1
	res, err := e.EvaluateShowdown(t)
	if err != nil {
		return err
	}
	out.Result = res
	return nil
}

// needsRunOut reports whether betting is over for the rest of the hand:
// nobody can act, or the one player who can has already matched every
// other live player.
func (e *Engine) needsRunOut(h *Hand) bool {
	var actors []*Player
	maxOther := 0
	for _, p := range h.players {
		if p.CanAct() {
			actors = append(actors, p)
		}
	}
	switch len(actors) {
	case 0:
		return true
	case 1:
		for _, p := range h.players {
			if p != actors[0] && p.IsLive() {
				maxOther = max(maxOther, p.Bet)
			}
		}
		return actors[0].Bet >= maxOther
	}
	return false
}

// dealStreet closes the current betting round and deals the next street.
func (e *Engine) dealStreet(t *Table, out *Outcome) error {
	h := t.Hand
	h.Betting.ResetForNewStreet(h.players)
	h.ActiveSeat = -1

	n := 1
	if h.Stage == Preflop {
		n = 3
	}
	if err := h.deck.Burn(); err != nil {
		return e.halt(t, fmt.Errorf("%w: burn: %w", ErrInvariantViolation, err))
	}
	cards, err := h.deck.Draw(n)
	if err != nil {
		return e.halt(t, fmt.Errorf("%w: deal %s: %w", ErrInvariantViolation, h.Stage+1, err))
	}
	h.Stage++
	h.Community = append(h.Community, cards...)
	out.Dealt = append(out.Dealt, Street{Stage: h.Stage, Cards: cards})

	e.logger.Debug("Street dealt", "table", t.ID, "hand", h.ID, "stage", h.Stage,
		"board", poker.FormatCards(h.Community))
	return nil
}

// EvaluateShowdown ranks every live hand, pays the pots and clears the
// hand from the table.
func (e *Engine) EvaluateShowdown(t *Table) (*HandResult, error) {
	h := t.Hand
	if h == nil {
		return nil, ErrNoActiveHand
	}
	if h.Stage != Showdown {
		return nil, fmt.Errorf("%w: hand is at %s, not showdown", ErrInvalidAction, h.Stage)
	}
	if len(h.Community) != 5 {
		return nil, e.halt(t, fmt.Errorf("%w: showdown with %d community cards", ErrInvariantViolation, len(h.Community)))
	}

	scores := make(map[string]poker.Score)
	var reveals []Reveal
	for _, p := range h.Live() {
		cards := append(slices.Clone(p.HoleCards), h.Community...)
		best, err := poker.Evaluate(cards)
		if err != nil {
			return nil, e.halt(t, fmt.Errorf("%w: evaluate %s: %w", ErrInvariantViolation, p.ID, err))
		}
		scores[p.ID] = best.Score
		reveals = append(reveals, Reveal{
			PlayerID:  p.ID,
			Seat:      p.Seat,
			HoleCards: slices.Clone(p.HoleCards),
			Hand:      best,
		})
	}

	h.recomputePots()
	awards, err := Distribute(h.pots, scores, h.seatOrder())
	if err != nil {
		return nil, e.halt(t, err)
	}
	return e.finish(t, awards, reveals, true), nil
}

func (e *Engine) awardFoldOut(t *Table, winner *Player) (*HandResult, error) {
	h := t.Hand
	h.recomputePots()
	awards, err := Distribute(h.pots, map[string]poker.Score{winner.ID: 0}, h.seatOrder())
	if err != nil {
		return nil, e.halt(t, err)
	}
	return e.finish(t, awards, nil, false), nil
}

// finish pays awards, builds the result and clears the hand.
func (e *Engine) finish(t *Table, awards []Award, reveals []Reveal, showdown bool) *HandResult {
	h := t.Hand
	won := Winnings(awards)

	res := &HandResult{
		HandID:    h.ID,
		TableID:   t.ID,
		Number:    t.HandCount + 1,
		Community: slices.Clone(h.Community),
		Pot:       h.PotTotal(),
		Pots:      h.pots,
		Awards:    awards,
		Reveals:   reveals,
		Actions:   h.Actions,
		Showdown:  showdown,
		StartedAt: h.StartedAt,
		EndedAt:   e.clock.Now(),
	}
	for _, p := range h.players {
		p.Stack += won[p.ID]
		if won[p.ID] > 0 {
			res.Winners = append(res.Winners, Winner{PlayerID: p.ID, Seat: p.Seat, Amount: won[p.ID]})
		}
		res.Seats = append(res.Seats, SeatResult{
			PlayerID:      p.ID,
			Address:       p.Address,
			Seat:          p.Seat,
			StartingStack: h.StartingStacks[p.ID],
			EndingStack:   p.Stack,
		})
		p.leaveHand()
	}

	t.Hand = nil
	t.HandCount++

	e.logger.Info("Hand finished", "table", t.ID, "hand", h.ID, "pot", res.Pot,
		"winners", len(res.Winners), "showdown", showdown)
	return res
}

// checkChips verifies pot conservation after chips move.
func (e *Engine) checkChips(h *Hand) error {
	h.recomputePots()
	if total, in := h.PotTotal(), h.ChipsIn(); total != in {
		return fmt.Errorf("%w: pots hold %d but %d left stacks", ErrInvariantViolation, total, in)
	}
	start, now := 0, 0
	for _, p := range h.players {
		start += h.StartingStacks[p.ID]
		now += p.Stack + p.TotalBet
	}
	if start != now {
		return fmt.Errorf("%w: %d chips at the start of the hand, %d now", ErrInvariantViolation, start, now)
	}
	return nil
}

// halt stops a hand that hit an engine fault. The hand stays on the table,
// with nobody to act, until someone inspects it.
func (e *Engine) halt(t *Table, err error) error {
	if !errors.Is(err, ErrInvariantViolation) {
		err = fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	if h := t.Hand; h != nil {
		h.Halted = true
		h.HaltReason = err.Error()
		h.ActiveSeat = -1
		e.logger.Error("Hand halted", "table", t.ID, "hand", h.ID, "stage", h.Stage, "error", err)
	}
	return err
}

func (h *Hand) needsToAct(p *Player) bool {
	return p.CanAct() && (!p.HasActed || p.Bet < h.Betting.CurrentBet)
}

func (h *Hand) setTurn(seat int, out *Outcome) {
	h.ActiveSeat = seat
	h.TurnSeq++
	p := h.seatPlayer(seat)
	out.Turn, out.TurnSeat, out.TurnSeq = p.ID, seat, h.TurnSeq
}

func (h *Hand) seatPlayer(seat int) *Player {
	for _, p := range h.players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

func (h *Hand) record(p *Player, action Action, moved int, clock quartz.Clock) ActionRecord {
	rec := ActionRecord{
		PlayerID: p.ID,
		Seat:     p.Seat,
		Stage:    h.Stage,
		Action:   action,
		Amount:   moved,
		BetTo:    p.Bet,
		At:       clock.Now(),
	}
	h.Actions = append(h.Actions, rec)
	return rec
}
