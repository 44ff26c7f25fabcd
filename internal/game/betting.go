package game

import (
	"fmt"
	"slices"
)

// BettingRound holds the table-level state of the current street.
// Bet and raise amounts are "to" amounts: the player's total bet for the
// street after the action.
type BettingRound struct {
	CurrentBet int // bet every live player must match
	LastRaise  int // size of the last full bet or raise
	BigBlind   int
}

// NewBettingRound creates the betting state for a new hand.
func NewBettingRound(bigBlind int) *BettingRound {
	return &BettingRound{LastRaise: bigBlind, BigBlind: bigBlind}
}

// Options describes what a player may do and the bounds for sized actions.
type Options struct {
	Actions    []Action `json:"actions"`
	CallAmount int      `json:"callAmount"`
	MinBet     int      `json:"minBet"`
	MinRaise   int      `json:"minRaise"` // smallest legal raise-to amount
	MaxRaise   int      `json:"maxRaise"` // largest raise-to amount, the player's whole stack
}

// Allows reports whether the action is legal.
func (o Options) Allows(a Action) bool {
	return slices.Contains(o.Actions, a)
}

// MinRaiseTo is the smallest legal raise-to amount.
func (br *BettingRound) MinRaiseTo() int {
	return br.CurrentBet + max(br.LastRaise, br.BigBlind)
}

// ToCall returns how much the player needs to add to match the current bet.
func (br *BettingRound) ToCall(p *Player) int {
	return max(br.CurrentBet-p.Bet, 0)
}

// Options computes the legal actions for p.
//
// A player who has already acted this street and faces only an incomplete
// all-in raise was not re-opened: they may call, fold, or go all-in for no
// more than the call.
func (br *BettingRound) Options(p *Player) Options {
	if !p.CanAct() {
		return Options{}
	}

	toCall := br.ToCall(p)
	opts := Options{
		Actions:    []Action{Fold},
		CallAmount: min(toCall, p.Stack),
		MinBet:     br.BigBlind,
		MinRaise:   br.MinRaiseTo(),
		MaxRaise:   p.Bet + p.Stack,
	}

	if toCall == 0 {
		opts.Actions = append(opts.Actions, Check)
	} else if p.Stack > toCall {
		opts.Actions = append(opts.Actions, Call)
	}

	if !p.HasActed {
		if br.CurrentBet == 0 {
			if p.Stack >= br.BigBlind {
				opts.Actions = append(opts.Actions, Bet)
			}
		} else if p.Bet+p.Stack >= br.MinRaiseTo() && p.Stack > toCall {
			opts.Actions = append(opts.Actions, Raise)
		}
		opts.Actions = append(opts.Actions, AllIn)
	} else if p.Stack <= toCall {
		opts.Actions = append(opts.Actions, AllIn)
	}

	return opts
}

// Validate checks a proposed action without changing any state.
func (br *BettingRound) Validate(a Action, amount int, p *Player) error {
	if !a.PlayerAction() {
		return fmt.Errorf("%w: %s is not a player action", ErrInvalidAction, a)
	}
	if !p.CanAct() {
		return fmt.Errorf("%w: player is %s", ErrInvalidAction, p.Status)
	}

	toCall := br.ToCall(p)
	maxTo := p.Bet + p.Stack

	switch a {
	case Fold:
		return nil

	case Check:
		if toCall > 0 {
			return fmt.Errorf("%w: must call or fold, cannot check into a bet of %d", ErrInvalidAction, br.CurrentBet)
		}

	case Call:
		if toCall == 0 {
			return fmt.Errorf("%w: nothing to call, check instead", ErrInvalidAction)
		}
		if p.Stack <= toCall {
			return fmt.Errorf("%w: stack of %d does not cover the call of %d, go all-in", ErrInvalidAction, p.Stack, toCall)
		}

	case Bet:
		if br.CurrentBet > 0 {
			return fmt.Errorf("%w: a bet of %d is open, raise instead", ErrInvalidAction, br.CurrentBet)
		}
		if amount > maxTo {
			return fmt.Errorf("%w: bet of %d with a stack of %d", ErrAmountExceedsStack, amount, p.Stack)
		}
		if p.Stack < br.BigBlind {
			return fmt.Errorf("%w: insufficient stack for minimum bet of %d, go all-in", ErrAmountBelowMinimum, br.BigBlind)
		}
		if amount < br.BigBlind {
			return fmt.Errorf("%w: bet must be at least %d", ErrAmountBelowMinimum, br.BigBlind)
		}

	case Raise:
		if br.CurrentBet == 0 {
			return fmt.Errorf("%w: no bet to raise, bet instead", ErrInvalidAction)
		}
		if p.HasActed {
			return fmt.Errorf("%w: betting was not reopened, call or fold", ErrInvalidAction)
		}
		if amount > maxTo {
			return fmt.Errorf("%w: raise to %d with %d available", ErrAmountExceedsStack, amount, maxTo)
		}
		if maxTo < br.MinRaiseTo() || p.Stack <= toCall {
			return fmt.Errorf("%w: insufficient stack for minimum raise to %d, go all-in", ErrAmountBelowMinimum, br.MinRaiseTo())
		}
		if amount < br.MinRaiseTo() {
			return fmt.Errorf("%w: raise must be to at least %d", ErrAmountBelowMinimum, br.MinRaiseTo())
		}

	case AllIn:
		if p.HasActed && p.Stack > toCall {
			return fmt.Errorf("%w: betting was not reopened, call or fold", ErrInvalidAction)
		}
	}
	return nil
}

// Apply validates and performs the action, returning the chips moved from
// the player's stack. players is every player dealt into the hand.
func (br *BettingRound) Apply(a Action, amount int, p *Player, players []*Player) (int, error) {
	if err := br.Validate(a, amount, p); err != nil {
		return 0, err
	}

	moved := 0
	switch a {
	case Fold:
		p.Status = StatusFolded
	case Check:
	case Call:
		moved = p.commit(br.ToCall(p))
	case Bet, Raise:
		moved = p.commit(amount - p.Bet)
		br.raiseTo(p, players)
	case AllIn:
		moved = p.commit(p.Stack)
		if p.Bet > br.CurrentBet {
			br.raiseTo(p, players)
		}
	}
	p.HasActed = true
	return moved, nil
}

// raiseTo lifts the current bet to p's bet. A full raise re-opens action
// for everyone else still able to act; an incomplete all-in raise only
// obliges them to match it.
func (br *BettingRound) raiseTo(p *Player, players []*Player) {
	increase := p.Bet - br.CurrentBet
	full := p.Bet >= br.MinRaiseTo()
	br.CurrentBet = p.Bet
	if !full {
		return
	}
	br.LastRaise = increase
	for _, other := range players {
		if other != p && other.CanAct() {
			other.HasActed = false
		}
	}
}

// PostBlind moves a forced bet, capped at the poster's stack. Posting does
// not count as acting.
func (br *BettingRound) PostBlind(p *Player, amount int) int {
	moved := p.commit(amount)
	br.CurrentBet = max(br.CurrentBet, p.Bet)
	return moved
}

// IsComplete reports whether the street's betting is finished: at most one
// player is left contesting the pot, or every live player who can still bet
// has acted since the last full raise and matched the current bet.
func (br *BettingRound) IsComplete(players []*Player) bool {
	live := 0
	for _, p := range players {
		if p.IsLive() {
			live++
		}
	}
	if live <= 1 {
		return true
	}
	for _, p := range players {
		if !p.CanAct() {
			continue
		}
		if !p.HasActed || p.Bet != br.CurrentBet {
			return false
		}
	}
	return true
}

// ResetForNewStreet clears per-street bets and acted flags.
func (br *BettingRound) ResetForNewStreet(players []*Player) {
	br.CurrentBet = 0
	br.LastRaise = br.BigBlind
	for _, p := range players {
		p.Bet = 0
		p.HasActed = false
	}
}
