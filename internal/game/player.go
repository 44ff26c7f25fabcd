package game

import (
	"github.com/lox/pokertable/poker"
)

// Player is an occupied seat. During a hand only the betting state machine
// changes Stack, Bet, TotalBet, HasActed and Status.
type Player struct {
	ID        string
	Address   string // wallet address for custodial sessions, empty otherwise
	Seat      int
	Stack     int
	HoleCards []poker.Card
	Bet       int // contribution this betting round
	TotalBet  int // contribution this hand
	HasActed  bool
	Status    Status
	Connected bool

	// Leaving marks a player who asked to leave mid-hand; they are folded
	// when action reaches them and removed once the hand is over.
	Leaving bool

	// AwayNextHand marks a player who timed out; they become away once the
	// hand is over and are not dealt in until they sit back in.
	AwayNextHand bool

	// SitOutNextHand is a sit-out request made during a hand.
	SitOutNextHand bool

	inHand bool
}

// InHand reports whether the player was dealt into the current hand.
func (p *Player) InHand() bool {
	return p.inHand
}

// IsLive reports whether the player is still contesting the pot.
func (p *Player) IsLive() bool {
	return p.inHand && (p.Status == StatusActive || p.Status == StatusAllIn)
}

// CanAct reports whether the player still has betting decisions to make.
func (p *Player) CanAct() bool {
	return p.inHand && p.Status == StatusActive && p.Stack > 0
}

// Eligible reports whether the player can be dealt into the next hand.
func (p *Player) Eligible() bool {
	if p.Stack <= 0 || !p.Connected || p.Leaving {
		return false
	}
	switch p.Status {
	case StatusSittingOut, StatusAway, StatusQuitting:
		return false
	}
	return true
}

func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.Bet = 0
	p.TotalBet = 0
	p.HasActed = false
	p.Status = StatusActive
	p.inHand = true
}

// leaveHand returns the player to a between-hands status.
func (p *Player) leaveHand() {
	p.inHand = false
	p.Bet = 0
	p.HasActed = false
	switch {
	case p.Leaving:
		p.Status = StatusQuitting
	case p.AwayNextHand:
		p.Status = StatusAway
	case p.SitOutNextHand:
		p.Status = StatusSittingOut
	case p.Stack == 0:
		p.Status = StatusSittingOut
	default:
		p.Status = StatusActive
	}
	p.AwayNextHand = false
	p.SitOutNextHand = false
}

func (p *Player) commit(amount int) int {
	if amount > p.Stack {
		amount = p.Stack
	}
	if amount <= 0 {
		return 0
	}
	p.Stack -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Stack == 0 {
		p.Status = StatusAllIn
	}
	return amount
}
