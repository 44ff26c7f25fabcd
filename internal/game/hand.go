package game

import (
	"time"

	"github.com/lox/pokertable/poker"
)

// ActionRecord is one entry in a hand's action log.
type ActionRecord struct {
	PlayerID string    `json:"playerId"`
	Seat     int       `json:"seat"`
	Stage    Stage     `json:"stage"`
	Action   Action    `json:"action"`
	Amount   int       `json:"amount"` // chips moved from the stack
	BetTo    int       `json:"betTo"`  // player's street bet afterwards
	At       time.Time `json:"at"`
}

// Hand is the state of the hand in progress at a table.
type Hand struct {
	ID        string
	TableID   string
	Stage     Stage
	Community []poker.Card
	Pot       int   // main pot
	SidePots  []Pot // side pots, after the main pot
	Betting   *BettingRound

	DealerSeat     int
	SmallBlindSeat int
	BigBlindSeat   int
	ActiveSeat     int // -1 when nobody is to act
	TurnSeq        int // bumped every time the turn moves

	Actions        []ActionRecord
	StartingStacks map[string]int
	StartedAt      time.Time

	Halted     bool
	HaltReason string

	deck    *poker.Deck
	players []*Player // dealt in, seat order
	pots    []Pot
}

// Players returns the players dealt into the hand in seat order.
func (h *Hand) Players() []*Player {
	return h.players
}

// Pots returns the main pot followed by any side pots.
func (h *Hand) Pots() []Pot {
	return h.pots
}

// PotTotal is the sum of every pot.
func (h *Hand) PotTotal() int {
	return TotalPots(h.pots)
}

// ChipsIn is the total moved out of stacks this hand.
func (h *Hand) ChipsIn() int {
	total := 0
	for _, p := range h.players {
		total += p.TotalBet
	}
	return total
}

// Live returns the players still contesting the pot.
func (h *Hand) Live() []*Player {
	var live []*Player
	for _, p := range h.players {
		if p.IsLive() {
			live = append(live, p)
		}
	}
	return live
}

// Contributions reports every dealt player's total bet in seat order.
func (h *Hand) Contributions() []Contribution {
	contribs := make([]Contribution, len(h.players))
	for i, p := range h.players {
		contribs[i] = Contribution{
			PlayerID: p.ID,
			Amount:   p.TotalBet,
			AllIn:    p.Status == StatusAllIn,
			Folded:   p.Status == StatusFolded,
		}
	}
	return contribs
}

func (h *Hand) seatOrder() []string {
	ids := make([]string, len(h.players))
	for i, p := range h.players {
		ids[i] = p.ID
	}
	return ids
}

func (h *Hand) recomputePots() {
	h.pots = BuildPots(h.Contributions())
	h.Pot, h.SidePots = 0, nil
	if len(h.pots) > 0 {
		h.Pot = h.pots[0].Amount
		h.SidePots = h.pots[1:]
	}
}

func (h *Hand) player(id string) *Player {
	for _, p := range h.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
