package game

import (
	"slices"
	"time"

	"github.com/lox/pokertable/poker"
)

// SeatResult is a player's stack before and after a hand.
type SeatResult struct {
	PlayerID      string `json:"playerId"`
	Address       string `json:"address,omitempty"`
	Seat          int    `json:"seat"`
	StartingStack int    `json:"startingStack"`
	EndingStack   int    `json:"endingStack"`
}

// Net is the chips won (positive) or lost over the hand.
func (s SeatResult) Net() int {
	return s.EndingStack - s.StartingStack
}

// Reveal is a hand shown down.
type Reveal struct {
	PlayerID  string              `json:"playerId"`
	Seat      int                 `json:"seat"`
	HoleCards []poker.Card        `json:"holeCards"`
	Hand      poker.EvaluatedHand `json:"hand"`
}

// Winner sums everything a player collected from the pots.
type Winner struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Amount   int    `json:"amount"`
}

// HandResult is the immutable record of a finished hand.
type HandResult struct {
	HandID    string         `json:"handId"`
	TableID   string         `json:"tableId"`
	Number    int            `json:"number"`
	Community []poker.Card   `json:"community"`
	Pot       int            `json:"pot"`
	Pots      []Pot          `json:"pots"`
	Awards    []Award        `json:"awards"`
	Winners   []Winner       `json:"winners"`
	Reveals   []Reveal       `json:"reveals,omitempty"`
	Seats     []SeatResult   `json:"seats"`
	Actions   []ActionRecord `json:"actions"`
	Showdown  bool           `json:"showdown"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
}

// Seat finds the result for a player.
func (r *HandResult) Seat(playerID string) (SeatResult, bool) {
	for _, s := range r.Seats {
		if s.PlayerID == playerID {
			return s, true
		}
	}
	return SeatResult{}, false
}

// SeatView is the public state of one seat. Hole cards are never included.
type SeatView struct {
	Seat      int    `json:"seat"`
	PlayerID  string `json:"playerId"`
	Stack     int    `json:"stack"`
	Bet       int    `json:"bet"`
	TotalBet  int    `json:"totalBet"`
	Status    Status `json:"status"`
	Connected bool   `json:"connected"`
	HasCards  bool   `json:"hasCards"`
}

// Snapshot is a copy of the table state safe to hand to any observer.
type Snapshot struct {
	TableID        string       `json:"tableId"`
	HandID         string       `json:"handId,omitempty"`
	HandNumber     int          `json:"handNumber"`
	Stage          Stage        `json:"stage"`
	Community      []poker.Card `json:"community"`
	Pot            int          `json:"pot"`
	SidePots       []Pot        `json:"sidePots,omitempty"`
	CurrentBet     int          `json:"currentBet"`
	MinRaise       int          `json:"minRaise"`
	SmallBlind     int          `json:"smallBlind"`
	BigBlind       int          `json:"bigBlind"`
	DealerSeat     int          `json:"dealerSeat"`
	SmallBlindSeat int          `json:"smallBlindSeat"`
	BigBlindSeat   int          `json:"bigBlindSeat"`
	ActiveSeat     int          `json:"activeSeat"`
	Seats          []SeatView   `json:"seats"`
}

// Snapshot copies the public table state.
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{
		TableID:        t.ID,
		HandNumber:     t.HandCount,
		SmallBlind:     t.SmallBlind,
		BigBlind:       t.BigBlind,
		DealerSeat:     t.DealerSeat,
		SmallBlindSeat: -1,
		BigBlindSeat:   -1,
		ActiveSeat:     -1,
	}
	if h := t.Hand; h != nil {
		s.HandID = h.ID
		s.HandNumber = t.HandCount + 1
		s.Stage = h.Stage
		s.Community = slices.Clone(h.Community)
		s.Pot = h.Pot
		for _, p := range h.SidePots {
			s.SidePots = append(s.SidePots, Pot{Amount: p.Amount, Eligible: slices.Clone(p.Eligible)})
		}
		s.CurrentBet = h.Betting.CurrentBet
		s.MinRaise = h.Betting.MinRaiseTo()
		s.SmallBlindSeat = h.SmallBlindSeat
		s.BigBlindSeat = h.BigBlindSeat
		s.ActiveSeat = h.ActiveSeat
	}
	for _, p := range t.Players() {
		s.Seats = append(s.Seats, SeatView{
			Seat:      p.Seat,
			PlayerID:  p.ID,
			Stack:     p.Stack,
			Bet:       p.Bet,
			TotalBet:  p.TotalBet,
			Status:    p.Status,
			Connected: p.Connected,
			HasCards:  p.InHand() && p.Status != StatusFolded,
		})
	}
	return s
}
