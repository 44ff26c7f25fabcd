package phh

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/store"
	"github.com/lox/pokertable/poker"
)

// Encode writes the hand history to w as PHH TOML.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return errors.New("phh: hand history is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(hand *HandHistory) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatAction converts a logged action into a PHH action for player index
// p (zero based). streetBet is the highest bet on the street before the
// action. Blind posts return false since they live in blinds_or_straddles.
func FormatAction(p int, rec game.ActionRecord, streetBet int) (string, bool) {
	player := fmt.Sprintf("p%d", p+1)
	switch rec.Action {
	case game.Fold:
		return player + " f", true
	case game.Check, game.Call:
		return player + " cc", true
	case game.Bet, game.Raise:
		return fmt.Sprintf("%s cbr %d", player, rec.BetTo), true
	case game.AllIn:
		if rec.BetTo <= streetBet {
			return player + " cc", true
		}
		return fmt.Sprintf("%s cbr %d", player, rec.BetTo), true
	default:
		return "", false
	}
}

// boardFor is how many community cards are out once a street starts.
var boardFor = map[game.Stage]int{game.Flop: 3, game.Turn: 4, game.River: 5}

// FromHand builds the history of a recorded hand. Hole cards that were
// never shown are written as ????.
func FromHand(h store.Hand) (*HandHistory, error) {
	if len(h.Seats) < 2 {
		return nil, fmt.Errorf("phh: hand %s has %d seats", h.ID, len(h.Seats))
	}
	seats := slices.Clone(h.Seats)
	slices.SortFunc(seats, func(a, b game.SeatResult) int { return a.Seat - b.Seat })

	blinds := map[int]int{}
	sbSeat, bbSeat, bigBlind := -1, -1, 0
	for _, rec := range h.Actions {
		switch rec.Action {
		case game.PostSmallBlind:
			sbSeat = rec.Seat
			blinds[rec.Seat] += rec.Amount
		case game.PostBigBlind:
			bbSeat = rec.Seat
			bigBlind = rec.Amount
			blinds[rec.Seat] += rec.Amount
		}
	}
	if sbSeat < 0 || bbSeat < 0 {
		return nil, fmt.Errorf("phh: hand %s has no blinds", h.ID)
	}

	// Heads up the dealer posts the small blind, so the big blind leads.
	first := sbSeat
	if len(seats) == 2 {
		first = bbSeat
	}
	start := slices.IndexFunc(seats, func(s game.SeatResult) bool { return s.Seat == first })
	if start < 0 {
		return nil, fmt.Errorf("phh: hand %s blind seat %d not dealt", h.ID, first)
	}
	seats = append(seats[start:], seats[:start]...)

	index := make(map[int]int, len(seats))
	won := map[int]int{}
	for _, w := range h.Winners {
		won[w.Seat] += w.Amount
	}
	shown := map[int][]poker.Card{}
	for _, r := range h.Reveals {
		shown[r.Seat] = r.HoleCards
	}

	out := &HandHistory{
		Variant: "NT",
		Table:   h.TableID,
		MinBet:  bigBlind,
		HandID:  h.ID,
	}
	if !h.StartedAt.IsZero() {
		t := h.StartedAt.UTC()
		out.Time = t.Format("15:04:05")
		out.TimeZone = "UTC"
		out.Day, out.Month, out.Year = t.Day(), int(t.Month()), t.Year()
	}
	for i, s := range seats {
		index[s.Seat] = i
		out.Seats = append(out.Seats, s.Seat+1)
		out.Players = append(out.Players, s.PlayerID)
		out.Antes = append(out.Antes, 0)
		out.BlindsOrStraddles = append(out.BlindsOrStraddles, blinds[s.Seat])
		out.StartingStacks = append(out.StartingStacks, s.StartingStack)
		out.FinishingStacks = append(out.FinishingStacks, s.EndingStack)
		out.Winnings = append(out.Winnings, won[s.Seat])
		out.Actions = append(out.Actions, fmt.Sprintf("d dh p%d %s", i+1, holeCards(shown[s.Seat])))
	}

	dealt := 0
	deal := func(upTo int) {
		upTo = min(upTo, len(h.Board))
		if upTo > dealt {
			out.Actions = append(out.Actions, "d db "+cardString(h.Board[dealt:upTo]))
			dealt = upTo
		}
	}

	stage, streetBet := game.Preflop, bigBlind
	for _, rec := range h.Actions {
		if !rec.Action.PlayerAction() {
			continue
		}
		if rec.Stage != stage {
			stage, streetBet = rec.Stage, 0
			deal(boardFor[stage])
		}
		p, ok := index[rec.Seat]
		if !ok {
			return nil, fmt.Errorf("phh: hand %s action from unknown seat %d", h.ID, rec.Seat)
		}
		if action, ok := FormatAction(p, rec, streetBet); ok {
			out.Actions = append(out.Actions, action)
		}
		streetBet = max(streetBet, rec.BetTo)
	}
	// All-in run outs deal the rest of the board without further actions.
	for _, n := range []int{3, 4, 5} {
		deal(n)
	}

	for i, s := range seats {
		if cards, ok := shown[s.Seat]; ok {
			out.Actions = append(out.Actions, fmt.Sprintf("p%d sm %s", i+1, cardString(cards)))
		}
	}
	return out, nil
}

func holeCards(cards []poker.Card) string {
	if len(cards) == 0 {
		return "????"
	}
	return cardString(cards)
}

func cardString(cards []poker.Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}
