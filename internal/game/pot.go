package game

import (
	"fmt"
	"slices"

	"github.com/lox/pokertable/poker"
)

// Contribution is one player's chips committed over the whole hand.
type Contribution struct {
	PlayerID string
	Amount   int
	AllIn    bool
	Folded   bool
}

// Pot is a slice of the chips in the middle. The first pot is the main pot;
// the rest are side pots.
type Pot struct {
	Amount   int      `json:"amount"`
	Eligible []string `json:"eligible"`
}

// Award is a payout from one pot to one winner.
type Award struct {
	Pot      int    `json:"pot"` // index into the pot list, 0 is the main pot
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

// TotalPots sums every pot.
func TotalPots(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

// BuildPots slices contributions into a main pot and side pots. Slice
// boundaries are the distinct all-in levels of players still in the hand.
// Folded chips fall into every slice they reach, but folded players are
// never eligible. A player who is neither folded nor all-in can still match
// any level and is eligible for every slice. Contributions should be in
// seat order; eligibility lists keep that order.
func BuildPots(contributions []Contribution) []Pot {
	var levels []int
	top := 0
	for _, c := range contributions {
		top = max(top, c.Amount)
		if c.AllIn && !c.Folded && c.Amount > 0 && !slices.Contains(levels, c.Amount) {
			levels = append(levels, c.Amount)
		}
	}
	slices.Sort(levels)
	if len(levels) == 0 || levels[len(levels)-1] < top {
		levels = append(levels, top)
	}

	var pots []Pot
	carry, prev := 0, 0
	for _, level := range levels {
		amount := carry
		var eligible []string
		for _, c := range contributions {
			if c.Amount > prev {
				amount += min(c.Amount, level) - prev
			}
			if c.Folded {
				continue
			}
			if c.Amount >= level || !c.AllIn {
				eligible = append(eligible, c.PlayerID)
			}
		}
		prev = level
		carry = 0

		switch {
		case amount == 0:
		case len(eligible) == 0 && len(pots) > 0:
			pots[len(pots)-1].Amount += amount
		case len(eligible) == 0:
			carry = amount
		default:
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
	}
	if carry > 0 {
		pots = append(pots, Pot{Amount: carry})
	}
	return pots
}

// Distribute pays each pot to the best scoring eligible players. Ties split
// the pot evenly; odd chips go one at a time to the tied winners in
// seatOrder. Players missing from scores cannot win.
func Distribute(pots []Pot, scores map[string]poker.Score, seatOrder []string) ([]Award, error) {
	rank := make(map[string]int, len(seatOrder))
	for i, id := range seatOrder {
		rank[id] = i
	}

	var awards []Award
	paid := 0
	for i, pot := range pots {
		var winners []string
		var best poker.Score
		for _, id := range pot.Eligible {
			score, ok := scores[id]
			if !ok {
				continue
			}
			switch {
			case len(winners) == 0 || score > best:
				winners, best = []string{id}, score
			case score == best:
				winners = append(winners, id)
			}
		}
		if len(winners) == 0 {
			return nil, fmt.Errorf("%w: pot %d of %d has no eligible winner", ErrInvariantViolation, i, pot.Amount)
		}
		slices.SortFunc(winners, func(a, b string) int {
			return rank[a] - rank[b]
		})

		share := pot.Amount / len(winners)
		odd := pot.Amount % len(winners)
		for j, id := range winners {
			amount := share
			if j < odd {
				amount++
			}
			awards = append(awards, Award{Pot: i, PlayerID: id, Amount: amount})
			paid += amount
		}
	}

	if total := TotalPots(pots); paid != total {
		return nil, fmt.Errorf("%w: distributed %d of %d", ErrInvariantViolation, paid, total)
	}
	return awards, nil
}

// Winnings sums awards per player.
func Winnings(awards []Award) map[string]int {
	won := make(map[string]int)
	for _, a := range awards {
		won[a.PlayerID] += a.Amount
	}
	return won
}
