package poker

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidHandSize is returned when evaluating fewer than 5 or more than 7 cards.
var ErrInvalidHandSize = errors.New("hand must contain 5 to 7 cards")

// ErrDuplicateCard is returned when the same card appears twice in one hand.
var ErrDuplicateCard = errors.New("duplicate card")

// Category enumerates poker hand classes ordered from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"High Card",
	"Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
	"Royal Flush",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "Unknown"
}

// Score totally orders evaluated hands; a higher score is a stronger hand.
//
// The category occupies the most significant position and the five ordered
// card values (2..14, or 1 for the ace of a wheel) follow, base 15:
//
//	score = category*15^5 + v0*15^4 + v1*15^3 + v2*15^2 + v3*15 + v4
type Score uint32

const scoreBase = 15

// EvaluatedHand is the best five-card hand found in a set of cards.
// Cards are ordered by significance: grouped cards first, then kickers,
// highest first. A wheel lists the ace last.
type EvaluatedHand struct {
	Category Category `json:"category"`
	Score    Score    `json:"score"`
	Cards    [5]Card  `json:"cards"`
}

func (h EvaluatedHand) String() string {
	return fmt.Sprintf("%s (%s)", h.Category, FormatCards(h.Cards[:]))
}

// Evaluate ranks 5 to 7 cards by scoring every 5-card subset and keeping
// the best one.
func Evaluate(cards []Card) (EvaluatedHand, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return EvaluatedHand{}, fmt.Errorf("%w: got %d", ErrInvalidHandSize, len(cards))
	}
	var seen [NumCards]bool
	for _, c := range cards {
		if !c.Valid() {
			return EvaluatedHand{}, fmt.Errorf("invalid card: %d", uint8(c))
		}
		if seen[c] {
			return EvaluatedHand{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen[c] = true
	}

	n := len(cards)
	var best EvaluatedHand
	found := false
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						h := Evaluate5([5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]})
						if !found || h.Score > best.Score {
							best = h
							found = true
						}
					}
				}
			}
		}
	}
	return best, nil
}

// Evaluate5 scores exactly five distinct cards.
func Evaluate5(cards [5]Card) EvaluatedHand {
	var counts [15]int
	flush := true
	for i, c := range cards {
		counts[c.Value()]++
		if i > 0 && c.Suit() != cards[0].Suit() {
			flush = false
		}
	}

	// Order by group size, then by value, so kickers follow the made cards.
	ordered := cards
	sort.Slice(ordered[:], func(i, j int) bool {
		vi, vj := ordered[i].Value(), ordered[j].Value()
		if counts[vi] != counts[vj] {
			return counts[vi] > counts[vj]
		}
		if vi != vj {
			return vi > vj
		}
		return ordered[i].Suit() < ordered[j].Suit()
	})

	values := [5]int{}
	for i, c := range ordered {
		values[i] = c.Value()
	}

	straight := false
	distinct := counts[values[0]] == 1
	if distinct && values[0]-values[4] == 4 {
		straight = true
	}
	if distinct && values[0] == 14 && values[1] == 5 && values[4] == 2 {
		// Wheel: the ace plays low.
		straight = true
		ordered = [5]Card{ordered[1], ordered[2], ordered[3], ordered[4], ordered[0]}
		values = [5]int{5, 4, 3, 2, 1}
	}

	var category Category
	switch {
	case straight && flush && values[0] == 14:
		category = RoyalFlush
	case straight && flush:
		category = StraightFlush
	case counts[values[0]] == 4:
		category = FourOfAKind
	case counts[values[0]] == 3 && counts[values[3]] == 2:
		category = FullHouse
	case flush:
		category = Flush
	case straight:
		category = Straight
	case counts[values[0]] == 3:
		category = ThreeOfAKind
	case counts[values[0]] == 2 && counts[values[2]] == 2:
		category = TwoPair
	case counts[values[0]] == 2:
		category = Pair
	default:
		category = HighCard
	}

	score := Score(category)
	for _, v := range values {
		score = score*scoreBase + Score(v)
	}

	return EvaluatedHand{Category: category, Score: score, Cards: ordered}
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 for a tie.
func Compare(a, b EvaluatedHand) int {
	switch {
	case a.Score > b.Score:
		return 1
	case a.Score < b.Score:
		return -1
	default:
		return 0
	}
}
