package poker

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// ErrDeckExhausted is returned when more cards are drawn than remain.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is a single-use, shuffled 52-card deck. A new deck is created for
// every hand; cards leave the deck exactly once.
type Deck struct {
	cards [NumCards]Card
	next  int
}

// NewDeck creates a deck shuffled with crypto/rand.
func NewDeck() (*Deck, error) {
	return NewDeckFromSource(rand.Reader)
}

// NewDeckFromSource creates a deck shuffled with Fisher-Yates driven by the
// given entropy source. Each swap index is drawn uniformly with crypto/rand.Int,
// so every permutation is equally likely for a uniform source.
func NewDeckFromSource(src io.Reader) (*Deck, error) {
	d := &Deck{}
	for i := range d.cards {
		d.cards[i] = Card(i)
	}

	for i := len(d.cards) - 1; i > 0; i-- {
		n, err := rand.Int(src, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("shuffle: %w", err)
		}
		j := int(n.Int64())
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d, nil
}

// NewStackedDeck creates an unshuffled deck whose first cards are top, in
// order, followed by every other card in canonical order. Used to run
// hands with known cards.
func NewStackedDeck(top ...Card) (*Deck, error) {
	d := &Deck{}
	var used [NumCards]bool
	i := 0
	for _, c := range top {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid card: %d", uint8(c))
		}
		if used[c] {
			return nil, fmt.Errorf("duplicate card in stacked deck: %s", c)
		}
		used[c] = true
		d.cards[i] = c
		i++
	}
	for c := Card(0); c < NumCards; c++ {
		if !used[c] {
			d.cards[i] = c
			i++
		}
	}
	return d, nil
}

// Draw removes and returns the next n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || d.next+n > len(d.cards) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrDeckExhausted, n, d.Remaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Burn discards the next card.
func (d *Deck) Burn() error {
	_, err := d.Draw(1)
	return err
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Dealt returns a copy of every card drawn so far, burns included.
func (d *Deck) Dealt() []Card {
	out := make([]Card, d.next)
	copy(out, d.cards[:d.next])
	return out
}
