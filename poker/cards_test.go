package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardCreation(t *testing.T) {
	t.Parallel()

	aceSpades := NewCard(Ace, Spades)
	if aceSpades.Rank() != Ace {
		t.Errorf("Expected rank Ace, got %d", aceSpades.Rank())
	}
	if aceSpades.Suit() != Spades {
		t.Errorf("Expected suit Spades, got %d", aceSpades.Suit())
	}
	if aceSpades.String() != "As" {
		t.Errorf("Expected 'As', got %s", aceSpades.String())
	}
	if aceSpades.Value() != 14 {
		t.Errorf("Expected value 14, got %d", aceSpades.Value())
	}

	twoClubs := NewCard(Two, Clubs)
	if twoClubs.String() != "2c" {
		t.Errorf("Expected '2c', got %s", twoClubs.String())
	}
}

func TestParseCard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		wantCard Card
		wantErr  bool
	}{
		{input: "As", wantCard: NewCard(Ace, Spades)},
		{input: "2h", wantCard: NewCard(Two, Hearts)},
		{input: "Kd", wantCard: NewCard(King, Diamonds)},
		{input: "tC", wantCard: NewCard(Ten, Clubs)},
		{input: "AS", wantCard: NewCard(Ace, Spades)},
		{input: "1s", wantErr: true},
		{input: "Ax", wantErr: true},
		{input: "A", wantErr: true},
		{input: "Asd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCard(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCard, got)
		})
	}
}

func TestAllCardsRoundTrip(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for c := Card(0); c < NumCards; c++ {
		s := c.String()
		require.False(t, seen[s], "duplicate string %s", s)
		seen[s] = true

		parsed, err := ParseCard(s)
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	assert.Len(t, seen, 52)
	assert.Equal(t, "??", Card(52).String())
}

func TestCardTextMarshalling(t *testing.T) {
	t.Parallel()

	text, err := NewCard(Queen, Hearts).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Qh", string(text))

	var c Card
	require.NoError(t, c.UnmarshalText([]byte("7d")))
	assert.Equal(t, NewCard(Seven, Diamonds), c)

	_, err = Card(60).MarshalText()
	assert.Error(t, err)
}

func TestParseCards(t *testing.T) {
	t.Parallel()

	cards, err := ParseCards("As Kd  2c")
	require.NoError(t, err)
	assert.Equal(t, "As Kd 2c", FormatCards(cards))

	_, err = ParseCards("As Zz")
	assert.Error(t, err)
}
