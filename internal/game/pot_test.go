package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/poker"
)

func TestBuildPots(t *testing.T) {
	tests := []struct {
		name string
		in   []Contribution
		want []Pot
	}{
		{
			name: "no all-in",
			in: []Contribution{
				{PlayerID: "a", Amount: 100},
				{PlayerID: "b", Amount: 100},
			},
			want: []Pot{{Amount: 200, Eligible: []string{"a", "b"}}},
		},
		{
			name: "short all-in",
			in: []Contribution{
				{PlayerID: "a", Amount: 50, AllIn: true},
				{PlayerID: "b", Amount: 100},
				{PlayerID: "c", Amount: 100},
			},
			want: []Pot{
				{Amount: 150, Eligible: []string{"a", "b", "c"}},
				{Amount: 100, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "folded money in the main pot",
			in: []Contribution{
				{PlayerID: "a", Amount: 50, AllIn: true},
				{PlayerID: "b", Amount: 100},
				{PlayerID: "c", Amount: 100},
				{PlayerID: "d", Amount: 30, Folded: true},
			},
			want: []Pot{
				{Amount: 180, Eligible: []string{"a", "b", "c"}},
				{Amount: 100, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "folded money spans slices",
			in: []Contribution{
				{PlayerID: "a", Amount: 50, AllIn: true},
				{PlayerID: "b", Amount: 200},
				{PlayerID: "c", Amount: 200},
				{PlayerID: "d", Amount: 80, Folded: true},
			},
			want: []Pot{
				{Amount: 200, Eligible: []string{"a", "b", "c"}},
				{Amount: 330, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "multiple all-in levels",
			in: []Contribution{
				{PlayerID: "a", Amount: 20, AllIn: true},
				{PlayerID: "b", Amount: 60, AllIn: true},
				{PlayerID: "c", Amount: 100},
				{PlayerID: "d", Amount: 100},
			},
			want: []Pot{
				{Amount: 80, Eligible: []string{"a", "b", "c", "d"}},
				{Amount: 120, Eligible: []string{"b", "c", "d"}},
				{Amount: 80, Eligible: []string{"c", "d"}},
			},
		},
		{
			name: "equal all-ins share a level",
			in: []Contribution{
				{PlayerID: "a", Amount: 100, AllIn: true},
				{PlayerID: "b", Amount: 100, AllIn: true},
				{PlayerID: "c", Amount: 300},
			},
			want: []Pot{
				{Amount: 300, Eligible: []string{"a", "b", "c"}},
				{Amount: 200, Eligible: []string{"c"}},
			},
		},
		{
			name: "folded above every live player",
			in: []Contribution{
				{PlayerID: "a", Amount: 40, AllIn: true},
				{PlayerID: "b", Amount: 40, AllIn: true},
				{PlayerID: "c", Amount: 90, Folded: true},
			},
			want: []Pot{{Amount: 170, Eligible: []string{"a", "b"}}},
		},
		{
			name: "unmatched bet mid-round",
			in: []Contribution{
				{PlayerID: "a", Amount: 20},
				{PlayerID: "b", Amount: 60},
			},
			want: []Pot{{Amount: 80, Eligible: []string{"a", "b"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pots := BuildPots(tt.in)
			assert.Equal(t, tt.want, pots)

			in := 0
			for _, c := range tt.in {
				in += c.Amount
			}
			assert.Equal(t, in, TotalPots(pots))
		})
	}
}

func TestDistributeOddChips(t *testing.T) {
	pots := []Pot{{Amount: 100, Eligible: []string{"c", "a", "b"}}}
	scores := map[string]poker.Score{"a": 500, "b": 500, "c": 500}

	awards, err := Distribute(pots, scores, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []Award{
		{Pot: 0, PlayerID: "a", Amount: 34},
		{Pot: 0, PlayerID: "b", Amount: 33},
		{Pot: 0, PlayerID: "c", Amount: 33},
	}, awards)

	// Same inputs, same answer.
	again, err := Distribute(pots, scores, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, awards, again)
}

func TestDistributeSidePots(t *testing.T) {
	pots := BuildPots([]Contribution{
		{PlayerID: "a", Amount: 50, AllIn: true},
		{PlayerID: "b", Amount: 100},
		{PlayerID: "c", Amount: 100},
	})
	// The short stack has the best hand but can only win the main pot.
	scores := map[string]poker.Score{"a": 900, "b": 700, "c": 300}

	awards, err := Distribute(pots, scores, []string{"a", "b", "c"})
	require.NoError(t, err)
	won := Winnings(awards)
	assert.Equal(t, 150, won["a"])
	assert.Equal(t, 100, won["b"])
	assert.Zero(t, won["c"])
}

func TestDistributeSplitSidePot(t *testing.T) {
	pots := []Pot{
		{Amount: 91, Eligible: []string{"a", "b", "c"}},
		{Amount: 51, Eligible: []string{"b", "c"}},
	}
	scores := map[string]poker.Score{"a": 100, "b": 800, "c": 800}

	awards, err := Distribute(pots, scores, []string{"c", "a", "b"})
	require.NoError(t, err)
	won := Winnings(awards)
	assert.Equal(t, 46+26, won["c"], "c is first in seat order")
	assert.Equal(t, 45+25, won["b"])
	assert.Zero(t, won["a"])
}

func TestDistributeNoWinner(t *testing.T) {
	pots := []Pot{{Amount: 100, Eligible: []string{"a"}}}
	_, err := Distribute(pots, map[string]poker.Score{"b": 1}, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrInvariantViolation)
}
