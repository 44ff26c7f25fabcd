package game

import (
	"fmt"
	"strings"
)

// Stage is the street a hand is on.
type Stage uint8

const (
	Preflop Stage = iota
	Flop
	Turn
	River
	Showdown
)

var stageNames = [...]string{"preflop", "flop", "turn", "river", "showdown"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// MarshalText encodes the stage name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// Action is a betting decision. Only the first six values can be submitted
// by players; the blind posts exist for the action log.
type Action uint8

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
	AllIn
	PostSmallBlind
	PostBigBlind
)

var actionNames = [...]string{"fold", "check", "call", "bet", "raise", "all-in", "small-blind", "big-blind"}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// PlayerAction reports whether a player may submit this action.
func (a Action) PlayerAction() bool {
	return a <= AllIn
}

// MarshalText encodes the action name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes any action name, including blind posts.
func (a *Action) UnmarshalText(text []byte) error {
	for i, name := range actionNames {
		if name == string(text) {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", text)
}

// ParseAction parses a player-submitted action. "allin" and "all_in" are
// accepted for all-in.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return Bet, nil
	case "raise":
		return Raise, nil
	case "all-in", "allin", "all_in":
		return AllIn, nil
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
}

// Status is a seated player's state.
type Status uint8

const (
	StatusActive Status = iota
	StatusFolded
	StatusAllIn
	StatusSittingOut
	StatusAway
	StatusQuitting
	StatusInNextHand
)

var statusNames = [...]string{"active", "folded", "all-in", "sitting-out", "away", "quitting", "in-next-hand"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// MarshalText encodes the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}
