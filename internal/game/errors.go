package game

import "errors"

// User errors. These are reported to the caller and never end a hand.
var (
	ErrNoActiveHand       = errors.New("no active hand")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidAction      = errors.New("invalid action")
	ErrAmountBelowMinimum = errors.New("amount below minimum")
	ErrAmountExceedsStack = errors.New("amount exceeds stack")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrHandInProgress     = errors.New("hand in progress")
	ErrHandHalted         = errors.New("hand halted")
)

// Seat management errors.
var (
	ErrTableFull     = errors.New("table is full")
	ErrSeatTaken     = errors.New("seat taken")
	ErrInvalidSeat   = errors.New("invalid seat")
	ErrAlreadySeated = errors.New("player already seated")
)

// ErrInvariantViolation marks a logic bug: pot/contribution mismatch, a
// short board at showdown, or an evaluator/deck failure. The affected hand
// is halted.
var ErrInvariantViolation = errors.New("invariant violation")

var codes = []struct {
	err  error
	code string
}{
	{ErrNoActiveHand, "no_active_hand"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrInvalidAction, "invalid_action"},
	{ErrAmountBelowMinimum, "amount_below_minimum"},
	{ErrAmountExceedsStack, "amount_exceeds_stack"},
	{ErrUnknownPlayer, "unknown_player"},
	{ErrNotEnoughPlayers, "not_enough_players"},
	{ErrHandInProgress, "hand_in_progress"},
	{ErrHandHalted, "hand_halted"},
	{ErrTableFull, "table_full"},
	{ErrSeatTaken, "seat_taken"},
	{ErrInvalidSeat, "invalid_seat"},
	{ErrAlreadySeated, "already_seated"},
	{ErrInvariantViolation, "internal_error"},
}

// Code maps an error to a short machine readable code for clients.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "error"
}

// IsUserError reports whether err was caused by the caller's input rather
// than by a fault in the engine.
func IsUserError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvariantViolation) && Code(err) != "error"
}

// Reason is the reason string reported to the caller. Internal failures are
// not described beyond the fact that the hand was halted.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvariantViolation):
		return "internal error, hand halted for inspection"
	default:
		return err.Error()
	}
}
