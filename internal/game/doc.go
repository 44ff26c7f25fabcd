// Package game is the authoritative Texas Hold'em engine for a single
// table.
//
// A Table owns its seats and at most one Hand. The Engine is the only thing
// that mutates a hand: StartHand deals, ProcessAction applies a player's
// decision and moves the hand on, and EvaluateShowdown pays the pots. Each
// call returns an Outcome describing what changed so callers can broadcast
// it. The engine does no locking; callers serialize access per table.
//
// Betting follows no-limit rules. Bet and raise amounts are the player's
// total bet for the street. Pots are rebuilt from every player's total
// contribution after each action, so side pots are always current.
package game
