// Package store records finished hands. Records are written once and never
// updated.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

var (
	ErrHandNotFound = errors.New("hand not found")
	ErrHandExists   = errors.New("hand already recorded")
)

// Hand is the stored form of a finished hand.
type Hand struct {
	ID        string              `json:"id"`
	TableID   string              `json:"tableId"`
	Number    int                 `json:"number"`
	Board     []poker.Card        `json:"board"`
	Pot       int                 `json:"pot"`
	Showdown  bool                `json:"showdown"`
	StartedAt time.Time           `json:"startedAt"`
	EndedAt   time.Time           `json:"endedAt"`
	Seats     []game.SeatResult   `json:"seats"`
	Winners   []game.Winner       `json:"winners"`
	Reveals   []game.Reveal       `json:"reveals,omitempty"`
	Actions   []game.ActionRecord `json:"actions"`
}

// FromResult converts an engine result into a record.
func FromResult(res *game.HandResult) Hand {
	var actions []game.ActionRecord
	for _, a := range res.Actions {
		a.At = a.At.UTC()
		actions = append(actions, a)
	}
	return Hand{
		ID:        res.HandID,
		TableID:   res.TableID,
		Number:    res.Number,
		Board:     append([]poker.Card(nil), res.Community...),
		Pot:       res.Pot,
		Showdown:  res.Showdown,
		StartedAt: res.StartedAt.UTC(),
		EndedAt:   res.EndedAt.UTC(),
		Seats:     append([]game.SeatResult(nil), res.Seats...),
		Winners:   append([]game.Winner(nil), res.Winners...),
		Reveals:   append([]game.Reveal(nil), res.Reveals...),
		Actions:   actions,
	}
}

// Store records hands and reads them back.
type Store interface {
	RecordHand(ctx context.Context, res *game.HandResult) error
	GetHand(ctx context.Context, id string) (Hand, error)
	ListHands(ctx context.Context, tableID string, limit int) ([]Hand, error)
	Close() error
}

// Open returns the store for driver: memory, sqlite3 or postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite3", "postgres":
		return OpenSQL(ctx, driver, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}
