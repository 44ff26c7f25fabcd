package server

import (
	"time"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

// ActionEvent is an applied action, blinds included.
type ActionEvent struct {
	TableID  string      `json:"tableId"`
	HandID   string      `json:"handId"`
	PlayerID string      `json:"playerId"`
	Seat     int         `json:"seat"`
	Stage    game.Stage  `json:"stage"`
	Action   game.Action `json:"action"`
	Amount   int         `json:"amount"`
	BetTo    int         `json:"betTo"`
	Pot      int         `json:"pot"`
	Timeout  bool        `json:"timeout,omitempty"`
	At       time.Time   `json:"at"`
}

// TurnNotice tells everyone whose turn it is and how long they have.
type TurnNotice struct {
	TableID              string       `json:"tableId"`
	HandID               string       `json:"handId"`
	PlayerID             string       `json:"playerId"`
	Seat                 int          `json:"seat"`
	TimeRemainingSeconds int          `json:"timeRemainingSeconds"`
	Options              game.Options `json:"options"`
}

// Publisher receives table events. Calls are made while the table is
// locked and must not block.
type Publisher interface {
	// HandStarted must deliver each player only their own hole cards.
	HandStarted(snap game.Snapshot, holeCards map[string][]poker.Card)
	ActionApplied(ev ActionEvent)
	BoardDealt(tableID, handID string, street game.Street, board []poker.Card)
	TurnChanged(notice TurnNotice)
	HandEnded(res *game.HandResult)
}

type nopPublisher struct{}

func (nopPublisher) HandStarted(game.Snapshot, map[string][]poker.Card) {}
func (nopPublisher) ActionApplied(ActionEvent) {}
func (nopPublisher) BoardDealt(string, string, game.Street, []poker.Card) {}
func (nopPublisher) TurnChanged(TurnNotice) {}
func (nopPublisher) HandEnded(*game.HandResult) {}

// Publishers fans events out to several publishers in order.
type Publishers []Publisher

func (ps Publishers) HandStarted(snap game.Snapshot, holeCards map[string][]poker.Card) {
	for _, p := range ps {
		p.HandStarted(snap, holeCards)
	}
}

func (ps Publishers) ActionApplied(ev ActionEvent) {
	for _, p := range ps {
		p.ActionApplied(ev)
	}
}

func (ps Publishers) BoardDealt(tableID, handID string, street game.Street, board []poker.Card) {
	for _, p := range ps {
		p.BoardDealt(tableID, handID, street, board)
	}
}

func (ps Publishers) TurnChanged(notice TurnNotice) {
	for _, p := range ps {
		p.TurnChanged(notice)
	}
}

func (ps Publishers) HandEnded(res *game.HandResult) {
	for _, p := range ps {
		p.HandEnded(res)
	}
}
