package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
	Address    string `json:"address,omitempty"` // custodial wallet, optional
}

type JoinTableData struct {
	TableID    string `json:"tableId"`
	SeatNumber *int   `json:"seatNumber,omitempty"`
	BuyIn      int    `json:"buyIn"`
}

type TableRequestData struct {
	TableID string `json:"tableId"`
}

type PlayerDecisionData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AckData struct {
	Request MessageType `json:"request"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type TableJoinedData struct {
	TableID    string        `json:"tableId"`
	SeatNumber int           `json:"seatNumber"`
	State      game.Snapshot `json:"state"`
}

type TableStateData struct {
	State     game.Snapshot `json:"state"`
	HoleCards []string      `json:"holeCards,omitempty"` // only the recipient's
}

type HandStartData struct {
	State     game.Snapshot `json:"state"`
	HoleCards []poker.Card  `json:"holeCards,omitempty"` // only the recipient's
}

type StreetChangeData struct {
	TableID string       `json:"tableId"`
	HandID  string       `json:"handId"`
	Stage   game.Stage   `json:"stage"`
	Cards   []poker.Card `json:"cards"`
	Board   []poker.Card `json:"board"`
}

type ActionRequiredData struct {
	TableID              string       `json:"tableId"`
	HandID               string       `json:"handId"`
	Options              game.Options `json:"options"`
	TimeRemainingSeconds int          `json:"timeRemainingSeconds"`
}

// errorCode maps service and engine errors to client codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrTableBusy):
		return "table_busy"
	case errors.Is(err, ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, ErrInvalidBuyIn):
		return "invalid_buy_in"
	default:
		return game.Code(err)
	}
}
