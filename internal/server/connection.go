package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/pokertable/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	address   string
	tableID   string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *TableService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, service *TableService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			// Log at debug level to avoid spam during tests
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// GetTable returns the associated table ID
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = errors.New("connection closed")
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeListTables:
		c.reply(msg, MessageTypeTableList, TableListData{Tables: c.service.ListTables()})

	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join table data")
			return
		}
		c.handleJoinTable(msg, data)

	case MessageTypeLeaveTable, MessageTypeSitOut, MessageTypeSitIn, MessageTypeGetTableState:
		var data TableRequestData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse table request")
			return
		}
		c.handleTableRequest(msg, data)

	case MessageTypePlayerDecision:
		var data PlayerDecisionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse player decision data")
			return
		}
		c.handlePlayerDecision(msg, data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) sendFailure(err error) {
	c.sendError(errorCode(err), game.Reason(err))
}

// reply sends a response carrying the request's id.
func (c *Connection) reply(req *Message, messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	msg.RequestID = req.RequestID
	_ = c.SendMessage(msg) // Ignore send errors
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	// Simple authentication - just accept any player name
	if data.PlayerName == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	c.mu.Lock()
	c.playerID = data.PlayerName
	c.address = data.Address
	c.mu.Unlock()

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerName,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleJoinTable(req *Message, data JoinTableData) {
	c.logger.Info("Join table request", "tableId", data.TableID, "player", c.GetPlayer())

	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	if current := c.GetTable(); current != "" {
		c.sendError("already_seated", "Already seated at "+current)
		return
	}

	seat := -1
	if data.SeatNumber != nil {
		seat = *data.SeatNumber
	}
	c.mu.RLock()
	address := c.address
	c.mu.RUnlock()

	// Set the table first so the hand start that may follow reaches us.
	c.SetTable(data.TableID)
	snap, err := c.service.Join(data.TableID, playerID, address, seat, data.BuyIn)
	if errors.Is(err, game.ErrAlreadySeated) {
		// Reconnecting to a seat kept from an earlier connection.
		if err = c.service.SetConnected(data.TableID, playerID, true); err == nil {
			snap, err = c.service.Snapshot(data.TableID)
		}
	}
	if err != nil {
		c.SetTable("")
		c.sendFailure(err)
		return
	}

	seatNumber := -1
	for _, sv := range snap.Seats {
		if sv.PlayerID == playerID {
			seatNumber = sv.Seat
		}
	}
	c.reply(req, MessageTypeTableJoined, TableJoinedData{
		TableID:    data.TableID,
		SeatNumber: seatNumber,
		State:      snap,
	})
}

func (c *Connection) handleTableRequest(req *Message, data TableRequestData) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	var err error
	switch req.Type {
	case MessageTypeLeaveTable:
		if err = c.service.Leave(data.TableID, playerID); err == nil {
			c.SetTable("")
			c.reply(req, MessageTypeTableLeft, TableRequestData{TableID: data.TableID})
			return
		}
	case MessageTypeSitOut:
		err = c.service.SitOut(data.TableID, playerID)
	case MessageTypeSitIn:
		err = c.service.SitIn(data.TableID, playerID)
	case MessageTypeGetTableState:
		var state TableStateData
		if state.State, err = c.service.Snapshot(data.TableID); err == nil {
			state.HoleCards, err = c.service.HoleCards(data.TableID, playerID)
		}
		if err == nil {
			c.reply(req, MessageTypeTableState, state)
			return
		}
	}
	if err != nil {
		c.sendFailure(err)
		return
	}
	c.reply(req, MessageTypeAck, AckData{Request: req.Type})
}

func (c *Connection) handlePlayerDecision(req *Message, data PlayerDecisionData) {
	c.logger.Debug("Player decision", "player", c.GetPlayer(), "action", data.Action, "amount", data.Amount)

	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	action, err := game.ParseAction(data.Action)
	if err != nil {
		c.sendFailure(err)
		return
	}
	if err := c.service.Act(data.TableID, playerID, action, data.Amount); err != nil {
		c.sendFailure(err)
		return
	}
	// No response needed - the table publishes the action to everyone
}
