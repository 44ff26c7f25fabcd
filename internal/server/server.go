package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

// Server represents the WebSocket server. It delivers table events to the
// connections seated at each table.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	service     *TableService
}

// NewServer creates a new WebSocket server and subscribes it to the
// service's table events.
func NewServer(addr string, logger *log.Logger, service *TableService) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		service:     service,
	}
	return s
}

// Handler returns the HTTP routes and starts the connection loop.
func (s *Server) Handler() http.Handler {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Serve listens until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	_ = s.Stop()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the WebSocket server
func (s *Server) Stop() error {
	s.cancel()

	// Close all connections
	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			delete(s.connections, conn)
			total := len(s.connections)
			s.mu.Unlock()
			if !ok {
				continue
			}

			// The table lock is taken outside s.mu: publishing holds the
			// table lock and then reads the connection set.
			playerID, tableID := conn.GetPlayer(), conn.GetTable()
			if playerID != "" && tableID != "" {
				s.logger.Info("Marking player disconnected", "player", playerID, "table", tableID)
				_ = s.service.SetConnected(tableID, playerID, false) // Ignore errors during cleanup
			}
			_ = conn.Close() // Ignore close errors during unregistration
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.service)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = client.Close()
		return
	}
	client.Start()

	// Connection cleanup is handled by the connection itself
	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// BroadcastToTable sends a message to all connections at a specific table
func (s *Server) BroadcastToTable(tableID string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.GetTable() == tableID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to client", "error", err, "player", conn.GetPlayer())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("Broadcasted message to table", "tableId", tableID, "type", msg.Type, "recipients", count)
}

// SendToPlayer sends a message to a specific player at a table
func (s *Server) SendToPlayer(tableID, playerID string, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetPlayer() == playerID && conn.GetTable() == tableID {
			return conn.SendMessage(msg)
		}
	}

	return fmt.Errorf("player not found: %s", playerID)
}

func (s *Server) broadcast(tableID string, messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		s.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	s.BroadcastToTable(tableID, msg)
}

// HandStarted sends each seated connection the snapshot and its own hole
// cards only.
func (s *Server) HandStarted(snap game.Snapshot, holeCards map[string][]poker.Card) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetTable() != snap.TableID {
			continue
		}
		msg, err := NewMessage(MessageTypeHandStart, HandStartData{
			State:     snap,
			HoleCards: holeCards[conn.GetPlayer()],
		})
		if err != nil {
			s.logger.Error("Failed to create hand start", "error", err)
			return
		}
		_ = conn.SendMessage(msg) // Ignore send errors
	}
}

// ActionApplied broadcasts an action.
func (s *Server) ActionApplied(ev ActionEvent) {
	s.broadcast(ev.TableID, MessageTypePlayerAction, ev)
}

// BoardDealt broadcasts new community cards.
func (s *Server) BoardDealt(tableID, handID string, street game.Street, board []poker.Card) {
	s.broadcast(tableID, MessageTypeStreetChange, StreetChangeData{
		TableID: tableID,
		HandID:  handID,
		Stage:   street.Stage,
		Cards:   street.Cards,
		Board:   board,
	})
}

// TurnChanged tells the table whose turn it is and asks that player to act.
func (s *Server) TurnChanged(notice TurnNotice) {
	public := notice
	public.Options = game.Options{}
	s.broadcast(notice.TableID, MessageTypeTurnChanged, public)

	msg, err := NewMessage(MessageTypeActionRequired, ActionRequiredData{
		TableID:              notice.TableID,
		HandID:               notice.HandID,
		Options:              notice.Options,
		TimeRemainingSeconds: notice.TimeRemainingSeconds,
	})
	if err != nil {
		s.logger.Error("Failed to create action request", "error", err)
		return
	}
	if err := s.SendToPlayer(notice.TableID, notice.PlayerID, msg); err != nil {
		s.logger.Debug("Acting player not connected", "player", notice.PlayerID)
	}
}

// HandEnded broadcasts the result. Reveals are only present when the hand
// went to showdown.
func (s *Server) HandEnded(res *game.HandResult) {
	s.broadcast(res.TableID, MessageTypeHandEnd, res)
}
