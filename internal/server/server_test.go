package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/game"
)

func TestServerHealth(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, 2, p0Aces)
	srv := NewServer("", testLogger(), f.service)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

type wsFixture struct {
	*serviceFixture
	server *Server
	url    string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	f := newServiceFixture(t, 2, p0Aces)
	srv := NewServer("", testLogger(), f.service)
	f.service.SetPublisher(Publishers{f.pub, srv})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop()
		ts.Close()
	})
	return &wsFixture{
		serviceFixture: f,
		server:         srv,
		url:            "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// seat connects a player and joins them to t1.
func (f *wsFixture) seat(t *testing.T, name string) *websocket.Conn {
	t.Helper()
	conn := f.dial(t)
	send(t, conn, MessageTypeAuth, AuthData{PlayerName: name})
	readUntil(t, conn, MessageTypeAuthResponse)
	send(t, conn, MessageTypeJoinTable, JoinTableData{TableID: "t1", BuyIn: 1000})
	readUntil(t, conn, MessageTypeTableJoined)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, messageType MessageType, data any) {
	t.Helper()
	msg, err := NewMessage(messageType, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil skips messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, messageType MessageType) *Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", messageType)
		if msg.Type == messageType {
			return &msg
		}
	}
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}

func TestServerPlaysHandOverWebSocket(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t)
	c0 := f.seat(t, "p0")
	c1 := f.seat(t, "p1")

	require.NoError(t, f.service.StartHand("t1"))

	start0 := decode[HandStartData](t, readUntil(t, c0, MessageTypeHandStart))
	start1 := decode[HandStartData](t, readUntil(t, c1, MessageTypeHandStart))
	require.Len(t, start0.HoleCards, 2)
	require.Len(t, start1.HoleCards, 2)
	assert.Equal(t, "As", start0.HoleCards[0].String())
	assert.Equal(t, "7c", start1.HoleCards[0].String())
	assert.Equal(t, "hand-1", start0.State.HandID)

	req := decode[ActionRequiredData](t, readUntil(t, c0, MessageTypeActionRequired))
	assert.Equal(t, "hand-1", req.HandID)
	assert.True(t, req.Options.Allows(game.Fold))

	turn := decode[TurnNotice](t, readUntil(t, c1, MessageTypeTurnChanged))
	assert.Equal(t, "p0", turn.PlayerID)
	assert.Empty(t, turn.Options.Actions, "other players do not see options")

	send(t, c0, MessageTypePlayerDecision, PlayerDecisionData{TableID: "t1", Action: "fold"})

	ev := decode[ActionEvent](t, readUntil(t, c1, MessageTypePlayerAction))
	for ev.Action != game.Fold {
		ev = decode[ActionEvent](t, readUntil(t, c1, MessageTypePlayerAction))
	}
	assert.Equal(t, "p0", ev.PlayerID)

	for _, c := range []*websocket.Conn{c0, c1} {
		res := decode[game.HandResult](t, readUntil(t, c, MessageTypeHandEnd))
		assert.Equal(t, "hand-1", res.HandID)
		assert.False(t, res.Showdown)
		assert.Empty(t, res.Reveals)
	}
}

func TestServerReportsErrors(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t)
	c0 := f.seat(t, "p0")
	c1 := f.seat(t, "p1")
	require.NoError(t, f.service.StartHand("t1"))
	readUntil(t, c0, MessageTypeActionRequired)

	send(t, c1, MessageTypePlayerDecision, PlayerDecisionData{TableID: "t1", Action: "check"})
	errData := decode[ErrorData](t, readUntil(t, c1, MessageTypeError))
	assert.Equal(t, "not_your_turn", errData.Code)

	send(t, c0, MessageTypePlayerDecision, PlayerDecisionData{TableID: "t1", Action: "check"})
	errData = decode[ErrorData](t, readUntil(t, c0, MessageTypeError))
	assert.Equal(t, "invalid_action", errData.Code)
	assert.Contains(t, errData.Message, "must call or fold")

	send(t, c0, MessageTypePlayerDecision, PlayerDecisionData{TableID: "t1", Action: "dance"})
	errData = decode[ErrorData](t, readUntil(t, c0, MessageTypeError))
	assert.Equal(t, "invalid_action", errData.Code)

	anon := f.dial(t)
	send(t, anon, MessageTypeJoinTable, JoinTableData{TableID: "t1", BuyIn: 1000})
	errData = decode[ErrorData](t, readUntil(t, anon, MessageTypeError))
	assert.Equal(t, "not_authenticated", errData.Code)
}

func TestServerTableStateHidesOtherHoleCards(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t)
	c0 := f.seat(t, "p0")
	f.seat(t, "p1")
	require.NoError(t, f.service.StartHand("t1"))

	msg, err := NewMessage(MessageTypeGetTableState, TableRequestData{TableID: "t1"})
	require.NoError(t, err)
	msg.RequestID = "req-1"
	require.NoError(t, c0.WriteJSON(msg))

	reply := readUntil(t, c0, MessageTypeTableState)
	assert.Equal(t, "req-1", reply.RequestID)
	state := decode[TableStateData](t, reply)
	assert.Equal(t, []string{"As", "Ah"}, state.HoleCards)
	assert.NotContains(t, string(reply.Data), "7c")
}

func TestServerDisconnectKeepsSeat(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t)
	f.seat(t, "p0")
	c1 := f.seat(t, "p1")

	connected := func(id string) bool {
		snap, err := f.service.Snapshot("t1")
		if err != nil {
			return false
		}
		for _, seat := range snap.Seats {
			if seat.PlayerID == id {
				return seat.Connected
			}
		}
		return false
	}

	require.NoError(t, c1.Close())
	require.Eventually(t, func() bool { return !connected("p1") }, 2*time.Second, 10*time.Millisecond)

	snap, err := f.service.Snapshot("t1")
	require.NoError(t, err)
	assert.Len(t, snap.Seats, 2, "a disconnect does not free the seat")

	f.seat(t, "p1")
	assert.Eventually(t, func() bool { return connected("p1") }, 2*time.Second, 10*time.Millisecond)
}

func TestServerListTables(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t)
	conn := f.dial(t)

	send(t, conn, MessageTypeListTables, struct{}{})
	list := decode[TableListData](t, readUntil(t, conn, MessageTypeTableList))
	require.Len(t, list.Tables, 1)
	assert.Equal(t, "t1", list.Tables[0].ID)
	assert.Equal(t, 100, list.Tables[0].BuyInMin)
}
