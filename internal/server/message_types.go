package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeAuth           MessageType = "auth"
	MessageTypeJoinTable      MessageType = "join_table"
	MessageTypeLeaveTable     MessageType = "leave_table"
	MessageTypeListTables     MessageType = "list_tables"
	MessageTypePlayerDecision MessageType = "player_decision"
	MessageTypeSitOut         MessageType = "sit_out"
	MessageTypeSitIn          MessageType = "sit_in"
	MessageTypeGetTableState  MessageType = "get_table_state"

	// Server to client messages
	MessageTypeAuthResponse   MessageType = "auth_response"
	MessageTypeError          MessageType = "error"
	MessageTypeTableList      MessageType = "table_list"
	MessageTypeTableJoined    MessageType = "table_joined"
	MessageTypeTableLeft      MessageType = "table_left"
	MessageTypeTableState     MessageType = "table_state"
	MessageTypeHandStart      MessageType = "hand_start"
	MessageTypePlayerAction   MessageType = "player_action"
	MessageTypeStreetChange   MessageType = "street_change"
	MessageTypeTurnChanged    MessageType = "turn_changed"
	MessageTypeActionRequired MessageType = "action_required"
	MessageTypeHandEnd        MessageType = "hand_end"
	MessageTypeAck            MessageType = "ack"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
