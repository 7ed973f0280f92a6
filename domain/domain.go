package domain

import "encoding/json"

// Client -> server event names.
const (
	EventUserJoin    = "user_join"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventMessageRead = "message_read"
	EventJoinRoom    = "join_room"
	EventPing        = "ping"
)

// Server -> client event names.
const (
	EventReceiveMessage = "receive_message"
	EventSystemMessage  = "system_message"
	EventUpdateUsers    = "update_users"
	EventReadAck        = "message_read_ack"
	EventPong           = "pong"
)

// Envelope frames every event on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}

type OutgoingMessage struct {
	Message json.RawMessage `json:"message"`
	To      string          `json:"to,omitempty"`
	Room    string          `json:"room,omitempty"`
	Type    string          `json:"type,omitempty"`
}

type ChatMessage struct {
	Sender    string          `json:"sender"`
	Message   json.RawMessage `json:"message"`
	Timestamp int64           `json:"timestamp"`
	Type      string          `json:"type,omitempty"`
}

type SystemNotice struct {
	Message string `json:"message"`
}

type TypingState struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ReadRequest struct {
	Sender string `json:"sender,omitempty"`
}

type ReadAck struct {
	Reader    string `json:"reader"`
	Timestamp int64  `json:"timestamp"`
}

type PingPayload struct {
	Timestamp int64  `json:"timestamp"`
	ClientID  string `json:"clientId,omitempty"`
}

// Member is one entry in a presence snapshot.
type Member struct {
	ConnID   string `json:"id"`
	Identity string `json:"username"`
}

type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Directory tracks which identity and room each live connection carries.
// Every mutation is atomic with respect to other mutations and to snapshots.
type Directory interface {
	Register(conn Connection, identity, room string)
	Identity(connID string) (string, bool)
	Room(connID string) (string, bool)
	Switch(connID, room string) (old string, ok bool)
	Unregister(connID string) (identity, room string, ok bool)

	MembersOf(room string) []Member
	ConnectionsIn(room string) []Connection
	ConnectionsFor(identity string) []Connection
	Connection(connID string) (Connection, bool)
	All() []Connection
	Stats() (rooms, clients int)
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
	Disconnect(conn Connection)
}
