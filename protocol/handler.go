package protocol

import (
	"encoding/json"
	"log/slog"
	"time"

	"driftchat-server/domain"
	"driftchat-server/metrics"
	"driftchat-server/receipt"
	"driftchat-server/typing"
)

// Handler decodes client events and drives the registry, the typing tracker,
// and the read-receipt ledger. Delivery is best-effort at-most-once: sends to
// gone or slow connections are dropped, never retried, and never abort the
// rest of a fan-out.
type Handler struct {
	dir      domain.Directory
	typing   *typing.Tracker
	receipts *receipt.Ledger
}

func NewHandler(dir domain.Directory, tracker *typing.Tracker, ledger *receipt.Ledger) *Handler {
	return &Handler{dir: dir, typing: tracker, receipts: ledger}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("invalid frame", "clientId", conn.ID(), "error", err)
		metrics.EventsDropped.Inc()
		return
	}

	switch env.Event {
	case domain.EventUserJoin:
		h.handleJoin(conn, env.Data)
	case domain.EventSendMessage:
		h.handleSend(conn, env.Data)
	case domain.EventTyping:
		h.handleTyping(conn, env.Data)
	case domain.EventMessageRead:
		h.handleRead(conn, env.Data)
	case domain.EventJoinRoom:
		h.handleJoinRoom(conn, env.Data)
	case domain.EventPing:
		h.handlePing(conn, env.Data)
	default:
		slog.Debug("unknown event", "clientId", conn.ID(), "event", env.Event)
		metrics.EventsDropped.Inc()
	}
}

// Disconnect runs the same cleanup as an explicit leave. Safe to call for a
// connection that never joined, and safe to call twice.
func (h *Handler) Disconnect(conn domain.Connection) {
	identity, room, ok := h.dir.Unregister(conn.ID())
	if !ok {
		return
	}
	if room != "" {
		h.notifyRoom(room, identity+" left the chat.", conn.ID())
		h.publishPresence(room)
	}
}

func (h *Handler) handleJoin(conn domain.Connection, data []byte) {
	var req domain.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Warn("invalid join payload", "clientId", conn.ID(), "error", err)
		metrics.EventsDropped.Inc()
		return
	}

	// Identity is accepted as-is, empty included. Validation is out of scope.
	h.dir.Register(conn, req.Username, req.Room)
	if req.Room != "" {
		h.notifyRoom(req.Room, req.Username+" has joined the chat.", conn.ID())
		h.publishPresence(req.Room)
	}
}

func (h *Handler) handleSend(conn domain.Connection, data []byte) {
	sender, ok := h.dir.Identity(conn.ID())
	if !ok {
		slog.Debug("send before join dropped", "clientId", conn.ID())
		metrics.EventsDropped.Inc()
		return
	}

	var req domain.OutgoingMessage
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Warn("invalid send payload", "clientId", conn.ID(), "error", err)
		metrics.EventsDropped.Inc()
		return
	}

	msg := domain.ChatMessage{
		Sender:    sender,
		Message:   req.Message,
		Timestamp: time.Now().UnixMilli(),
		Type:      req.Type,
	}
	frame, err := marshalEvent(domain.EventReceiveMessage, msg)
	if err != nil {
		slog.Error("marshal message", "clientId", conn.ID(), "error", err)
		return
	}

	// Target precedence: direct beats room beats global.
	switch {
	case req.To != "":
		if target, found := h.dir.Connection(req.To); found {
			h.send(target, frame)
		}
		// The recipient may not share a room with the sender, so the
		// sender gets an explicit echo of its own message.
		h.send(conn, frame)
		metrics.MessagesRouted.WithLabelValues("direct").Inc()
	case req.Room != "":
		for _, c := range h.dir.ConnectionsIn(req.Room) {
			h.send(c, frame)
		}
		metrics.MessagesRouted.WithLabelValues("room").Inc()
	default:
		for _, c := range h.dir.All() {
			h.send(c, frame)
		}
		metrics.MessagesRouted.WithLabelValues("global").Inc()
	}
}

func (h *Handler) handleTyping(conn domain.Connection, data []byte) {
	identity, ok := h.dir.Identity(conn.ID())
	if !ok {
		metrics.EventsDropped.Inc()
		return
	}
	room, ok := h.dir.Room(conn.ID())
	if !ok {
		// Typing is room-scoped: without a room there is no audience.
		return
	}

	var isTyping bool
	if err := json.Unmarshal(data, &isTyping); err != nil {
		slog.Warn("invalid typing payload", "clientId", conn.ID(), "error", err)
		metrics.EventsDropped.Inc()
		return
	}

	h.typing.Set(room, identity, isTyping)

	frame, err := marshalEvent(domain.EventTyping, domain.TypingState{Username: identity, IsTyping: isTyping})
	if err != nil {
		slog.Error("marshal typing", "clientId", conn.ID(), "error", err)
		return
	}
	// Never echoed to the typer's own connection.
	for _, c := range h.dir.ConnectionsIn(room) {
		if c.ID() == conn.ID() {
			continue
		}
		h.send(c, frame)
	}
}

func (h *Handler) handleRead(conn domain.Connection, data []byte) {
	reader, ok := h.dir.Identity(conn.ID())
	if !ok {
		metrics.EventsDropped.Inc()
		return
	}

	var req domain.ReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Warn("invalid read payload", "clientId", conn.ID(), "error", err)
		metrics.EventsDropped.Inc()
		return
	}

	entry := h.receipts.Append(reader, time.Now().UnixMilli())
	frame, err := marshalEvent(domain.EventReadAck, domain.ReadAck{Reader: entry.Reader, Timestamp: entry.Timestamp})
	if err != nil {
		slog.Error("marshal read ack", "clientId", conn.ID(), "error", err)
		return
	}

	if req.Sender != "" {
		for _, c := range h.dir.ConnectionsFor(req.Sender) {
			h.send(c, frame)
		}
		return
	}
	for _, c := range h.dir.All() {
		if c.ID() == conn.ID() {
			continue
		}
		h.send(c, frame)
	}
}

func (h *Handler) handleJoinRoom(conn domain.Connection, data []byte) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		slog.Warn("invalid room payload", "clientId", conn.ID(), "error", err)
		metrics.EventsDropped.Inc()
		return
	}

	old, ok := h.dir.Switch(conn.ID(), room)
	if !ok {
		slog.Debug("room switch before join dropped", "clientId", conn.ID())
		metrics.EventsDropped.Inc()
		return
	}

	h.notify(conn, "You joined room "+room)
	if old != "" && old != room {
		h.publishPresence(old)
	}
	if room != "" {
		h.publishPresence(room)
	}
}

func (h *Handler) handlePing(conn domain.Connection, data []byte) {
	var ping domain.PingPayload
	if err := json.Unmarshal(data, &ping); err != nil {
		slog.Warn("invalid ping payload", "clientId", conn.ID(), "error", err)
		return
	}
	frame, err := marshalEvent(domain.EventPong, domain.PingPayload{Timestamp: ping.Timestamp, ClientID: conn.ID()})
	if err != nil {
		return
	}
	h.send(conn, frame)
}

// publishPresence recomputes the member snapshot of a room and emits it to
// every member.
func (h *Handler) publishPresence(room string) {
	members := h.dir.MembersOf(room)
	frame, err := marshalEvent(domain.EventUpdateUsers, members)
	if err != nil {
		slog.Error("marshal presence", "room", room, "error", err)
		return
	}
	for _, c := range h.dir.ConnectionsIn(room) {
		h.send(c, frame)
	}
}

func (h *Handler) notifyRoom(room, text, exceptID string) {
	frame, err := marshalEvent(domain.EventSystemMessage, domain.SystemNotice{Message: text})
	if err != nil {
		slog.Error("marshal notice", "room", room, "error", err)
		return
	}
	for _, c := range h.dir.ConnectionsIn(room) {
		if c.ID() == exceptID {
			continue
		}
		h.send(c, frame)
	}
}

func (h *Handler) notify(conn domain.Connection, text string) {
	frame, err := marshalEvent(domain.EventSystemMessage, domain.SystemNotice{Message: text})
	if err != nil {
		slog.Error("marshal notice", "clientId", conn.ID(), "error", err)
		return
	}
	h.send(conn, frame)
}

func (h *Handler) send(conn domain.Connection, frame []byte) {
	if err := conn.Send(frame); err != nil {
		slog.Debug("send dropped", "clientId", conn.ID(), "error", err)
		metrics.EventsDropped.Inc()
	}
}

func marshalEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(domain.Envelope{Event: event, Data: data})
}
