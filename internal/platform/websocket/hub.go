// Package websocket provides real-time delivery of chat messages and care
// notifications. Clients connect once, subscribe to topics (a support thread,
// a doctor's schedule), and receive events broadcast to those topics.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medhub/medhub/internal/platform/auth"
)

// Event types pushed over the wire.
const (
	EventChatMessage          = "chat.message"
	EventChatThreadClosed     = "chat.thread_closed"
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentCancelled = "appointment.cancelled"
)

// ChatTopic returns the subscription topic for a support thread.
func ChatTopic(threadID uuid.UUID) string {
	return "chat." + threadID.String()
}

// DoctorTopic returns the subscription topic for a doctor's schedule changes.
func DoctorTopic(doctorID uuid.UUID) string {
	return "doctor." + doctorID.String()
}

// ParseChatTopic extracts the thread ID from a chat topic, reporting false
// for topics of any other shape.
func ParseChatTopic(topic string) (uuid.UUID, bool) {
	return parseTopic(topic, "chat.")
}

// ParseDoctorTopic extracts the doctor ID from a doctor topic.
func ParseDoctorTopic(topic string) (uuid.UUID, bool) {
	return parseTopic(topic, "doctor.")
}

func parseTopic(topic, prefix string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Event is a real-time notification sent to subscribed clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound control message from a connected client.
type ClientMessage struct {
	Action string   `json:"action"` // "subscribe" or "unsubscribe"
	Topics []string `json:"topics"`
}

// EventPublisher is implemented by the Hub and consumed by services that
// need to push events without knowing about connection management.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// TopicAuthorizer decides whether an account may subscribe to a topic.
type TopicAuthorizer interface {
	CanSubscribe(ctx context.Context, accountID uuid.UUID, role, topic string) bool
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a single connected WebSocket session, carrying the identity the
// auth middleware established for the upgrading request.
type Client struct {
	ID        string
	AccountID uuid.UUID
	Role      string
	Topics    []string
	Send      chan []byte
	hub       *Hub
	conn      Conn
}

// Hub tracks connected clients and their topic subscriptions. All operations
// are safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}
	all         map[*Client]struct{}
	authorizer  TopicAuthorizer // nil allows every subscription
	logger      zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Client]struct{}),
		all:         make(map[*Client]struct{}),
		logger:      logger,
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.subscribers[topic] == nil {
			h.subscribers[topic] = make(map[*Client]struct{})
		}
		h.subscribers[topic][client] = struct{}{}
	}
}

// Unregister removes a client from all topics and closes its Send channel.
// Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, topic := range client.Topics {
		if subs, ok := h.subscribers[topic]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscribers, topic)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)
}

// Subscribe adds topics to an already-registered client.
func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		if h.subscribers[topic] == nil {
			h.subscribers[topic] = make(map[*Client]struct{})
		}
		h.subscribers[topic][client] = struct{}{}
	}
	client.Topics = append(client.Topics, topics...)
}

// Unsubscribe removes topics from an already-registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	drop := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		drop[t] = struct{}{}
	}

	for _, topic := range topics {
		if subs, ok := h.subscribers[topic]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscribers, topic)
			}
		}
	}

	kept := make([]string, 0, len(client.Topics))
	for _, t := range client.Topics {
		if _, rm := drop[t]; !rm {
			kept = append(kept, t)
		}
	}
	client.Topics = kept
}

// SetAuthorizer installs the subscription gate. Wired after construction
// because the authorizer's service depends on the hub as its publisher.
func (h *Hub) SetAuthorizer(a TopicAuthorizer) {
	h.authorizer = a
}

// ProcessMessage dispatches an inbound control message. Subscriptions the
// authorizer denies are dropped; the rest of the batch still applies.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		topics := msg.Topics
		if h.authorizer != nil {
			topics = make([]string, 0, len(msg.Topics))
			for _, topic := range msg.Topics {
				if h.authorizer.CanSubscribe(context.Background(), client.AccountID, client.Role, topic) {
					topics = append(topics, topic)
					continue
				}
				h.logger.Warn().
					Str("client", client.ID).
					Str("account_id", client.AccountID.String()).
					Str("topic", topic).
					Msg("subscription denied")
			}
		}
		if len(topics) > 0 {
			h.Subscribe(client, topics)
		}
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

// Broadcast sends an event to every client subscribed to the given topic.
// Slow clients with a full buffer are skipped rather than blocked on.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.subscribers[topic] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// Publish implements EventPublisher by broadcasting to the event's topic.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin checks are handled by the CORS layer
	},
}

// Handler upgrades HTTP connections to WebSocket and pumps messages.
type Handler struct {
	hub *Hub
}

// NewHandler creates a handler bound to the given hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the WebSocket endpoint on the provided group.
func (wh *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wh.HandleConnect)
}

// HandleConnect upgrades the connection, registers the client under the
// caller's authenticated identity, and starts the read and write pumps.
func (wh *Handler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	client := &Client{
		ID:        uuid.New().String(),
		AccountID: auth.AccountIDFromContext(ctx),
		Role:      auth.RoleFromContext(ctx),
		Topics:    []string{},
		Send:      make(chan []byte, 256),
		hub:       wh.hub,
		conn:      &gorillaConn{ws},
	}

	wh.hub.Register(client)

	go wh.writePump(client)
	go wh.readPump(client)

	return nil
}

func (wh *Handler) readPump(client *Client) {
	defer func() {
		wh.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // ignore malformed messages
		}
		wh.hub.ProcessMessage(client, msg)
	}
}

func (wh *Handler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

type gorillaConn struct {
	conn *gorillawebsocket.Conn
}

func (g *gorillaConn) ReadMessage() (int, []byte, error) {
	return g.conn.ReadMessage()
}

func (g *gorillaConn) WriteMessage(messageType int, data []byte) error {
	return g.conn.WriteMessage(messageType, data)
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}
