package http

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	errNotConnected = errors.New("chat has no open websocket")
	errSlowClient   = errors.New("websocket client is not reading")
)

// Hub is an app.PresetGateway that delivers polls to websocket clients, one
// per chat. Poll IDs are chosen locally since no upstream platform assigns them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]*client)}
}

type pollPayload struct {
	PollID   string   `json:"pollId"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type messagePayload struct {
	Text string `json:"text"`
}

func (h *Hub) SendPoll(ctx context.Context, chatID int64, question string, options []string, correctIndex int) (string, error) {
	pollID := uuid.NewString()
	if err := h.SendPollAs(ctx, pollID, chatID, question, options, correctIndex); err != nil {
		return "", err
	}
	return pollID, nil
}

// SendPollAs delivers a poll under an ID chosen by the engine, which has
// already registered it.
func (h *Hub) SendPollAs(_ context.Context, pollID string, chatID int64, question string, options []string, _ int) error {
	c, ok := h.client(chatID)
	if !ok {
		return errNotConnected
	}
	return c.push(outboundMessage[any]{Type: "poll", Payload: pollPayload{
		PollID:   pollID,
		Question: question,
		Options:  options,
	}})
}

func (h *Hub) SendMessage(_ context.Context, chatID int64, text string) error {
	c, ok := h.client(chatID)
	if !ok {
		return errNotConnected
	}
	return c.push(outboundMessage[any]{Type: "message", Payload: messagePayload{Text: text}})
}

func (h *Hub) client(chatID int64) (*client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[chatID]
	return c, ok
}

// attach makes c the chat's connection and disconnects whichever one it
// replaces, so a superseded socket can no longer drive the chat.
func (h *Hub) attach(chatID int64, c *client) {
	h.mu.Lock()
	old := h.clients[chatID]
	h.clients[chatID] = c
	h.mu.Unlock()
	if old != nil {
		old.close()
		if old.conn != nil {
			_ = old.conn.Close()
		}
	}
}

// detach removes c if it is still the chat's connection.
func (h *Hub) detach(chatID int64, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[chatID] != c {
		return false
	}
	delete(h.clients, chatID)
	return true
}

// client owns the outbound queue of one connection; a single writer
// goroutine drains it so the socket never sees concurrent writes.
type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan outboundMessage[any]
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan outboundMessage[any], 16)}
}

func (c *client) push(msg outboundMessage[any]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errNotConnected
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSlowClient
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
