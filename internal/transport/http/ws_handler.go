package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"quiz-poll-bot/internal/app"

	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *Hub
	engine   *app.Engine
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, engine *app.Engine, log *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		engine: engine,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Count int `json:"count"`
}

type answerPayload struct {
	PollID string `json:"pollId"`
	Option int    `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz engine.
// The chat is identified by the chatId query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chatId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid chatId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := newClient(conn)
	h.hub.attach(chatID, c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "chat_id", chatID, "err", err)
				return
			}
		}
	}()

	// engine calls outlive the request context; answers may arrive after the
	// upgrade handshake's context is done
	ctx := context.WithoutCancel(r.Context())
	h.readLoop(ctx, conn, chatID, c)

	if h.hub.detach(chatID, c) {
		_ = h.engine.Stop(ctx, chatID)
	}
	c.close()
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, chatID int64, c *client) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.protocolError(c, "invalid start payload")
				continue
			}
			if err := h.engine.Start(ctx, chatID, payload.Count); err != nil {
				h.notice(c, app.DescribeError(err))
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.protocolError(c, "invalid answer payload")
				continue
			}
			h.engine.HandleAnswer(ctx, payload.PollID, payload.Option)
		case "next":
			if err := h.engine.Resume(ctx, chatID); err != nil {
				h.notice(c, app.DescribeError(err))
			}
		case "stop":
			if err := h.engine.Stop(ctx, chatID); err != nil {
				h.notice(c, app.DescribeError(err))
				continue
			}
			h.notice(c, app.StoppedText)
		default:
			h.protocolError(c, "unsupported message type")
		}
	}
}

func (h *WSHandler) notice(c *client, text string) {
	_ = c.push(outboundMessage[any]{Type: "message", Payload: messagePayload{Text: text}})
}

func (h *WSHandler) protocolError(c *client, message string) {
	_ = c.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
}
