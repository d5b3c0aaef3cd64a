package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 4096
)

// Client represents a websocket client connection.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger
	mu   sync.Mutex
}

// NewClient constructs a client wrapper.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{conn: conn, log: logger}
}

// Send writes a message to the websocket connection.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", "error", err)
		_ = c.conn.Close()
		return err
	}
	return nil
}

// Close terminates the connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Client) keepalive(stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// inbound is a frame sent by the browser or CLI.
type inbound struct {
	Event domain.EventType `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

// projectID accepts both a bare string and {"projectId": "..."}.
func (f inbound) projectID() string {
	var id string
	if err := json.Unmarshal(f.Data, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ProjectID string `json:"projectId"`
	}
	_ = json.Unmarshal(f.Data, &obj)
	return strings.TrimSpace(obj.ProjectID)
}

// Serve registers conn for userID and handles its frames until the
// connection closes or the hub stops.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID string) {
	client := NewClient(conn, h.log)
	if !h.Connect(userID, client) {
		client.Close()
		return
	}
	defer h.Disconnect(userID, client)

	stop := make(chan struct{})
	defer close(stop)
	go client.keepalive(stop)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "user_id", userID, "error", err)
			}
			return
		}
		var frame inbound
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(client, "Malformed frame")
			continue
		}
		h.handle(ctx, userID, client, frame)
	}
}

func (h *Hub) handle(ctx context.Context, userID string, client Subscriber, frame inbound) {
	switch frame.Event {
	case domain.EventJoinProject:
		projectID := frame.projectID()
		if err := h.Join(ctx, userID, projectID, client); err != nil {
			var derr *domain.Error
			if errors.As(err, &derr) {
				h.reply(client, derr.Message)
				return
			}
			h.log.Error("join project failed", "user_id", userID, "project_id", projectID, "error", err)
			h.reply(client, "Unable to join project")
			return
		}
		h.log.Info("user joined project", "user_id", userID, "project_id", projectID)
	case domain.EventLeaveProject:
		projectID := frame.projectID()
		h.Leave(projectID, client)
		h.log.Info("user left project", "user_id", userID, "project_id", projectID)
	case domain.EventUserPresence:
		var p domain.Presence
		_ = json.Unmarshal(frame.Data, &p)
		p.UserID = userID
		payload, err := json.Marshal(domain.Event{Type: domain.EventUserPresence, Data: p})
		if err != nil {
			return
		}
		h.enqueue(message{payload: payload, except: client})
	default:
		h.reply(client, "Unsupported event")
	}
}

func (h *Hub) reply(client Subscriber, msg string) {
	payload, err := json.Marshal(domain.Event{Type: domain.EventError, Data: map[string]string{"message": msg}})
	if err != nil {
		return
	}
	_ = client.Send(payload)
}
