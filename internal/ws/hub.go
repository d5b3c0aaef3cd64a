package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/service/access"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// ProjectAccess decides whether a user may watch a project room.
type ProjectAccess interface {
	ProjectForRead(ctx context.Context, requesterID, projectID string) (access.Standing, error)
}

const publishBuffer = 256

// Hub routes events to rooms. Every connection sits in its user's room and
// in any project rooms it joined.
type Hub struct {
	log    *slog.Logger
	access ProjectAccess
	now    func() time.Time

	rooms  map[string]map[Subscriber]struct{}
	conns  map[Subscriber]string
	online map[string]int

	register  chan connection
	unreg     chan connection
	join      chan subscription
	leave     chan subscription
	broadcast chan message
	done      chan struct{}
}

type connection struct {
	userID string
	client Subscriber
}

type subscription struct {
	room   string
	client Subscriber
}

// message couples payload with its room. An empty room reaches every connection.
// Connections of evict are taken out of the room before delivery.
type message struct {
	room    string
	payload []byte
	except  Subscriber
	evict   string
}

// NewHub creates a Hub. Run must be started before clients connect.
func NewHub(access ProjectAccess, logger *slog.Logger) *Hub {
	return &Hub{
		log:       logger,
		access:    access,
		now:       time.Now,
		rooms:     make(map[string]map[Subscriber]struct{}),
		conns:     make(map[Subscriber]string),
		online:    make(map[string]int),
		register:  make(chan connection),
		unreg:     make(chan connection),
		join:      make(chan subscription),
		leave:     make(chan subscription),
		broadcast: make(chan message, publishBuffer),
		done:      make(chan struct{}),
	}
}

// Run processes hub traffic until ctx ends, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.conns {
				c.Close()
			}
			return nil
		case conn := <-h.register:
			h.conns[conn.client] = conn.userID
			h.add(userRoom(conn.userID), conn.client)
			h.online[conn.userID]++
			if h.online[conn.userID] == 1 {
				h.presence(conn.client, domain.Presence{UserID: conn.userID, IsOnline: true})
			}
		case conn := <-h.unreg:
			h.drop(conn.client)
		case sub := <-h.join:
			if _, ok := h.conns[sub.client]; ok {
				h.add(sub.room, sub.client)
			}
		case sub := <-h.leave:
			h.remove(sub.room, sub.client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Connect registers client for userID and announces the user as online.
func (h *Hub) Connect(userID string, client Subscriber) bool {
	select {
	case h.register <- connection{userID: userID, client: client}:
		return true
	case <-h.done:
		return false
	}
}

// Disconnect removes client from every room and closes it.
func (h *Hub) Disconnect(userID string, client Subscriber) {
	select {
	case h.unreg <- connection{userID: userID, client: client}:
	case <-h.done:
	}
}

// Join adds client to a project room after checking userID may read the project.
func (h *Hub) Join(ctx context.Context, userID, projectID string, client Subscriber) error {
	if h.access == nil {
		return errors.New("ws: project rooms unavailable")
	}
	if _, err := h.access.ProjectForRead(ctx, userID, projectID); err != nil {
		return err
	}
	select {
	case h.join <- subscription{room: projectRoom(projectID), client: client}:
	case <-h.done:
	}
	return nil
}

// Leave removes client from a project room.
func (h *Hub) Leave(projectID string, client Subscriber) {
	select {
	case h.leave <- subscription{room: projectRoom(projectID), client: client}:
	case <-h.done:
	}
}

// Publish delivers event to its project and user rooms. It never blocks;
// events are dropped when the hub is saturated or stopped.
func (h *Hub) Publish(event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("encode event failed", "event", event.Type, "error", err)
		return
	}
	if event.ProjectID != "" {
		h.enqueue(message{room: projectRoom(event.ProjectID), payload: payload, evict: event.EvictUserID})
	}
	if event.UserID != "" {
		h.enqueue(message{room: userRoom(event.UserID), payload: payload})
	}
}

func (h *Hub) enqueue(msg message) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("event dropped", "room", msg.room)
	}
}

func (h *Hub) presence(from Subscriber, p domain.Presence) {
	payload, err := json.Marshal(domain.Event{Type: domain.EventUserPresence, Data: p})
	if err != nil {
		h.log.Error("encode presence failed", "error", err)
		return
	}
	h.deliver(message{payload: payload, except: from})
}

func (h *Hub) deliver(msg message) {
	if msg.evict != "" {
		h.evict(msg.room, msg.evict)
	}
	targets := h.rooms[msg.room]
	if msg.room == "" {
		targets = make(map[Subscriber]struct{}, len(h.conns))
		for c := range h.conns {
			targets[c] = struct{}{}
		}
	}
	var failed []Subscriber
	for c := range targets {
		if c == msg.except {
			continue
		}
		if err := c.Send(msg.payload); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.drop(c)
	}
}

func (h *Hub) drop(client Subscriber) {
	userID, ok := h.conns[client]
	if !ok {
		return
	}
	delete(h.conns, client)
	for room := range h.rooms {
		h.remove(room, client)
	}
	client.Close()

	h.online[userID]--
	if h.online[userID] > 0 {
		return
	}
	delete(h.online, userID)
	lastSeen := h.now().UTC()
	h.presence(nil, domain.Presence{UserID: userID, IsOnline: false, LastSeen: &lastSeen})
}

// evict removes every connection of userID from room.
func (h *Hub) evict(room, userID string) {
	for c := range h.rooms[room] {
		if h.conns[c] == userID {
			h.remove(room, c)
		}
	}
}

func (h *Hub) add(room string, client Subscriber) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[Subscriber]struct{})
	}
	h.rooms[room][client] = struct{}{}
}

func (h *Hub) remove(room string, client Subscriber) {
	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
}

func userRoom(userID string) string { return "user:" + userID }

func projectRoom(projectID string) string { return "project:" + projectID }
