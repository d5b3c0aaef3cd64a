package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/service/access"
)

type fakeSub struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeSub() *fakeSub {
	return &fakeSub{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeSub) Send(payload []byte) error {
	select {
	case f.frames <- payload:
		return nil
	default:
		return errors.New("buffer full")
	}
}

func (f *fakeSub) Close() {
	f.once.Do(func() { close(f.closed) })
}

type fakeAccess map[string]map[string]bool

func (a fakeAccess) ProjectForRead(_ context.Context, requesterID, projectID string) (access.Standing, error) {
	if a[projectID][requesterID] {
		return access.Standing{Project: domain.Project{ID: projectID}, Member: true}, nil
	}
	return access.Standing{}, domain.AuthorizationError(domain.MsgProjectNotFound)
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func nextFrame(t *testing.T, sub *fakeSub) frame {
	t.Helper()
	select {
	case payload := <-sub.frames:
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for frame")
	}
	return frame{}
}

func startHub(t *testing.T, acl fakeAccess) (*Hub, func()) {
	t.Helper()
	hub := NewHub(acl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	return hub, func() {
		cancel()
		<-done
	}
}

func TestPublishRoutesToRooms(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, stop := startHub(t, fakeAccess{"p1": {"alice": true}})
	defer stop()

	alice, bob := newFakeSub(), newFakeSub()
	hub.Connect("alice", alice)
	hub.Connect("bob", bob)
	if f := nextFrame(t, alice); f.Event != string(domain.EventUserPresence) || !strings.Contains(string(f.Data), `"userId":"bob"`) {
		t.Fatalf("expected bob online presence, got %+v", f)
	}

	if err := hub.Join(context.Background(), "alice", "p1", alice); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := hub.Join(context.Background(), "bob", "p1", bob); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected bob join refused, got %v", err)
	}

	hub.Publish(domain.Event{Type: domain.EventTaskUpdated, ProjectID: "p1", Data: domain.TaskChange{Action: domain.ActionUpdated, TaskID: "t1"}})
	hub.Publish(domain.Event{Type: domain.EventNotification, UserID: "bob", Data: domain.Notification{Kind: "task_assigned"}})

	if f := nextFrame(t, alice); f.Event != string(domain.EventTaskUpdated) {
		t.Fatalf("expected task update for alice, got %+v", f)
	}
	if f := nextFrame(t, bob); f.Event != string(domain.EventNotification) {
		t.Fatalf("expected bob to skip the project event, got %+v", f)
	}

	hub.Disconnect("bob", bob)
	f := nextFrame(t, alice)
	var p domain.Presence
	if err := json.Unmarshal(f.Data, &p); err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	if p.UserID != "bob" || p.IsOnline || p.LastSeen == nil {
		t.Fatalf("expected bob offline with lastSeen, got %+v", p)
	}
	select {
	case <-bob.closed:
	case <-time.After(time.Second):
		t.Fatalf("expected bob closed")
	}
}

func TestRemovedMemberIsEvictedFromProjectRoom(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, stop := startHub(t, fakeAccess{"p1": {"alice": true, "bob": true}})
	defer stop()

	alice, bob := newFakeSub(), newFakeSub()
	hub.Connect("alice", alice)
	hub.Connect("bob", bob)
	nextFrame(t, alice) // bob online
	for user, sub := range map[string]*fakeSub{"alice": alice, "bob": bob} {
		if err := hub.Join(context.Background(), user, "p1", sub); err != nil {
			t.Fatalf("join %s: %v", user, err)
		}
	}

	hub.Publish(domain.Event{
		Type:        domain.EventProjectUpdated,
		ProjectID:   "p1",
		UserID:      "bob",
		EvictUserID: "bob",
		Data:        domain.ProjectChange{Action: domain.ActionMemberRemoved, ProjectID: "p1", MemberID: "bob"},
	})
	if f := nextFrame(t, alice); !strings.Contains(string(f.Data), domain.ActionMemberRemoved) {
		t.Fatalf("expected alice to see the removal, got %+v", f)
	}
	if f := nextFrame(t, bob); !strings.Contains(string(f.Data), domain.ActionMemberRemoved) {
		t.Fatalf("expected bob to be told through his user room, got %+v", f)
	}

	hub.Publish(domain.Event{Type: domain.EventTaskUpdated, ProjectID: "p1", Data: domain.TaskChange{TaskID: "t1"}})
	hub.Publish(domain.Event{Type: domain.EventNotification, UserID: "bob", Data: domain.Notification{Kind: "ping"}})
	if f := nextFrame(t, alice); f.Event != string(domain.EventTaskUpdated) {
		t.Fatalf("expected alice to keep project events, got %+v", f)
	}
	if f := nextFrame(t, bob); f.Event != string(domain.EventNotification) {
		t.Fatalf("expected bob to stop receiving project events, got %+v", f)
	}
}

func TestPresenceTracksLastConnection(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, stop := startHub(t, fakeAccess{})
	defer stop()

	watcher := newFakeSub()
	hub.Connect("watcher", watcher)
	first, second := newFakeSub(), newFakeSub()
	hub.Connect("carol", first)
	hub.Connect("carol", second)
	if f := nextFrame(t, watcher); f.Event != string(domain.EventUserPresence) {
		t.Fatalf("expected one online presence, got %+v", f)
	}

	hub.Disconnect("carol", first)
	hub.Publish(domain.Event{Type: domain.EventNotification, UserID: "watcher", Data: domain.Notification{Kind: "ping"}})
	if f := nextFrame(t, watcher); f.Event != string(domain.EventNotification) {
		t.Fatalf("expected no offline presence while carol has a connection, got %+v", f)
	}

	hub.Disconnect("carol", second)
	if f := nextFrame(t, watcher); !strings.Contains(string(f.Data), `"isOnline":false`) {
		t.Fatalf("expected carol offline, got %s", f.Data)
	}
}

func TestFailedSendDropsSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, stop := startHub(t, fakeAccess{})
	defer stop()

	slow := &fakeSub{frames: make(chan []byte), closed: make(chan struct{})}
	hub.Connect("slow", slow)
	hub.Publish(domain.Event{Type: domain.EventNotification, UserID: "slow", Data: domain.Notification{Kind: "x"}})
	select {
	case <-slow.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected subscriber closed after failed send")
	}
}

func TestRunClosesConnectionsOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub, stop := startHub(t, fakeAccess{})

	sub := newFakeSub()
	hub.Connect("dave", sub)
	stop()

	select {
	case <-sub.closed:
	default:
		t.Fatalf("expected connection closed on shutdown")
	}
	if hub.Connect("dave", newFakeSub()) {
		t.Fatalf("expected connect refused after shutdown")
	}
	hub.Publish(domain.Event{Type: domain.EventNotification, UserID: "dave"})
	hub.Disconnect("dave", sub)
}

func TestServeHandlesProjectFrames(t *testing.T) {
	hub, stop := startHub(t, fakeAccess{"p1": {"erin": true}})
	defer stop()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		hub.Serve(req.Context(), conn, "erin")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := conn.WriteJSON(map[string]any{"event": "join_project", "data": map[string]string{"projectId": "p2"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply frame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Event != string(domain.EventError) || !strings.Contains(string(reply.Data), domain.MsgProjectNotFound) {
		t.Fatalf("expected join refusal, got %+v", reply)
	}

	if err := conn.WriteJSON(map[string]any{"event": "join_project", "data": "p1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Frames are handled in order, so the reply to this one means the join completed.
	if err := conn.WriteJSON(map[string]any{"event": "typing"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(reply.Data), "Unsupported event") {
		t.Fatalf("unexpected reply %+v", reply)
	}

	hub.Publish(domain.Event{Type: domain.EventTaskUpdated, ProjectID: "p1", Data: domain.TaskChange{TaskID: "t9"}})
	var got frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Event != string(domain.EventTaskUpdated) || !strings.Contains(string(got.Data), "t9") {
		t.Fatalf("unexpected frame %+v", got)
	}
}
