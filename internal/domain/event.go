package domain

import "time"

// EventType names a real-time frame.
type EventType string

const (
	EventTaskUpdated    EventType = "task_updated"
	EventProjectUpdated EventType = "project_updated"
	EventUserPresence   EventType = "user_presence"
	EventNotification   EventType = "notification"
	EventJoinProject    EventType = "join_project"
	EventLeaveProject   EventType = "leave_project"
	EventError          EventType = "error"
)

// Mutation actions carried by task and project events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	ActionMemberRemoved = "member_removed"
)

// Event is published after a successful mutation. ProjectID and UserID select
// the rooms it is delivered to and are not part of the frame.
type Event struct {
	Type      EventType `json:"event"`
	ProjectID string    `json:"-"`
	UserID    string    `json:"-"`
	// EvictUserID, when set, takes that user's connections out of the
	// ProjectID room before the event is delivered.
	EvictUserID string `json:"-"`
	Data        any    `json:"data"`
}

// TaskChange describes a task mutation.
type TaskChange struct {
	Action    string `json:"action"`
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
	ActorID   string `json:"actorId"`
	Task      *Task  `json:"task,omitempty"`
}

// ProjectChange describes a project mutation.
type ProjectChange struct {
	Action    string   `json:"action"`
	ProjectID string   `json:"projectId"`
	ActorID   string   `json:"actorId"`
	MemberID  string   `json:"memberId,omitempty"`
	Project   *Project `json:"project,omitempty"`
}

// Notification is delivered to a single user's room.
type Notification struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	ProjectID string `json:"projectId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
}

// Presence reports a user's connection state.
type Presence struct {
	UserID   string     `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
