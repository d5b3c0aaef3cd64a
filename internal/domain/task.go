package domain

import (
	"strings"
	"time"
)

// TaskStatus is the Kanban column a task sits in.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists statuses in board order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone:
		return true
	}
	return false
}

// Normalize trims and lower-cases s.
func (s TaskStatus) Normalize() TaskStatus {
	return TaskStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// ParseTaskStatus normalizes raw input; empty input yields todo.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	s := TaskStatus(raw).Normalize()
	if s == "" {
		return TaskStatusTodo, true
	}
	return s, s.Valid()
}

// TaskPriority ranks task urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// Normalize trims and lower-cases p.
func (p TaskPriority) Normalize() TaskPriority {
	return TaskPriority(strings.ToLower(strings.TrimSpace(string(p))))
}

// ParseTaskPriority normalizes raw input; empty input yields medium.
func ParseTaskPriority(raw string) (TaskPriority, bool) {
	p := TaskPriority(raw).Normalize()
	if p == "" {
		return TaskPriorityMedium, true
	}
	return p, p.Valid()
}

// MaxTaskTitleLength bounds the task title after trimming.
const MaxTaskTitleLength = 200

// Task is a unit of work inside a project.
type Task struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	ProjectID      string       `json:"projectId"`
	AssigneeID     *string      `json:"assigneeId"`
	ReporterID     string       `json:"reporterId"`
	DueDate        *time.Time   `json:"dueDate"`
	EstimatedHours *int         `json:"estimatedHours"`
	ActualHours    *int         `json:"actualHours"`
	Tags           []string     `json:"tags"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`

	ProjectName string       `json:"projectName,omitempty"`
	Assignee    *UserSummary `json:"assignee,omitempty"`
	Reporter    *UserSummary `json:"reporter,omitempty"`
}

// IsAssignee reports whether userID is the task's current assignee.
func (t Task) IsAssignee(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// TaskFilter narrows task listings. Empty fields are ignored; set fields are
// AND-combined exact matches.
type TaskFilter struct {
	ProjectID  string
	Status     TaskStatus
	Priority   TaskPriority
	AssigneeID string
}

// Normalized returns f with its enum values trimmed and lower-cased.
func (f TaskFilter) Normalized() TaskFilter {
	f.Status = f.Status.Normalize()
	f.Priority = f.Priority.Normalize()
	return f
}

// TaskPatch is a partial task update. Nil pointers and unset Optionals are
// left untouched.
type TaskPatch struct {
	Title          *string             `json:"title,omitempty"`
	Description    *string             `json:"description,omitempty"`
	Status         *TaskStatus         `json:"status,omitempty"`
	Priority       *TaskPriority       `json:"priority,omitempty"`
	AssigneeID     Optional[string]    `json:"assigneeId,omitzero"`
	DueDate        Optional[time.Time] `json:"dueDate,omitzero"`
	EstimatedHours Optional[int]       `json:"estimatedHours,omitzero"`
	ActualHours    Optional[int]       `json:"actualHours,omitzero"`
	Tags           *[]string           `json:"tags,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		!p.AssigneeID.Set && !p.DueDate.Set && !p.EstimatedHours.Set && !p.ActualHours.Set &&
		p.Tags == nil
}

// Normalized returns p with its status and priority trimmed and lower-cased.
func (p TaskPatch) Normalized() TaskPatch {
	if p.Status != nil {
		s := p.Status.Normalize()
		p.Status = &s
	}
	if p.Priority != nil {
		pr := p.Priority.Normalize()
		p.Priority = &pr
	}
	return p
}

// Apply merges the patch into a copy of current, field by field.
func (p TaskPatch) Apply(current Task) Task {
	next := current
	if p.Title != nil {
		next.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.AssigneeID.Set {
		next.AssigneeID = p.AssigneeID.Value
		next.Assignee = nil
	}
	if p.DueDate.Set {
		next.DueDate = p.DueDate.Value
	}
	if p.EstimatedHours.Set {
		next.EstimatedHours = p.EstimatedHours.Value
	}
	if p.ActualHours.Set {
		next.ActualHours = p.ActualHours.Value
	}
	if p.Tags != nil {
		next.Tags = NormalizeTags(*p.Tags)
	}
	return next
}

// NormalizeTags trims, drops blanks and de-duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// UnionTags adds tags to current with set semantics.
func UnionTags(current, add []string) []string {
	merged := make([]string, 0, len(current)+len(add))
	merged = append(merged, current...)
	merged = append(merged, add...)
	return NormalizeTags(merged)
}

// WithoutTags removes every exact match of remove from current.
func WithoutTags(current, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, tag := range remove {
		drop[tag] = struct{}{}
	}
	out := make([]string, 0, len(current))
	for _, tag := range current {
		if _, ok := drop[tag]; ok {
			continue
		}
		out = append(out, tag)
	}
	return out
}
