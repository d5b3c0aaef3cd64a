package store

import (
	"context"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

// TaskAPI is the subset of the API client the task store drives.
type TaskAPI interface {
	ListTasks(ctx context.Context, token string, filter domain.TaskFilter) ([]domain.Task, error)
	GetTask(ctx context.Context, token, taskID string) (domain.Task, error)
	CreateTask(ctx context.Context, token string, input client.CreateTaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, token, taskID string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, token, taskID string) error
	AddTags(ctx context.Context, token, taskID string, tags []string) (domain.Task, error)
	RemoveTags(ctx context.Context, token, taskID string, tags []string) (domain.Task, error)
}

// TaskState is the fetched task list, the active filter and the selected task.
type TaskState struct {
	Tasks    []domain.Task
	Selected *domain.Task
	Filters  domain.TaskFilter
	Loading  bool
	Error    string
}

// ByStatus groups tasks into board columns, keeping list order inside each.
func (s TaskState) ByStatus() map[domain.TaskStatus][]domain.Task {
	columns := make(map[domain.TaskStatus][]domain.Task, len(domain.TaskStatuses))
	for _, t := range s.Tasks {
		columns[t.Status] = append(columns[t.Status], t)
	}
	return columns
}

func taskID(t domain.Task) string { return t.ID }

func tasksStarted(s TaskState) TaskState {
	s.Loading = true
	s.Error = ""
	return s
}

func tasksLoaded(s TaskState, tasks []domain.Task) TaskState {
	s.Tasks = tasks
	s.Loading = false
	return s
}

func taskStored(s TaskState, t domain.Task) TaskState {
	s.Tasks = upsertByID(s.Tasks, t, taskID)
	if s.Selected != nil && s.Selected.ID == t.ID {
		s.Selected = &t
	}
	s.Loading = false
	return s
}

func taskSelected(s TaskState, t *domain.Task) TaskState {
	s.Selected = t
	s.Loading = false
	return s
}

func taskRemoved(s TaskState, id string) TaskState {
	s.Tasks = removeByID(s.Tasks, id, taskID)
	if s.Selected != nil && s.Selected.ID == id {
		s.Selected = nil
	}
	s.Loading = false
	return s
}

func tasksFailed(s TaskState, msg string) TaskState {
	s.Loading = false
	s.Error = msg
	return s
}

// TaskStore caches tasks across the caller's projects.
type TaskStore struct {
	api    TaskAPI
	tokens TokenSource
	c      *container[TaskState]
	gen    uint64
}

// NewTaskStore builds an empty store.
func NewTaskStore(api TaskAPI, tokens TokenSource) *TaskStore {
	return &TaskStore{api: api, tokens: tokens, c: newContainer(TaskState{})}
}

// State returns a snapshot.
func (s *TaskStore) State() TaskState { return s.c.snapshot() }

// Subscribe registers fn for every state change and returns its cancel func.
func (s *TaskStore) Subscribe(fn func(TaskState)) func() { return s.c.subscribe(fn) }

// ClearError drops the displayed error.
func (s *TaskStore) ClearError() {
	s.c.apply(func(st TaskState) TaskState {
		st.Error = ""
		return st
	})
}

// SetFilters records the filter used by the next Fetch.
func (s *TaskStore) SetFilters(filter domain.TaskFilter) {
	s.c.apply(func(st TaskState) TaskState {
		st.Filters = filter
		return st
	})
}

// SetSelected replaces the selected task; nil clears it.
func (s *TaskStore) SetSelected(t *domain.Task) {
	s.c.apply(func(st TaskState) TaskState { return taskSelected(st, t) })
}

// Fetch loads tasks matching filter and records it as the active filter.
// Superseded or cancelled fetches leave the list untouched.
func (s *TaskStore) Fetch(ctx context.Context, filter domain.TaskFilter) error {
	token := s.tokens.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	var gen uint64
	s.c.apply(func(st TaskState) TaskState {
		s.gen++
		gen = s.gen
		st.Filters = filter
		return tasksStarted(st)
	})
	tasks, err := s.api.ListTasks(ctx, token, filter)
	var result error
	s.c.apply(func(st TaskState) TaskState {
		switch {
		case gen != s.gen:
			return st
		case ctx.Err() != nil:
			result = ctx.Err()
			st.Loading = false
			return st
		case err != nil:
			result = err
			return tasksFailed(st, displayError(err, "Failed to fetch tasks"))
		}
		return tasksLoaded(st, tasks)
	})
	return result
}

// Get loads one task and selects it.
func (s *TaskStore) Get(ctx context.Context, id string) (domain.Task, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return domain.Task{}, ErrNotAuthenticated
	}
	s.c.apply(tasksStarted)
	t, err := s.api.GetTask(ctx, token, id)
	if err != nil {
		return domain.Task{}, s.fail(err, "Failed to fetch task")
	}
	s.c.apply(func(st TaskState) TaskState { return taskSelected(st, &t) })
	return t, nil
}

// Create adds a task and appends it to the list.
func (s *TaskStore) Create(ctx context.Context, input client.CreateTaskInput) (domain.Task, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return domain.Task{}, ErrNotAuthenticated
	}
	s.c.apply(tasksStarted)
	t, err := s.api.CreateTask(ctx, token, input)
	if err != nil {
		return domain.Task{}, s.fail(err, "Failed to create task")
	}
	s.c.apply(func(st TaskState) TaskState { return taskStored(st, t) })
	return t, nil
}

// Update applies patch and replaces the task with the server's copy.
func (s *TaskStore) Update(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	return s.store("Failed to update task", func(token string) (domain.Task, error) {
		return s.api.UpdateTask(ctx, token, id, patch)
	})
}

// Delete removes the task from the server, the list and the selection.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	token := s.tokens.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	s.c.apply(tasksStarted)
	if err := s.api.DeleteTask(ctx, token, id); err != nil {
		return s.fail(err, "Failed to delete task")
	}
	s.c.apply(func(st TaskState) TaskState { return taskRemoved(st, id) })
	return nil
}

// MoveToStatus moves the task to another board column.
func (s *TaskStore) MoveToStatus(ctx context.Context, id string, status domain.TaskStatus) (domain.Task, error) {
	return s.store("Failed to update task status", func(token string) (domain.Task, error) {
		return s.api.UpdateTask(ctx, token, id, domain.TaskPatch{Status: &status})
	})
}

// Assign sets the task's assignee.
func (s *TaskStore) Assign(ctx context.Context, id, userID string) (domain.Task, error) {
	return s.store("Failed to assign task", func(token string) (domain.Task, error) {
		return s.api.UpdateTask(ctx, token, id, domain.TaskPatch{AssigneeID: domain.Some(userID)})
	})
}

// Unassign clears the task's assignee.
func (s *TaskStore) Unassign(ctx context.Context, id string) (domain.Task, error) {
	return s.store("Failed to unassign task", func(token string) (domain.Task, error) {
		return s.api.UpdateTask(ctx, token, id, domain.TaskPatch{AssigneeID: domain.Null[string]()})
	})
}

// SetPriority changes the task's priority.
func (s *TaskStore) SetPriority(ctx context.Context, id string, priority domain.TaskPriority) (domain.Task, error) {
	return s.store("Failed to update task priority", func(token string) (domain.Task, error) {
		return s.api.UpdateTask(ctx, token, id, domain.TaskPatch{Priority: &priority})
	})
}

// AddTags adds tags to the task.
func (s *TaskStore) AddTags(ctx context.Context, id string, tags []string) (domain.Task, error) {
	return s.store("Failed to add tags", func(token string) (domain.Task, error) {
		return s.api.AddTags(ctx, token, id, tags)
	})
}

// RemoveTags removes tags from the task.
func (s *TaskStore) RemoveTags(ctx context.Context, id string, tags []string) (domain.Task, error) {
	return s.store("Failed to remove tags", func(token string) (domain.Task, error) {
		return s.api.RemoveTags(ctx, token, id, tags)
	})
}

// store runs call and replaces the returned task in the list and selection.
func (s *TaskStore) store(fallback string, call func(token string) (domain.Task, error)) (domain.Task, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return domain.Task{}, ErrNotAuthenticated
	}
	s.c.apply(tasksStarted)
	t, err := call(token)
	if err != nil {
		return domain.Task{}, s.fail(err, fallback)
	}
	s.c.apply(func(st TaskState) TaskState { return taskStored(st, t) })
	return t, nil
}

func (s *TaskStore) fail(err error, fallback string) error {
	s.c.apply(func(st TaskState) TaskState { return tasksFailed(st, displayError(err, fallback)) })
	return err
}
