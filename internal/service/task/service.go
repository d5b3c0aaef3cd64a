package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
	"github.com/Luis-avalos1/TaskFlow/internal/service/access"
)

// CreateInput encapsulates task creation attributes.
type CreateInput struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ProjectID      string     `json:"projectId"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	AssigneeID     *string    `json:"assigneeId"`
	DueDate        *time.Time `json:"dueDate"`
	EstimatedHours *int       `json:"estimatedHours"`
	ActualHours    *int       `json:"actualHours"`
	Tags           []string   `json:"tags"`
}

// Notifier receives events after successful mutations.
type Notifier interface {
	Publish(event domain.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(domain.Event) {}

// Service orchestrates task management.
type Service struct {
	tasks    repository.TaskRepository
	access   access.Checker
	notifier Notifier
	logger   *slog.Logger
}

// New returns a task service. A nil notifier disables events.
func New(tasks repository.TaskRepository, projects repository.ProjectRepository, members repository.MemberRepository, notifier Notifier, logger *slog.Logger) Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return Service{
		tasks:    tasks,
		access:   access.New(projects, members),
		notifier: notifier,
		logger:   logger,
	}
}

var (
	errTitleRequired     = domain.ValidationFields("Task title and project ID are required", map[string]string{"title": "required"})
	errProjectRequired   = domain.ValidationFields("Task title and project ID are required", map[string]string{"projectId": "required"})
	errTitleTooLong      = domain.ValidationFields(fmt.Sprintf("Task title must be less than %d characters", domain.MaxTaskTitleLength), map[string]string{"title": "too long"})
	errInvalidStatus     = domain.ValidationFields("Invalid task status", map[string]string{"status": "invalid"})
	errInvalidPriority   = domain.ValidationFields("Invalid task priority", map[string]string{"priority": "invalid"})
	errNegativeHours     = domain.ValidationFields("Hours must not be negative", map[string]string{"hours": "negative"})
	errAssigneeNotMember = domain.ValidationFields(domain.MsgAssigneeNotMember, map[string]string{"assigneeId": "not a project member"})
	errNoFields          = domain.ValidationError(domain.MsgNoFieldsToUpdate)
	errNoTags            = domain.ValidationFields("At least one tag is required", map[string]string{"tags": "required"})
	errTaskNotFound      = domain.AuthorizationError(domain.MsgTaskNotFound)
)

// Create adds a task to a project the requester owns or belongs to. The
// requester becomes the reporter.
func (s Service) Create(ctx context.Context, requesterID string, input CreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	projectID := strings.TrimSpace(input.ProjectID)
	if title == "" {
		return nil, errTitleRequired
	}
	if projectID == "" {
		return nil, errProjectRequired
	}

	st, err := s.access.ProjectForTaskCreate(ctx, requesterID, projectID)
	if err != nil {
		return nil, err
	}

	if len([]rune(title)) > domain.MaxTaskTitleLength {
		return nil, errTitleTooLong
	}
	status, ok := domain.ParseTaskStatus(input.Status)
	if !ok {
		return nil, errInvalidStatus
	}
	priority, ok := domain.ParseTaskPriority(input.Priority)
	if !ok {
		return nil, errInvalidPriority
	}
	if negative(input.EstimatedHours) || negative(input.ActualHours) {
		return nil, errNegativeHours
	}
	assigneeID := normalizeID(input.AssigneeID)
	if assigneeID != nil {
		if err := s.requireEligible(ctx, st.Project, *assigneeID); err != nil {
			return nil, err
		}
	}

	task := &domain.Task{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    input.Description,
		Status:         status,
		Priority:       priority,
		ProjectID:      projectID,
		AssigneeID:     assigneeID,
		ReporterID:     requesterID,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
		ActualHours:    input.ActualHours,
		Tags:           domain.NormalizeTags(input.Tags),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	created, err := s.tasks.GetTaskByID(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	s.logger.Info("task created", "task_id", created.ID, "project_id", projectID, "reporter_id", requesterID)
	s.publish(domain.ActionCreated, requesterID, created)
	s.notifyAssignee(requesterID, nil, created)
	return created, nil
}

// List returns tasks across every project the requester owns or belongs to,
// narrowed by filter and ordered newest first.
func (s Service) List(ctx context.Context, requesterID string, filter domain.TaskFilter) ([]domain.Task, error) {
	filter = filter.Normalized()
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errInvalidStatus
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, errInvalidPriority
	}
	if (filter.ProjectID != "" && uuid.Validate(filter.ProjectID) != nil) ||
		(filter.AssigneeID != "" && uuid.Validate(filter.AssigneeID) != nil) {
		return []domain.Task{}, nil
	}
	tasks, err := s.tasks.ListTasksForUser(ctx, requesterID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns a task whose project the requester owns or belongs to.
func (s Service) Get(ctx context.Context, requesterID, taskID string) (*domain.Task, error) {
	task, _, err := s.load(ctx, requesterID, taskID, func(st access.Standing, _ domain.Task) bool {
		return access.CanReadTask(st)
	})
	return task, err
}

// Update applies a partial update. The project owner, any member, or the
// current assignee may update. updated_at is refreshed even when the provided
// values equal the stored ones.
func (s Service) Update(ctx context.Context, requesterID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	current, st, err := s.load(ctx, requesterID, taskID, func(st access.Standing, t domain.Task) bool {
		return access.CanUpdateTask(st, t, requesterID)
	})
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, errNoFields
	}
	patch = patch.Normalized()
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	if patch.AssigneeID.Set && patch.AssigneeID.Value != nil {
		patch.AssigneeID.Value = normalizeID(patch.AssigneeID.Value)
	}
	if patch.AssigneeID.Set && patch.AssigneeID.Value != nil && !current.IsAssignee(*patch.AssigneeID.Value) {
		if err := s.requireEligible(ctx, st.Project, *patch.AssigneeID.Value); err != nil {
			return nil, err
		}
	}

	next := patch.Apply(*current)
	if err := s.tasks.UpdateTask(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	updated, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	s.logger.Info("task updated", "task_id", taskID, "user_id", requesterID)
	s.publish(domain.ActionUpdated, requesterID, updated)
	s.notifyAssignee(requesterID, current.AssigneeID, updated)
	return updated, nil
}

// MoveToStatus sets the task's status.
func (s Service) MoveToStatus(ctx context.Context, requesterID, taskID string, status domain.TaskStatus) (*domain.Task, error) {
	return s.Update(ctx, requesterID, taskID, domain.TaskPatch{Status: &status})
}

// SetPriority sets the task's priority.
func (s Service) SetPriority(ctx context.Context, requesterID, taskID string, priority domain.TaskPriority) (*domain.Task, error) {
	return s.Update(ctx, requesterID, taskID, domain.TaskPatch{Priority: &priority})
}

// Assign hands the task to assigneeID, who must own or belong to the project.
func (s Service) Assign(ctx context.Context, requesterID, taskID, assigneeID string) (*domain.Task, error) {
	return s.Update(ctx, requesterID, taskID, domain.TaskPatch{AssigneeID: domain.Some(assigneeID)})
}

// Unassign clears the task's assignee.
func (s Service) Unassign(ctx context.Context, requesterID, taskID string) (*domain.Task, error) {
	return s.Update(ctx, requesterID, taskID, domain.TaskPatch{AssigneeID: domain.Null[string]()})
}

// AddTags adds tags with set semantics.
func (s Service) AddTags(ctx context.Context, requesterID, taskID string, tags []string) (*domain.Task, error) {
	tags = domain.NormalizeTags(tags)
	if len(tags) == 0 {
		return nil, errNoTags
	}
	current, err := s.Get(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}
	merged := domain.UnionTags(current.Tags, tags)
	return s.Update(ctx, requesterID, taskID, domain.TaskPatch{Tags: &merged})
}

// RemoveTags drops every exact match of tags.
func (s Service) RemoveTags(ctx context.Context, requesterID, taskID string, tags []string) (*domain.Task, error) {
	if len(tags) == 0 {
		return nil, errNoTags
	}
	current, err := s.Get(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}
	remaining := domain.WithoutTags(current.Tags, tags)
	return s.Update(ctx, requesterID, taskID, domain.TaskPatch{Tags: &remaining})
}

// Delete removes a task. The project owner or the task's reporter may delete.
func (s Service) Delete(ctx context.Context, requesterID, taskID string) error {
	task, _, err := s.load(ctx, requesterID, taskID, func(st access.Standing, t domain.Task) bool {
		return access.CanDeleteTask(st, t, requesterID)
	})
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Info("task deleted", "task_id", taskID, "user_id", requesterID)
	s.notifier.Publish(domain.Event{
		Type:      domain.EventTaskUpdated,
		ProjectID: task.ProjectID,
		Data:      domain.TaskChange{Action: domain.ActionDeleted, TaskID: taskID, ProjectID: task.ProjectID, ActorID: requesterID},
	})
	return nil
}

// load fetches the task and the requester's standing in its project, and
// applies allow. Every denial is indistinguishable from a missing task.
func (s Service) load(ctx context.Context, requesterID, taskID string, allow func(access.Standing, domain.Task) bool) (*domain.Task, access.Standing, error) {
	if uuid.Validate(taskID) != nil {
		return nil, access.Standing{}, errTaskNotFound
	}
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, access.Standing{}, errTaskNotFound
		}
		return nil, access.Standing{}, fmt.Errorf("load task: %w", err)
	}
	st, err := s.access.Standing(ctx, requesterID, task.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, access.Standing{}, errTaskNotFound
		}
		return nil, access.Standing{}, fmt.Errorf("load standing: %w", err)
	}
	if !allow(st, *task) {
		return nil, access.Standing{}, errTaskNotFound
	}
	return task, st, nil
}

func (s Service) requireEligible(ctx context.Context, project domain.Project, assigneeID string) error {
	ok, err := s.access.AssigneeEligible(ctx, project, assigneeID)
	if err != nil {
		return fmt.Errorf("check assignee: %w", err)
	}
	if !ok {
		return errAssigneeNotMember
	}
	return nil
}

func (s Service) publish(action, actorID string, task *domain.Task) {
	s.notifier.Publish(domain.Event{
		Type:      domain.EventTaskUpdated,
		ProjectID: task.ProjectID,
		Data:      domain.TaskChange{Action: action, TaskID: task.ID, ProjectID: task.ProjectID, ActorID: actorID, Task: task},
	})
}

// notifyAssignee tells a newly assigned user about the task unless they assigned themselves.
func (s Service) notifyAssignee(actorID string, previous *string, task *domain.Task) {
	if task.AssigneeID == nil || *task.AssigneeID == actorID {
		return
	}
	if previous != nil && *previous == *task.AssigneeID {
		return
	}
	s.notifier.Publish(domain.Event{
		Type:   domain.EventNotification,
		UserID: *task.AssigneeID,
		Data: domain.Notification{
			Kind:      "task_assigned",
			Message:   fmt.Sprintf("You were assigned %q", task.Title),
			ProjectID: task.ProjectID,
			TaskID:    task.ID,
		},
	})
}

func validatePatch(patch domain.TaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return errTitleRequired
		}
		if len([]rune(title)) > domain.MaxTaskTitleLength {
			return errTitleTooLong
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return errInvalidStatus
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return errInvalidPriority
	}
	if negative(patch.EstimatedHours.Value) || negative(patch.ActualHours.Value) {
		return errNegativeHours
	}
	return nil
}

func negative(v *int) bool {
	return v != nil && *v < 0
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
