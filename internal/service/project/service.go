package project

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

// CreateInput encapsulates project creation attributes.
type CreateInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// MemberInput adds a user to a project.
type MemberInput struct {
	UserID string            `json:"userId"`
	Role   domain.MemberRole `json:"role"`
}

// Notifier receives events after successful mutations.
type Notifier interface {
	Publish(event domain.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(domain.Event) {}

// Service orchestrates project management.
type Service struct {
	projects repository.ProjectRepository
	members  repository.MemberRepository
	users    repository.UserRepository
	access   access.Checker
	notifier Notifier
	logger   *slog.Logger
}

// New returns a project service. A nil notifier disables events.
func New(projects repository.ProjectRepository, members repository.MemberRepository, users repository.UserRepository, notifier Notifier, logger *slog.Logger) Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return Service{
		projects: projects,
		members:  members,
		users:    users,
		access:   access.New(projects, members),
		notifier: notifier,
		logger:   logger,
	}
}

var (
	errNameRequired        = domain.ValidationFields("Project name and description are required", map[string]string{"name": "required"})
	errDescriptionRequired = domain.ValidationFields("Project name and description are required", map[string]string{"description": "required"})
	errNameTooLong         = domain.ValidationFields(fmt.Sprintf("Project name must be less than %d characters", domain.MaxProjectNameLength), map[string]string{"name": "too long"})
	errInvalidStatus       = domain.ValidationFields("Invalid project status", map[string]string{"status": "invalid"})
	errDateOrder           = domain.ValidationFields("End date must not be before start date", map[string]string{"endDate": "before startDate"})
	errNoFields            = domain.ValidationError(domain.MsgNoFieldsToUpdate)
	errInvalidMemberRole   = domain.ValidationFields("Member role must be manager or member", map[string]string{"role": "invalid"})
	errMemberUserRequired  = domain.ValidationFields("User ID is required", map[string]string{"userId": "required"})
	errUserNotFound        = domain.NotFoundError("User not found")
	errAlreadyMember       = domain.ConflictError("User is already a member of this project")
	errOwnerMembership     = domain.ValidationError("The project owner cannot be removed")
	errMemberNotFound      = domain.NotFoundError("Member not found")
)

// Create registers a project owned by requesterID. The project row and the
// owner membership are written atomically.
func (s Service) Create(ctx context.Context, requesterID string, input CreateInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	if name == "" {
		return nil, errNameRequired
	}
	if description == "" {
		return nil, errDescriptionRequired
	}
	if len([]rune(name)) > domain.MaxProjectNameLength {
		return nil, errNameTooLong
	}
	status, ok := domain.ParseProjectStatus(input.Status)
	if !ok {
		return nil, errInvalidStatus
	}
	if !datesOrdered(input.StartDate, input.EndDate) {
		return nil, errDateOrder
	}

	project := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      status,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		OwnerID:     requesterID,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	created, err := s.projects.GetProjectByID(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("reload project: %w", err)
	}
	s.logger.Info("project created", "project_id", created.ID, "owner_id", requesterID)
	s.publish(domain.ActionCreated, requesterID, created)
	return created, nil
}

// List returns every project the requester owns or is a member of.
func (s Service) List(ctx context.Context, requesterID string) ([]domain.Project, error) {
	projects, err := s.projects.ListProjectsForUser(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Get returns a project visible to the requester.
func (s Service) Get(ctx context.Context, requesterID, projectID string) (*domain.Project, error) {
	st, err := s.access.ProjectForRead(ctx, requesterID, projectID)
	if err != nil {
		return nil, err
	}
	return &st.Project, nil
}

// Update applies a partial update. Only the owner may update.
func (s Service) Update(ctx context.Context, requesterID, projectID string, patch domain.ProjectPatch) (*domain.Project, error) {
	st, err := s.access.ProjectForOwner(ctx, requesterID, projectID)
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
	next := patch.Apply(st.Project)
	if !datesOrdered(next.StartDate, next.EndDate) {
		return nil, errDateOrder
	}
	if err := s.projects.UpdateProject(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthorizationError(domain.MsgProjectNotFound)
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.logger.Info("project updated", "project_id", projectID, "user_id", requesterID)
	s.publish(domain.ActionUpdated, requesterID, &next)
	return &next, nil
}

// Delete removes a project with its tasks and memberships. Only the owner may delete.
func (s Service) Delete(ctx context.Context, requesterID, projectID string) error {
	if _, err := s.access.ProjectForOwner(ctx, requesterID, projectID); err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.AuthorizationError(domain.MsgProjectNotFound)
		}
		return fmt.Errorf("delete project: %w", err)
	}
	s.logger.Info("project deleted", "project_id", projectID, "user_id", requesterID)
	s.notifier.Publish(domain.Event{
		Type:      domain.EventProjectUpdated,
		ProjectID: projectID,
		Data:      domain.ProjectChange{Action: domain.ActionDeleted, ProjectID: projectID, ActorID: requesterID},
	})
	return nil
}

// AddMember grants a user standing in the project. Only the owner may add members.
func (s Service) AddMember(ctx context.Context, requesterID, projectID string, input MemberInput) (*domain.ProjectMember, error) {
	if _, err := s.access.ProjectForOwner(ctx, requesterID, projectID); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errMemberUserRequired
	}
	role := input.Role
	if role == "" {
		role = domain.MemberRoleMember
	}
	if role != domain.MemberRoleManager && role != domain.MemberRoleMember {
		return nil, errInvalidMemberRole
	}
	if uuid.Validate(userID) != nil {
		return nil, errUserNotFound
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	member := &domain.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := s.members.AddMember(ctx, member); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, errAlreadyMember
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	added, err := s.members.GetMember(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("reload member: %w", err)
	}
	s.logger.Info("project member added", "project_id", projectID, "member_id", userID, "role", role)
	s.notifier.Publish(domain.Event{
		Type:   domain.EventNotification,
		UserID: userID,
		Data: domain.Notification{
			Kind:      "project_member_added",
			Message:   "You were added to a project",
			ProjectID: projectID,
		},
	})
	return added, nil
}

// ListMembers returns the project's members for any participant.
func (s Service) ListMembers(ctx context.Context, requesterID, projectID string) ([]domain.ProjectMember, error) {
	if _, err := s.access.ProjectForRead(ctx, requesterID, projectID); err != nil {
		return nil, err
	}
	members, err := s.members.ListMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// RemoveMember revokes a user's membership and unassigns their tasks in the
// project. The owner's row is permanent.
func (s Service) RemoveMember(ctx context.Context, requesterID, projectID, userID string) error {
	st, err := s.access.ProjectForOwner(ctx, requesterID, projectID)
	if err != nil {
		return err
	}
	if userID == st.Project.OwnerID {
		return errOwnerMembership
	}
	if uuid.Validate(userID) != nil {
		return errMemberNotFound
	}
	unassigned, err := s.members.RemoveMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errMemberNotFound
		}
		return fmt.Errorf("remove member: %w", err)
	}
	s.logger.Info("project member removed", "project_id", projectID, "member_id", userID, "unassigned_tasks", len(unassigned))

	s.notifier.Publish(domain.Event{
		Type:        domain.EventProjectUpdated,
		ProjectID:   projectID,
		UserID:      userID,
		EvictUserID: userID,
		Data: domain.ProjectChange{
			Action:    domain.ActionMemberRemoved,
			ProjectID: projectID,
			ActorID:   requesterID,
			MemberID:  userID,
		},
	})
	for _, taskID := range unassigned {
		s.notifier.Publish(domain.Event{
			Type:      domain.EventTaskUpdated,
			ProjectID: projectID,
			Data:      domain.TaskChange{Action: domain.ActionUpdated, TaskID: taskID, ProjectID: projectID, ActorID: requesterID},
		})
	}
	return nil
}

func (s Service) publish(action, actorID string, project *domain.Project) {
	s.notifier.Publish(domain.Event{
		Type:      domain.EventProjectUpdated,
		ProjectID: project.ID,
		Data:      domain.ProjectChange{Action: action, ProjectID: project.ID, ActorID: actorID, Project: project},
	})
}

func validatePatch(patch domain.ProjectPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return errNameRequired
		}
		if len([]rune(name)) > domain.MaxProjectNameLength {
			return errNameTooLong
		}
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return errDescriptionRequired
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return errInvalidStatus
	}
	return nil
}

func datesOrdered(start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	return !end.Before(*start)
}
