package repository

import (
	"context"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UserExists(ctx context.Context, email, username string) (bool, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	// CreateProject inserts the project and its owner membership in one transaction.
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	// ListProjectsForUser returns projects the user owns or is a member of, newest first.
	ListProjectsForUser(ctx context.Context, userID string) ([]domain.Project, error)
	// UpdateProject writes every mutable column of project and refreshes updated_at.
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, projectID string) error
}

// MemberRepository manages project memberships.
type MemberRepository interface {
	AddMember(ctx context.Context, member *domain.ProjectMember) error
	GetMember(ctx context.Context, projectID, userID string) (*domain.ProjectMember, error)
	ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error)
	// RemoveMember deletes the membership and, in the same transaction, clears
	// the user as assignee on the project's tasks. It returns the ids of the
	// tasks it unassigned.
	RemoveMember(ctx context.Context, projectID, userID string) ([]string, error)
}

// TaskRepository persists tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	// GetTaskByID returns the task with project name, assignee and reporter joined in.
	GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error)
	// ListTasksForUser returns tasks of every project the user owns or belongs to,
	// narrowed by filter, newest first.
	ListTasksForUser(ctx context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error)
	// UpdateTask writes every mutable column of task and refreshes updated_at.
	UpdateTask(ctx context.Context, task *domain.Task) error
	DeleteTask(ctx context.Context, taskID string) error
}
