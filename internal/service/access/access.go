// Package access decides whether a requester may act on a project or task.
//
// Denials are reported as "not found or access denied" so callers cannot
// check for the existence of resources they cannot see.
package access

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
)

// ProjectReader loads projects.
type ProjectReader interface {
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
}

// MemberReader loads memberships.
type MemberReader interface {
	GetMember(ctx context.Context, projectID, userID string) (*domain.ProjectMember, error)
}

// Standing is a requester's relationship to one project.
type Standing struct {
	Project domain.Project
	Owner   bool
	Member  bool
	Role    domain.MemberRole
}

// Participant reports whether the requester owns or belongs to the project.
func (s Standing) Participant() bool {
	return s.Owner || s.Member
}

// CanReadProject allows owners and members.
func CanReadProject(s Standing) bool { return s.Participant() }

// CanManageProject allows the owner only; it covers update, delete and membership changes.
func CanManageProject(s Standing) bool { return s.Owner }

// CanCreateTask allows owners and members.
func CanCreateTask(s Standing) bool { return s.Participant() }

// CanReadTask allows owners and members of the task's project.
func CanReadTask(s Standing) bool { return s.Participant() }

// CanUpdateTask allows owners, members and the task's current assignee.
func CanUpdateTask(s Standing, task domain.Task, requesterID string) bool {
	return s.Participant() || task.IsAssignee(requesterID)
}

// CanDeleteTask allows the project owner and the task's reporter.
func CanDeleteTask(s Standing, task domain.Task, requesterID string) bool {
	return s.Owner || task.ReporterID == requesterID
}

// Checker resolves standings from persistence.
type Checker struct {
	projects ProjectReader
	members  MemberReader
}

// New constructs a Checker.
func New(projects ProjectReader, members MemberReader) Checker {
	return Checker{projects: projects, members: members}
}

// Standing loads the project and the requester's membership. A malformed or
// unknown project id yields repository.ErrNotFound.
func (c Checker) Standing(ctx context.Context, requesterID, projectID string) (Standing, error) {
	if uuid.Validate(projectID) != nil {
		return Standing{}, repository.ErrNotFound
	}
	project, err := c.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return Standing{}, err
	}
	st := Standing{Project: *project, Owner: project.OwnerID == requesterID}
	if st.Owner {
		st.Role = domain.MemberRoleOwner
	}
	member, err := c.members.GetMember(ctx, projectID, requesterID)
	switch {
	case err == nil:
		st.Member = true
		st.Role = member.Role
	case errors.Is(err, repository.ErrNotFound):
	default:
		return Standing{}, err
	}
	return st, nil
}

// ProjectForRead returns the standing when the requester may view the project.
func (c Checker) ProjectForRead(ctx context.Context, requesterID, projectID string) (Standing, error) {
	return c.require(ctx, requesterID, projectID, CanReadProject, domain.AuthorizationError(domain.MsgProjectNotFound))
}

// ProjectForOwner returns the standing when the requester owns the project.
func (c Checker) ProjectForOwner(ctx context.Context, requesterID, projectID string) (Standing, error) {
	return c.require(ctx, requesterID, projectID, CanManageProject, domain.AuthorizationError(domain.MsgProjectNotFound))
}

// ProjectForTaskCreate returns the standing when the requester may add tasks.
// Unknown projects are refused with the same error as forbidden ones.
func (c Checker) ProjectForTaskCreate(ctx context.Context, requesterID, projectID string) (Standing, error) {
	return c.require(ctx, requesterID, projectID, CanCreateTask, domain.ForbiddenError(domain.MsgTaskCreateDenied))
}

// AssigneeEligible reports whether userID owns or belongs to the project.
func (c Checker) AssigneeEligible(ctx context.Context, project domain.Project, userID string) (bool, error) {
	if userID == project.OwnerID {
		return true, nil
	}
	if uuid.Validate(userID) != nil {
		return false, nil
	}
	if _, err := c.members.GetMember(ctx, project.ID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c Checker) require(ctx context.Context, requesterID, projectID string, allow func(Standing) bool, denied *domain.Error) (Standing, error) {
	st, err := c.Standing(ctx, requesterID, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Standing{}, denied
		}
		return Standing{}, err
	}
	if !allow(st) {
		return Standing{}, denied
	}
	return st, nil
}
