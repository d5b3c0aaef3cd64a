package access

import (
	"context"
	"errors"
	"testing"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
)

const (
	projectID = "6f1c2d3e-0000-4000-8000-000000000001"
	ownerID   = "6f1c2d3e-0000-4000-8000-0000000000a1"
	memberID  = "6f1c2d3e-0000-4000-8000-0000000000b2"
	strangeID = "6f1c2d3e-0000-4000-8000-0000000000c3"
)

type projectsStub map[string]domain.Project

func (s projectsStub) GetProjectByID(_ context.Context, id string) (*domain.Project, error) {
	if p, ok := s[id]; ok {
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

type membersStub map[string]domain.MemberRole

func (s membersStub) GetMember(_ context.Context, projectID, userID string) (*domain.ProjectMember, error) {
	if role, ok := s[projectID+"/"+userID]; ok {
		return &domain.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}, nil
	}
	return nil, repository.ErrNotFound
}

func newChecker() Checker {
	return New(
		projectsStub{projectID: {ID: projectID, Name: "Apollo", OwnerID: ownerID}},
		membersStub{
			projectID + "/" + ownerID:  domain.MemberRoleOwner,
			projectID + "/" + memberID: domain.MemberRoleMember,
		},
	)
}

func TestPredicates(t *testing.T) {
	owner := Standing{Owner: true, Member: true}
	member := Standing{Member: true}
	stranger := Standing{}
	assignee := memberID
	task := domain.Task{ReporterID: memberID, AssigneeID: &assignee}

	cases := []struct {
		name string
		got  bool
		want bool
	}{
		{"owner reads project", CanReadProject(owner), true},
		{"member reads project", CanReadProject(member), true},
		{"stranger reads project", CanReadProject(stranger), false},
		{"member manages project", CanManageProject(member), false},
		{"owner manages project", CanManageProject(owner), true},
		{"member creates task", CanCreateTask(member), true},
		{"stranger creates task", CanCreateTask(stranger), false},
		{"stranger reads task", CanReadTask(stranger), false},
		{"assignee outside project updates task", CanUpdateTask(stranger, task, memberID), true},
		{"stranger updates task", CanUpdateTask(stranger, task, strangeID), false},
		{"reporter deletes task", CanDeleteTask(member, task, memberID), true},
		{"member deletes others task", CanDeleteTask(member, domain.Task{ReporterID: ownerID}, memberID), false},
		{"owner deletes any task", CanDeleteTask(owner, domain.Task{ReporterID: memberID}, ownerID), true},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestStandingResolvesOwnerAndMember(t *testing.T) {
	c := newChecker()
	st, err := c.Standing(context.Background(), ownerID, projectID)
	if err != nil {
		t.Fatalf("standing: %v", err)
	}
	if !st.Owner || st.Role != domain.MemberRoleOwner || st.Project.Name != "Apollo" {
		t.Fatalf("unexpected owner standing %+v", st)
	}
	st, err = c.Standing(context.Background(), memberID, projectID)
	if err != nil {
		t.Fatalf("standing: %v", err)
	}
	if st.Owner || !st.Member {
		t.Fatalf("unexpected member standing %+v", st)
	}
}

func TestDenialsHideExistence(t *testing.T) {
	c := newChecker()
	ctx := context.Background()

	_, errDenied := c.ProjectForRead(ctx, strangeID, projectID)
	_, errMissing := c.ProjectForRead(ctx, strangeID, "6f1c2d3e-0000-4000-8000-00000000ffff")
	_, errMalformed := c.ProjectForRead(ctx, strangeID, "not-a-uuid")
	for _, err := range []error{errDenied, errMissing, errMalformed} {
		if domain.KindOf(err) != domain.KindAuthorization || err.Error() != domain.MsgProjectNotFound {
			t.Fatalf("expected uniform authorization error, got %v", err)
		}
	}

	if _, err := c.ProjectForOwner(ctx, memberID, projectID); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected member to be refused owner access, got %v", err)
	}
	if _, err := c.ProjectForTaskCreate(ctx, strangeID, projectID); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAssigneeEligible(t *testing.T) {
	c := newChecker()
	project := domain.Project{ID: projectID, OwnerID: ownerID}
	for id, want := range map[string]bool{ownerID: true, memberID: true, strangeID: false, "garbage": false} {
		got, err := c.AssigneeEligible(context.Background(), project, id)
		if err != nil {
			t.Fatalf("eligible(%s): %v", id, err)
		}
		if got != want {
			t.Fatalf("eligible(%s) = %v, want %v", id, got, want)
		}
	}
}

type failingMembers struct{}

func (failingMembers) GetMember(context.Context, string, string) (*domain.ProjectMember, error) {
	return nil, errors.New("db down")
}

func TestStandingPropagatesStorageErrors(t *testing.T) {
	c := New(projectsStub{projectID: {ID: projectID, OwnerID: ownerID}}, failingMembers{})
	if _, err := c.ProjectForRead(context.Background(), memberID, projectID); err == nil || domain.KindOf(err) != domain.KindServer {
		t.Fatalf("expected raw storage error, got %v", err)
	}
}
