package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
)

const (
	aliceID = "0b7d1a52-0000-4000-8000-00000000a11c"
	bobID   = "0b7d1a52-0000-4000-8000-000000000b0b"
)

type memoryRepository struct {
	projects   map[string]domain.Project
	members    map[string]map[string]domain.ProjectMember
	users      map[string]domain.User
	tasks      map[string]domain.Task
	createErr  error
	writeCalls int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		projects: map[string]domain.Project{},
		members:  map[string]map[string]domain.ProjectMember{},
		tasks:    map[string]domain.Task{},
		users: map[string]domain.User{
			aliceID: {ID: aliceID, Username: "alice"},
			bobID:   {ID: bobID, Username: "bob"},
		},
	}
}

func (m *memoryRepository) CreateProject(_ context.Context, project *domain.Project) error {
	m.writeCalls++
	if m.createErr != nil {
		return m.createErr
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	m.projects[project.ID] = *project
	m.members[project.ID] = map[string]domain.ProjectMember{
		project.OwnerID: {ProjectID: project.ID, UserID: project.OwnerID, Role: domain.MemberRoleOwner},
	}
	return nil
}

func (m *memoryRepository) GetProjectByID(_ context.Context, id string) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memoryRepository) ListProjectsForUser(_ context.Context, userID string) ([]domain.Project, error) {
	out := make([]domain.Project, 0)
	for id, p := range m.projects {
		if _, ok := m.members[id][userID]; ok || p.OwnerID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRepository) UpdateProject(_ context.Context, project *domain.Project) error {
	m.writeCalls++
	if _, ok := m.projects[project.ID]; !ok {
		return repository.ErrNotFound
	}
	project.UpdatedAt = time.Now()
	m.projects[project.ID] = *project
	return nil
}

func (m *memoryRepository) DeleteProject(_ context.Context, id string) error {
	m.writeCalls++
	if _, ok := m.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.projects, id)
	delete(m.members, id)
	return nil
}

func (m *memoryRepository) AddMember(_ context.Context, member *domain.ProjectMember) error {
	m.writeCalls++
	if _, ok := m.members[member.ProjectID][member.UserID]; ok {
		return repository.ErrConflict
	}
	member.JoinedAt = time.Now()
	m.members[member.ProjectID][member.UserID] = *member
	return nil
}

func (m *memoryRepository) GetMember(_ context.Context, projectID, userID string) (*domain.ProjectMember, error) {
	member, ok := m.members[projectID][userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &member, nil
}

func (m *memoryRepository) ListMembers(_ context.Context, projectID string) ([]domain.ProjectMember, error) {
	out := make([]domain.ProjectMember, 0)
	for _, member := range m.members[projectID] {
		out = append(out, member)
	}
	return out, nil
}

func (m *memoryRepository) RemoveMember(_ context.Context, projectID, userID string) ([]string, error) {
	m.writeCalls++
	if _, ok := m.members[projectID][userID]; !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.members[projectID], userID)
	var unassigned []string
	for id, t := range m.tasks {
		if t.ProjectID == projectID && t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
			m.tasks[id] = t
			unassigned = append(unassigned, id)
		}
	}
	sort.Strings(unassigned)
	return unassigned, nil
}

func (m *memoryRepository) CreateUser(context.Context, *domain.User) error { return nil }
func (m *memoryRepository) GetUserByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (m *memoryRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
func (m *memoryRepository) UserExists(context.Context, string, string) (bool, error) {
	return false, nil
}

type recordingNotifier struct {
	events []domain.Event
}

func (r *recordingNotifier) Publish(event domain.Event) {
	r.events = append(r.events, event)
}

func newService(repo *memoryRepository, notifier Notifier) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, repo, repo, notifier, log)
}

func TestCreateValidatesInput(t *testing.T) {
	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing name", CreateInput{Description: "d"}},
		{"blank name", CreateInput{Name: "   ", Description: "d"}},
		{"missing description", CreateInput{Name: "n"}},
		{"name too long", CreateInput{Name: strings.Repeat("x", domain.MaxProjectNameLength+1), Description: "d"}},
		{"unknown status", CreateInput{Name: "n", Description: "d", Status: "archived"}},
		{"end before start", CreateInput{
			Name:        "n",
			Description: "d",
			StartDate:   ptr(time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)),
			EndDate:     ptr(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryRepository()
			svc := newService(repo, nil)
			_, err := svc.Create(context.Background(), aliceID, tc.input)
			if domain.KindOf(err) != domain.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if repo.writeCalls != 0 {
				t.Fatalf("expected no writes, got %d", repo.writeCalls)
			}
		})
	}
}

func TestCreateDefaultsStatusAndRegistersOwner(t *testing.T) {
	repo := newMemoryRepository()
	notifier := &recordingNotifier{}
	svc := newService(repo, notifier)

	project, err := svc.Create(context.Background(), aliceID, CreateInput{Name: "  Apollo ", Description: "Moon"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if project.Name != "Apollo" || project.Status != domain.ProjectStatusPlanning || project.OwnerID != aliceID {
		t.Fatalf("unexpected project %+v", project)
	}
	member, err := repo.GetMember(context.Background(), project.ID, aliceID)
	if err != nil || member.Role != domain.MemberRoleOwner {
		t.Fatalf("expected owner membership, got %+v (%v)", member, err)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != domain.EventProjectUpdated {
		t.Fatalf("expected one project event, got %+v", notifier.events)
	}
}

func TestCreateSurfacesStorageFailure(t *testing.T) {
	repo := newMemoryRepository()
	repo.createErr = errors.New("tx aborted")
	svc := newService(repo, nil)

	if _, err := svc.Create(context.Background(), aliceID, CreateInput{Name: "n", Description: "d"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.projects) != 0 || len(repo.members) != 0 {
		t.Fatalf("expected no partial state")
	}
}

func TestMembershipGovernsVisibility(t *testing.T) {
	repo := newMemoryRepository()
	svc := newService(repo, nil)
	ctx := context.Background()

	project, err := svc.Create(ctx, aliceID, CreateInput{Name: "Apollo", Description: "Moon"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Get(ctx, bobID, project.ID); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected hidden project, got %v", err)
	}
	listed, _ := svc.List(ctx, bobID)
	if len(listed) != 0 {
		t.Fatalf("expected nothing listed for bob, got %d", len(listed))
	}

	if _, err := svc.AddMember(ctx, bobID, project.ID, MemberInput{UserID: bobID}); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected non-owner add to be refused, got %v", err)
	}
	if _, err := svc.AddMember(ctx, aliceID, project.ID, MemberInput{UserID: bobID}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := svc.AddMember(ctx, aliceID, project.ID, MemberInput{UserID: bobID}); domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected duplicate member conflict, got %v", err)
	}

	got, err := svc.Get(ctx, bobID, project.ID)
	if err != nil || got.Name != "Apollo" {
		t.Fatalf("expected member access, got %+v (%v)", got, err)
	}
	listed, _ = svc.List(ctx, bobID)
	if len(listed) != 1 {
		t.Fatalf("expected shared project listed, got %d", len(listed))
	}
}

func TestUpdateRequiresOwnerAndChanges(t *testing.T) {
	repo := newMemoryRepository()
	svc := newService(repo, nil)
	ctx := context.Background()
	project, _ := svc.Create(ctx, aliceID, CreateInput{Name: "Apollo", Description: "Moon"})
	_, _ = svc.AddMember(ctx, aliceID, project.ID, MemberInput{UserID: bobID})
	writes := repo.writeCalls

	name := "Artemis"
	if _, err := svc.Update(ctx, bobID, project.ID, domain.ProjectPatch{Name: &name}); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected member update to be refused, got %v", err)
	}
	if _, err := svc.Update(ctx, aliceID, project.ID, domain.ProjectPatch{}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected empty patch rejection, got %v", err)
	}
	bad := domain.ProjectStatus("archived")
	if _, err := svc.Update(ctx, aliceID, project.ID, domain.ProjectPatch{Status: &bad}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected invalid status rejection, got %v", err)
	}
	if repo.writeCalls != writes {
		t.Fatalf("rejected updates must not write")
	}

	updated, err := svc.Update(ctx, aliceID, project.ID, domain.ProjectPatch{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Artemis" || updated.Description != "Moon" {
		t.Fatalf("unexpected merge result %+v", updated)
	}
}

func TestDeleteAndMemberRemoval(t *testing.T) {
	repo := newMemoryRepository()
	svc := newService(repo, nil)
	ctx := context.Background()
	project, _ := svc.Create(ctx, aliceID, CreateInput{Name: "Apollo", Description: "Moon"})
	_, _ = svc.AddMember(ctx, aliceID, project.ID, MemberInput{UserID: bobID, Role: domain.MemberRoleManager})

	if err := svc.RemoveMember(ctx, aliceID, project.ID, aliceID); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected owner removal refusal, got %v", err)
	}
	if err := svc.Delete(ctx, bobID, project.ID); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected manager delete refusal, got %v", err)
	}
	if err := svc.RemoveMember(ctx, aliceID, project.ID, bobID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if err := svc.Delete(ctx, aliceID, project.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, aliceID, project.ID); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected deleted project to be gone, got %v", err)
	}
}

func TestRemoveMemberUnassignsTasksAndEvictsWatcher(t *testing.T) {
	repo := newMemoryRepository()
	notifier := &recordingNotifier{}
	svc := newService(repo, notifier)
	ctx := context.Background()
	project, _ := svc.Create(ctx, aliceID, CreateInput{Name: "Apollo", Description: "Moon"})
	_, _ = svc.AddMember(ctx, aliceID, project.ID, MemberInput{UserID: bobID})
	repo.tasks["t1"] = domain.Task{ID: "t1", ProjectID: project.ID, AssigneeID: ptr(bobID)}
	repo.tasks["t2"] = domain.Task{ID: "t2", ProjectID: project.ID, AssigneeID: ptr(aliceID)}
	repo.tasks["t3"] = domain.Task{ID: "t3", ProjectID: "other", AssigneeID: ptr(bobID)}
	notifier.events = nil

	if err := svc.RemoveMember(ctx, aliceID, project.ID, bobID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if repo.tasks["t1"].AssigneeID != nil {
		t.Fatalf("expected bob unassigned from t1")
	}
	if a := repo.tasks["t2"].AssigneeID; a == nil || *a != aliceID {
		t.Fatalf("expected alice's task untouched, got %v", a)
	}
	if a := repo.tasks["t3"].AssigneeID; a == nil || *a != bobID {
		t.Fatalf("expected other project untouched, got %v", a)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("expected removal and task events, got %+v", notifier.events)
	}
	removal := notifier.events[0]
	if removal.Type != domain.EventProjectUpdated || removal.EvictUserID != bobID || removal.UserID != bobID {
		t.Fatalf("unexpected removal event %+v", removal)
	}
	if change, ok := removal.Data.(domain.ProjectChange); !ok || change.Action != domain.ActionMemberRemoved || change.MemberID != bobID {
		t.Fatalf("unexpected removal payload %+v", removal.Data)
	}
	taskEvent := notifier.events[1]
	if change, ok := taskEvent.Data.(domain.TaskChange); !ok || taskEvent.Type != domain.EventTaskUpdated || change.TaskID != "t1" {
		t.Fatalf("unexpected task event %+v", taskEvent)
	}

	if err := svc.RemoveMember(ctx, aliceID, project.ID, bobID); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected second removal to report missing member, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
