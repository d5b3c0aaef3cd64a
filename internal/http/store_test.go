package httpx

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
)

// memStore backs every repository interface for router tests.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[string]domain.User
	projects map[string]domain.Project
	members  map[string]map[string]domain.ProjectMember
	tasks    map[string]domain.Task
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		users:    map[string]domain.User{},
		projects: map[string]domain.Project{},
		members:  map[string]map[string]domain.ProjectMember{},
		tasks:    map[string]domain.Task{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.CreatedAt = m.tick()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) UserExists(_ context.Context, email, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateProject(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	m.projects[p.ID] = *p
	m.members[p.ID] = map[string]domain.ProjectMember{
		p.OwnerID: {ProjectID: p.ID, UserID: p.OwnerID, Role: domain.MemberRoleOwner, JoinedAt: p.CreatedAt},
	}
	return nil
}

func (m *memStore) GetProjectByID(_ context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) ListProjectsForUser(_ context.Context, userID string) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Project, 0)
	for id, p := range m.projects {
		if _, ok := m.members[id][userID]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateProject(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = m.tick()
	m.projects[p.ID] = *p
	return nil
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.projects, id)
	delete(m.members, id)
	for taskID, t := range m.tasks {
		if t.ProjectID == id {
			delete(m.tasks, taskID)
		}
	}
	return nil
}

func (m *memStore) AddMember(_ context.Context, member *domain.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[member.ProjectID][member.UserID]; ok {
		return repository.ErrConflict
	}
	member.JoinedAt = m.tick()
	m.members[member.ProjectID][member.UserID] = *member
	return nil
}

func (m *memStore) GetMember(_ context.Context, projectID, userID string) (*domain.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[projectID][userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &member, nil
}

func (m *memStore) ListMembers(_ context.Context, projectID string) ([]domain.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ProjectMember, 0, len(m.members[projectID]))
	for _, member := range m.members[projectID] {
		out = append(out, member)
	}
	return out, nil
}

func (m *memStore) RemoveMember(_ context.Context, projectID, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[projectID][userID]; !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.members[projectID], userID)
	var unassigned []string
	for id, t := range m.tasks {
		if t.ProjectID == projectID && t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
			t.Assignee = nil
			t.UpdatedAt = m.tick()
			m.tasks[id] = t
			unassigned = append(unassigned, id)
		}
	}
	return unassigned, nil
}

func (m *memStore) CreateTask(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	t.CreatedAt = m.tick()
	t.UpdatedAt = t.CreatedAt
	m.tasks[t.ID] = *t
	return nil
}

func (m *memStore) GetTaskByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.ProjectName = m.projects[t.ProjectID].Name
	return &t, nil
}

func (m *memStore) ListTasksForUser(_ context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Task, 0)
	for _, t := range m.tasks {
		if _, ok := m.members[t.ProjectID][userID]; !ok {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		t.ProjectName = m.projects[t.ProjectID].Name
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateTask(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.tasks[t.ID]; !ok {
		return repository.ErrNotFound
	}
	t.UpdatedAt = m.tick()
	m.tasks[t.ID] = *t
	return nil
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}
