package store

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

type staticToken string

func (t staticToken) AccessToken() string { return string(t) }

type fakeAPI struct {
	mu       sync.Mutex
	tasks    map[string]domain.Task
	projects []domain.Project
	listErr  error
	// listHook, when set, runs inside ListTasks before it returns.
	listHook  func(call int)
	listCalls int
	logoutErr error
	refreshOK bool
	loggedOut bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{tasks: map[string]domain.Task{}}
}

func (f *fakeAPI) Register(_ context.Context, input client.RegisterInput) (client.Session, error) {
	if input.Email == "taken@example.com" {
		return client.Session{}, client.APIError{Status: http.StatusConflict, Message: "User already exists"}
	}
	return client.Session{
		User:   domain.User{ID: "u1", Email: input.Email, Username: input.Username},
		Tokens: client.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 900},
	}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (client.Session, error) {
	if password != "Passw0rdOK" {
		return client.Session{}, client.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return client.Session{
		User:   domain.User{ID: "u1", Email: email},
		Tokens: client.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 900},
	}, nil
}

func (f *fakeAPI) Refresh(_ context.Context, refreshToken string) (client.TokenPair, error) {
	if !f.refreshOK {
		return client.TokenPair{}, client.APIError{Status: http.StatusUnauthorized, Message: "Invalid refresh token"}
	}
	return client.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: 900}, nil
}

func (f *fakeAPI) Logout(context.Context, string, string) error {
	f.loggedOut = true
	return f.logoutErr
}

func (f *fakeAPI) Profile(_ context.Context, token string) (domain.User, error) {
	return domain.User{ID: "u1", Email: "ada@example.com", FirstName: "Ada"}, nil
}

func (f *fakeAPI) ListProjects(context.Context, string) ([]domain.Project, error) {
	return append([]domain.Project(nil), f.projects...), nil
}

func (f *fakeAPI) GetProject(_ context.Context, _, id string) (domain.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, client.APIError{Status: http.StatusNotFound, Message: domain.MsgProjectNotFound}
}

func (f *fakeAPI) CreateProject(_ context.Context, _ string, input client.CreateProjectInput) (domain.Project, error) {
	p := domain.Project{ID: "p-" + input.Name, Name: input.Name, Description: input.Description, Status: domain.ProjectStatusPlanning}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeAPI) UpdateProject(_ context.Context, _, id string, patch domain.ProjectPatch) (domain.Project, error) {
	for i, p := range f.projects {
		if p.ID == id {
			f.projects[i] = patch.Apply(p)
			return f.projects[i], nil
		}
	}
	return domain.Project{}, client.APIError{Status: http.StatusNotFound, Message: domain.MsgProjectNotFound}
}

func (f *fakeAPI) DeleteProject(_ context.Context, _, id string) error {
	for i, p := range f.projects {
		if p.ID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return client.APIError{Status: http.StatusNotFound, Message: domain.MsgProjectNotFound}
}

func (f *fakeAPI) ListTasks(_ context.Context, _ string, filter domain.TaskFilter) ([]domain.Task, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	hook := f.listHook
	err := f.listErr
	var out []domain.Task
	for _, t := range f.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeAPI) GetTask(_ context.Context, _, id string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, client.APIError{Status: http.StatusNotFound, Message: domain.MsgTaskNotFound}
	}
	return t, nil
}

func (f *fakeAPI) CreateTask(_ context.Context, _ string, input client.CreateTaskInput) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := domain.Task{ID: "t-" + input.Title, Title: input.Title, ProjectID: input.ProjectID, Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityMedium, Tags: []string{}}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, _, id string, patch domain.TaskPatch) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, client.APIError{Status: http.StatusNotFound, Message: domain.MsgTaskNotFound}
	}
	if patch.Empty() {
		return domain.Task{}, client.APIError{Status: http.StatusBadRequest, Message: domain.MsgNoFieldsToUpdate}
	}
	t = patch.Apply(t)
	f.tasks[id] = t
	return t, nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return client.APIError{Status: http.StatusNotFound, Message: domain.MsgTaskNotFound}
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeAPI) AddTags(_ context.Context, _, id string, tags []string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.Tags = domain.UnionTags(t.Tags, tags)
	f.tasks[id] = t
	return t, nil
}

func (f *fakeAPI) RemoveTags(_ context.Context, _, id string, tags []string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.Tags = domain.WithoutTags(t.Tags, tags)
	f.tasks[id] = t
	return t, nil
}

func TestAuthStoreLoginPersistsSession(t *testing.T) {
	api := newFakeAPI()
	persist := NewFileSession(filepath.Join(t.TempDir(), "session.json"), "sealing-secret")
	auth := NewAuthStore(api, persist)

	var seen []bool
	cancel := auth.Subscribe(func(s AuthState) { seen = append(seen, s.Loading) })
	defer cancel()

	if err := auth.Login(context.Background(), "ada@example.com", "wrong"); err == nil {
		t.Fatalf("expected login failure")
	}
	if got := auth.State().Error; got != "Invalid credentials" {
		t.Fatalf("expected server message, got %q", got)
	}
	if err := auth.Login(context.Background(), "ada@example.com", "Passw0rdOK"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false, true, false}, seen); diff != "" {
		t.Fatalf("loading transitions mismatch (-want +got):\n%s", diff)
	}

	restored := NewAuthStore(api, persist)
	if err := restored.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if diff := cmp.Diff(auth.State(), restored.State()); diff != "" {
		t.Fatalf("restored session mismatch (-want +got):\n%s", diff)
	}

	if err := restored.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !api.loggedOut || restored.State().Authenticated() {
		t.Fatalf("expected server logout and cleared state")
	}
	session, err := persist.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Session{}, session); diff != "" {
		t.Fatalf("expected cleared session (-want +got):\n%s", diff)
	}
}

func TestAuthStoreLogoutClearsLocallyOnServerError(t *testing.T) {
	api := newFakeAPI()
	api.logoutErr = errors.New("connection refused")
	auth := NewAuthStore(api, nil)
	if err := auth.Register(context.Background(), client.RegisterInput{Email: "ada@example.com", Username: "ada"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := auth.Logout(context.Background()); err == nil {
		t.Fatalf("expected server error to surface")
	}
	if auth.State().Authenticated() {
		t.Fatalf("expected local session cleared")
	}
}

func TestAuthStoreRefresh(t *testing.T) {
	api := newFakeAPI()
	auth := NewAuthStore(api, nil)
	if err := auth.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	_ = auth.Login(context.Background(), "ada@example.com", "Passw0rdOK")

	api.refreshOK = true
	if err := auth.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := auth.AccessToken(); got != "access-2" {
		t.Fatalf("expected rotated token, got %q", got)
	}

	api.refreshOK = false
	if err := auth.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh failure")
	}
	if auth.State().Authenticated() {
		t.Fatalf("expected rejected refresh to end the session")
	}
}

func TestProjectStoreActions(t *testing.T) {
	api := newFakeAPI()
	api.projects = []domain.Project{{ID: "p1", Name: "Apollo"}}
	projects := NewProjectStore(api, staticToken("tok"))
	ctx := context.Background()

	if err := projects.Fetch(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	created, err := projects.Create(ctx, client.CreateProjectInput{Name: "Borealis"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	name := "Apollo 11"
	if _, err := projects.Update(ctx, "p1", domain.ProjectPatch{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []domain.Project{{ID: "p1", Name: "Apollo 11"}, created}
	if diff := cmp.Diff(want, projects.State().Projects); diff != "" {
		t.Fatalf("projects mismatch (-want +got):\n%s", diff)
	}

	before := projects.State().Projects
	if err := projects.Delete(ctx, "missing"); err == nil {
		t.Fatalf("expected delete failure")
	}
	st := projects.State()
	if st.Error != domain.MsgProjectNotFound || st.Loading {
		t.Fatalf("unexpected failure state %+v", st)
	}
	if diff := cmp.Diff(before, st.Projects); diff != "" {
		t.Fatalf("failure must leave the list untouched (-want +got):\n%s", diff)
	}
	projects.ClearError()

	if _, err := projects.Get(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := projects.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st = projects.State()
	if st.Current != nil || len(st.Projects) != 1 || st.Error != "" {
		t.Fatalf("unexpected state after delete %+v", st)
	}
}

func TestTaskStoreReplacesReturnedRecords(t *testing.T) {
	api := newFakeAPI()
	tasks := NewTaskStore(api, staticToken("tok"))
	ctx := context.Background()

	first, err := tasks.Create(ctx, client.CreateTaskInput{Title: "one", ProjectID: "p1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := tasks.Get(ctx, first.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	moved, err := tasks.MoveToStatus(ctx, first.ID, domain.TaskStatusDone)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := tasks.Assign(ctx, first.ID, "u2"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := tasks.SetPriority(ctx, first.ID, domain.TaskPriorityUrgent); err != nil {
		t.Fatalf("priority: %v", err)
	}
	if _, err := tasks.AddTags(ctx, first.ID, []string{"ops", "ui", "ops"}); err != nil {
		t.Fatalf("tags: %v", err)
	}
	last, err := tasks.RemoveTags(ctx, first.ID, []string{"ui"})
	if err != nil {
		t.Fatalf("untag: %v", err)
	}

	assignee := "u2"
	want := moved
	want.AssigneeID = &assignee
	want.Priority = domain.TaskPriorityUrgent
	want.Tags = []string{"ops"}
	st := tasks.State()
	if diff := cmp.Diff([]domain.Task{want}, st.Tasks); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&last, st.Selected); diff != "" {
		t.Fatalf("selected mismatch (-want +got):\n%s", diff)
	}

	unassigned, err := tasks.Unassign(ctx, first.ID)
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if unassigned.AssigneeID != nil {
		t.Fatalf("expected assignee cleared")
	}

	if _, err := tasks.Update(ctx, first.ID, domain.TaskPatch{}); err == nil {
		t.Fatalf("expected empty update failure")
	}
	if got := tasks.State().Error; got != domain.MsgNoFieldsToUpdate {
		t.Fatalf("unexpected error %q", got)
	}

	if err := tasks.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st = tasks.State()
	if len(st.Tasks) != 0 || st.Selected != nil {
		t.Fatalf("expected task removed, got %+v", st)
	}
}

func TestTaskStoreFetchFailureKeepsList(t *testing.T) {
	api := newFakeAPI()
	api.tasks["t1"] = domain.Task{ID: "t1", Status: domain.TaskStatusTodo}
	tasks := NewTaskStore(api, staticToken("tok"))
	ctx := context.Background()
	if err := tasks.Fetch(ctx, domain.TaskFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	api.listErr = client.APIError{Status: http.StatusInternalServerError}
	if err := tasks.Fetch(ctx, domain.TaskFilter{Status: domain.TaskStatusDone}); err == nil {
		t.Fatalf("expected fetch error")
	}
	st := tasks.State()
	if st.Error != "Failed to fetch tasks" || len(st.Tasks) != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Filters.Status != domain.TaskStatusDone {
		t.Fatalf("expected filter recorded, got %+v", st.Filters)
	}
}

func TestTaskStoreDiscardsSupersededFetch(t *testing.T) {
	api := newFakeAPI()
	api.tasks["t1"] = domain.Task{ID: "t1", Status: domain.TaskStatusTodo}
	api.tasks["t2"] = domain.Task{ID: "t2", Status: domain.TaskStatusDone}
	tasks := NewTaskStore(api, staticToken("tok"))

	entered := make(chan struct{})
	release := make(chan struct{})
	api.listHook = func(call int) {
		if call == 1 {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- tasks.Fetch(context.Background(), domain.TaskFilter{})
	}()
	<-entered

	if err := tasks.Fetch(context.Background(), domain.TaskFilter{Status: domain.TaskStatusDone}); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	st := tasks.State()
	if diff := cmp.Diff([]domain.Task{{ID: "t2", Status: domain.TaskStatusDone}}, st.Tasks); diff != "" {
		t.Fatalf("stale fetch overwrote state (-want +got):\n%s", diff)
	}
	if st.Loading {
		t.Fatalf("expected loading cleared")
	}
}

func TestTaskStoreCancelledFetchIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.tasks["t1"] = domain.Task{ID: "t1"}
	tasks := NewTaskStore(api, staticToken("tok"))

	ctx, cancel := context.WithCancel(context.Background())
	api.listHook = func(int) { cancel() }
	if err := tasks.Fetch(ctx, domain.TaskFilter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if st := tasks.State(); len(st.Tasks) != 0 || st.Loading {
		t.Fatalf("expected untouched state, got %+v", st)
	}
}

func TestActionsRequireSession(t *testing.T) {
	tasks := NewTaskStore(newFakeAPI(), staticToken(""))
	if err := tasks.Fetch(context.Background(), domain.TaskFilter{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestByStatusGroupsColumns(t *testing.T) {
	st := TaskState{Tasks: []domain.Task{
		{ID: "a", Status: domain.TaskStatusTodo},
		{ID: "b", Status: domain.TaskStatusDone},
		{ID: "c", Status: domain.TaskStatusTodo},
	}}
	cols := st.ByStatus()
	if diff := cmp.Diff([]string{"a", "c"}, ids(cols[domain.TaskStatusTodo])); diff != "" {
		t.Fatalf("todo column mismatch (-want +got):\n%s", diff)
	}
	if len(cols[domain.TaskStatusInReview]) != 0 {
		t.Fatalf("expected empty in_review column")
	}
}

func ids(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
