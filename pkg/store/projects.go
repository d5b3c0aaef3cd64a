package store

import (
	"context"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

// ProjectAPI is the subset of the API client the project store drives.
type ProjectAPI interface {
	ListProjects(ctx context.Context, token string) ([]domain.Project, error)
	GetProject(ctx context.Context, token, projectID string) (domain.Project, error)
	CreateProject(ctx context.Context, token string, input client.CreateProjectInput) (domain.Project, error)
	UpdateProject(ctx context.Context, token, projectID string, patch domain.ProjectPatch) (domain.Project, error)
	DeleteProject(ctx context.Context, token, projectID string) error
}

// ProjectState is the project list plus the last fetched project.
type ProjectState struct {
	Projects []domain.Project
	Current  *domain.Project
	Loading  bool
	Error    string
}

func projectID(p domain.Project) string { return p.ID }

func projectsStarted(s ProjectState) ProjectState {
	s.Loading = true
	s.Error = ""
	return s
}

func projectsLoaded(s ProjectState, projects []domain.Project) ProjectState {
	s.Projects = projects
	s.Loading = false
	return s
}

func projectStored(s ProjectState, p domain.Project) ProjectState {
	s.Projects = upsertByID(s.Projects, p, projectID)
	if s.Current != nil && s.Current.ID == p.ID {
		s.Current = &p
	}
	s.Loading = false
	return s
}

func projectFetched(s ProjectState, p domain.Project) ProjectState {
	s.Current = &p
	s.Loading = false
	return s
}

func projectRemoved(s ProjectState, id string) ProjectState {
	s.Projects = removeByID(s.Projects, id, projectID)
	if s.Current != nil && s.Current.ID == id {
		s.Current = nil
	}
	s.Loading = false
	return s
}

func projectsFailed(s ProjectState, msg string) ProjectState {
	s.Loading = false
	s.Error = msg
	return s
}

// ProjectStore caches the caller's projects.
type ProjectStore struct {
	api    ProjectAPI
	tokens TokenSource
	c      *container[ProjectState]
	gen    uint64
}

// NewProjectStore builds an empty store.
func NewProjectStore(api ProjectAPI, tokens TokenSource) *ProjectStore {
	return &ProjectStore{api: api, tokens: tokens, c: newContainer(ProjectState{})}
}

// State returns a snapshot.
func (s *ProjectStore) State() ProjectState { return s.c.snapshot() }

// Subscribe registers fn for every state change and returns its cancel func.
func (s *ProjectStore) Subscribe(fn func(ProjectState)) func() { return s.c.subscribe(fn) }

// ClearError drops the displayed error.
func (s *ProjectStore) ClearError() {
	s.c.apply(func(st ProjectState) ProjectState {
		st.Error = ""
		return st
	})
}

func (s *ProjectStore) fail(err error, fallback string) error {
	s.c.apply(func(st ProjectState) ProjectState { return projectsFailed(st, displayError(err, fallback)) })
	return err
}

// Fetch replaces the project list. A response that arrives after a newer
// Fetch started, or after ctx ended, is discarded.
func (s *ProjectStore) Fetch(ctx context.Context) error {
	token := s.tokens.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	var gen uint64
	s.c.apply(func(st ProjectState) ProjectState {
		s.gen++
		gen = s.gen
		return projectsStarted(st)
	})
	projects, err := s.api.ListProjects(ctx, token)
	var result error
	s.c.apply(func(st ProjectState) ProjectState {
		switch {
		case gen != s.gen:
			return st
		case ctx.Err() != nil:
			result = ctx.Err()
			st.Loading = false
			return st
		case err != nil:
			result = err
			return projectsFailed(st, displayError(err, "Failed to fetch projects"))
		}
		return projectsLoaded(st, projects)
	})
	return result
}

// Get loads one project into Current.
func (s *ProjectStore) Get(ctx context.Context, id string) (domain.Project, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return domain.Project{}, ErrNotAuthenticated
	}
	s.c.apply(projectsStarted)
	p, err := s.api.GetProject(ctx, token, id)
	if err != nil {
		return domain.Project{}, s.fail(err, "Failed to fetch project")
	}
	s.c.apply(func(st ProjectState) ProjectState { return projectFetched(st, p) })
	return p, nil
}

// Create adds a project and appends it to the list.
func (s *ProjectStore) Create(ctx context.Context, input client.CreateProjectInput) (domain.Project, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return domain.Project{}, ErrNotAuthenticated
	}
	s.c.apply(projectsStarted)
	p, err := s.api.CreateProject(ctx, token, input)
	if err != nil {
		return domain.Project{}, s.fail(err, "Failed to create project")
	}
	s.c.apply(func(st ProjectState) ProjectState { return projectStored(st, p) })
	return p, nil
}

// Update applies patch and replaces the project with the server's copy.
func (s *ProjectStore) Update(ctx context.Context, id string, patch domain.ProjectPatch) (domain.Project, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return domain.Project{}, ErrNotAuthenticated
	}
	s.c.apply(projectsStarted)
	p, err := s.api.UpdateProject(ctx, token, id, patch)
	if err != nil {
		return domain.Project{}, s.fail(err, "Failed to update project")
	}
	s.c.apply(func(st ProjectState) ProjectState { return projectStored(st, p) })
	return p, nil
}

// Delete removes the project from the server and the list.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	token := s.tokens.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	s.c.apply(projectsStarted)
	if err := s.api.DeleteProject(ctx, token, id); err != nil {
		return s.fail(err, "Failed to delete project")
	}
	s.c.apply(func(st ProjectState) ProjectState { return projectRemoved(st, id) })
	return nil
}
