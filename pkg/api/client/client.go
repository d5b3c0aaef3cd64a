package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
)

// Client provides typed access to the TaskFlow API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:5000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		if decodeErr != nil {
			return APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return APIError{Status: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if v == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// TokenPair includes access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Session is the payload returned by register and login.
type Session struct {
	User   domain.User `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// RegisterInput captures the payload for account creation.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, input RegisterInput) (Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", input, "", &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, "", &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Refresh trades a refresh token for a new pair. The old refresh token stops working.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var resp struct {
		Tokens TokenPair `json:"tokens"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, "", &resp); err != nil {
		return TokenPair{}, err
	}
	return resp.Tokens, nil
}

// Logout revokes refreshToken.
func (c *Client) Logout(ctx context.Context, token, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": refreshToken}, token, nil)
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context, token string) (domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, token, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// CreateProjectInput captures the payload for project creation.
type CreateProjectInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// ListProjects returns projects the caller owns or belongs to.
func (c *Client) ListProjects(ctx context.Context, token string) ([]domain.Project, error) {
	var projects []domain.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, token, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches a single project.
func (c *Client) GetProject(ctx context.Context, token, projectID string) (domain.Project, error) {
	var project domain.Project
	if err := c.do(ctx, http.MethodGet, projectPath(projectID), nil, token, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// CreateProject provisions a new project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, token string, input CreateProjectInput) (domain.Project, error) {
	var project domain.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", input, token, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// UpdateProject applies a partial update.
func (c *Client) UpdateProject(ctx context.Context, token, projectID string, patch domain.ProjectPatch) (domain.Project, error) {
	var project domain.Project
	if err := c.do(ctx, http.MethodPut, projectPath(projectID), patch, token, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// DeleteProject removes a project and its tasks.
func (c *Client) DeleteProject(ctx context.Context, token, projectID string) error {
	return c.do(ctx, http.MethodDelete, projectPath(projectID), nil, token, nil)
}

// ListMembers returns the members of a project.
func (c *Client) ListMembers(ctx context.Context, token, projectID string) ([]domain.ProjectMember, error) {
	var members []domain.ProjectMember
	if err := c.do(ctx, http.MethodGet, projectPath(projectID)+"/members", nil, token, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// AddMember adds userID to a project. An empty role defaults to member.
func (c *Client) AddMember(ctx context.Context, token, projectID, userID string, role domain.MemberRole) (domain.ProjectMember, error) {
	body := map[string]string{"userId": userID}
	if role != "" {
		body["role"] = string(role)
	}
	var member domain.ProjectMember
	if err := c.do(ctx, http.MethodPost, projectPath(projectID)+"/members", body, token, &member); err != nil {
		return domain.ProjectMember{}, err
	}
	return member, nil
}

// RemoveMember drops userID from a project.
func (c *Client) RemoveMember(ctx context.Context, token, projectID, userID string) error {
	path := projectPath(projectID) + "/members/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, token, nil)
}

// CreateTaskInput captures the payload for task creation.
type CreateTaskInput struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	ProjectID      string     `json:"projectId"`
	Status         string     `json:"status,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	AssigneeID     *string    `json:"assigneeId,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	EstimatedHours *int       `json:"estimatedHours,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

// ListTasks returns tasks across the caller's projects matching filter.
func (c *Client) ListTasks(ctx context.Context, token string, filter domain.TaskFilter) ([]domain.Task, error) {
	query := url.Values{}
	if filter.ProjectID != "" {
		query.Set("projectId", filter.ProjectID)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Priority != "" {
		query.Set("priority", string(filter.Priority))
	}
	if filter.AssigneeID != "" {
		query.Set("assigneeId", filter.AssigneeID)
	}
	path := "/api/tasks"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, path, nil, token, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, token, taskID string) (domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodGet, taskPath(taskID), nil, token, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// CreateTask adds a task to a project.
func (c *Client) CreateTask(ctx context.Context, token string, input CreateTaskInput) (domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", input, token, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, token, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodPut, taskPath(taskID), patch, token, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, token, taskID string) error {
	return c.do(ctx, http.MethodDelete, taskPath(taskID), nil, token, nil)
}

// AddTags merges tags into the task's tag set.
func (c *Client) AddTags(ctx context.Context, token, taskID string, tags []string) (domain.Task, error) {
	return c.tags(ctx, http.MethodPost, token, taskID, tags)
}

// RemoveTags drops exact matches of tags from the task.
func (c *Client) RemoveTags(ctx context.Context, token, taskID string, tags []string) (domain.Task, error) {
	return c.tags(ctx, http.MethodDelete, token, taskID, tags)
}

func (c *Client) tags(ctx context.Context, method, token, taskID string, tags []string) (domain.Task, error) {
	var task domain.Task
	body := map[string][]string{"tags": tags}
	if err := c.do(ctx, method, taskPath(taskID)+"/tags", body, token, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func projectPath(id string) string {
	return "/api/projects/" + url.PathEscape(id)
}

func taskPath(id string) string {
	return "/api/tasks/" + url.PathEscape(id)
}
