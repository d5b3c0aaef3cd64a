package postgres

import (
	"context"
	"fmt"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
)

const taskSelect = `SELECT t.id, t.title, t.description, t.status, t.priority, t.project_id, t.assignee_id,
		t.reporter_id, t.due_date, t.estimated_hours, t.actual_hours, t.tags, t.created_at, t.updated_at,
		p.name,
		a.username, a.first_name, a.last_name, a.email,
		rp.username, rp.first_name, rp.last_name, rp.email
	FROM tasks t
	INNER JOIN projects p ON p.id = t.project_id
	INNER JOIN users rp ON rp.id = t.reporter_id
	LEFT JOIN users a ON a.id = t.assignee_id`

// CreateTask inserts a task.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("task required")
	}
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	const query = `INSERT INTO tasks (id, title, description, status, priority, project_id, assignee_id,
			reporter_id, due_date, estimated_hours, actual_hours, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`
	row := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.ProjectID,
		stringPtrToNil(task.AssigneeID),
		task.ReporterID,
		timePtrToNil(task.DueDate),
		intPtrToNil(task.EstimatedHours),
		intPtrToNil(task.ActualHours),
		tags,
	)
	if err := row.Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return classify(err)
	}
	return nil
}

// GetTaskByID fetches a task with denormalized display fields.
func (r *Repository) GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error) {
	const query = taskSelect + ` WHERE t.id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, taskID))
}

// ListTasksForUser returns tasks visible to the user. Empty filter fields match everything.
func (r *Repository) ListTasksForUser(ctx context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error) {
	const query = taskSelect + `
	LEFT JOIN project_members pm ON pm.project_id = p.id AND pm.user_id = $1
	WHERE (p.owner_id = $1 OR pm.user_id IS NOT NULL)
		AND ($2::uuid IS NULL OR t.project_id = $2::uuid)
		AND ($3::text IS NULL OR t.status = $3::text)
		AND ($4::text IS NULL OR t.priority = $4::text)
		AND ($5::uuid IS NULL OR t.assignee_id = $5::uuid)
	ORDER BY t.created_at DESC`
	rows, err := r.pool.Query(ctx, query,
		userID,
		nilIfEmpty(filter.ProjectID),
		nilIfEmpty(string(filter.Status)),
		nilIfEmpty(string(filter.Priority)),
		nilIfEmpty(filter.AssigneeID),
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, classify(rows.Err())
}

// UpdateTask persists the merged task and refreshes updated_at.
func (r *Repository) UpdateTask(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("task required")
	}
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	const query = `UPDATE tasks
		SET title = $2,
			description = $3,
			status = $4,
			priority = $5,
			assignee_id = $6,
			due_date = $7,
			estimated_hours = $8,
			actual_hours = $9,
			tags = $10,
			updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	row := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		stringPtrToNil(task.AssigneeID),
		timePtrToNil(task.DueDate),
		intPtrToNil(task.EstimatedHours),
		intPtrToNil(task.ActualHours),
		tags,
	)
	if err := row.Scan(&task.UpdatedAt); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteTask removes a task.
func (r *Repository) DeleteTask(ctx context.Context, taskID string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, taskID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                               domain.Task
		assigneeUsername, assigneeFirst *string
		assigneeLast, assigneeEmail     *string
		reporterUsername, reporterFirst string
		reporterLast, reporterEmail     string
	)
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.ProjectID,
		&t.AssigneeID,
		&t.ReporterID,
		&t.DueDate,
		&t.EstimatedHours,
		&t.ActualHours,
		&t.Tags,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ProjectName,
		&assigneeUsername,
		&assigneeFirst,
		&assigneeLast,
		&assigneeEmail,
		&reporterUsername,
		&reporterFirst,
		&reporterLast,
		&reporterEmail,
	); err != nil {
		return nil, classify(err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.AssigneeID != nil && assigneeUsername != nil {
		t.Assignee = &domain.UserSummary{
			ID:        *t.AssigneeID,
			Username:  *assigneeUsername,
			FirstName: deref(assigneeFirst),
			LastName:  deref(assigneeLast),
			Email:     deref(assigneeEmail),
		}
	}
	t.Reporter = &domain.UserSummary{
		ID:        t.ReporterID,
		Username:  reporterUsername,
		FirstName: reporterFirst,
		LastName:  reporterLast,
		Email:     reporterEmail,
	}
	return &t, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
