package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
)

const projectSelect = `SELECT p.id, p.name, p.description, p.status, p.start_date, p.end_date, p.owner_id,
		u.first_name, u.last_name, p.created_at, p.updated_at
	FROM projects p
	INNER JOIN users u ON u.id = p.owner_id`

// CreateProject inserts the project row and the owner's membership row inside a
// single transaction.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return fmt.Errorf("project required")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const projectInsert = `INSERT INTO projects (id, name, description, status, start_date, end_date, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, projectInsert,
		project.ID,
		project.Name,
		project.Description,
		project.Status,
		timePtrToNil(project.StartDate),
		timePtrToNil(project.EndDate),
		project.OwnerID,
	).Scan(&project.CreatedAt, &project.UpdatedAt); err != nil {
		return classify(err)
	}

	const memberInsert = `INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, memberInsert, project.ID, project.OwnerID, domain.MemberRoleOwner); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// GetProjectByID fetches project details with the owner's name.
func (r *Repository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	const query = projectSelect + ` WHERE p.id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, projectID))
}

// ListProjectsForUser returns projects owned by or shared with the user.
func (r *Repository) ListProjectsForUser(ctx context.Context, userID string) ([]domain.Project, error) {
	const query = projectSelect + `
	LEFT JOIN project_members pm ON pm.project_id = p.id AND pm.user_id = $1
	WHERE p.owner_id = $1 OR pm.user_id IS NOT NULL
	ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, classify(rows.Err())
}

// UpdateProject persists the merged project and refreshes updated_at.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return fmt.Errorf("project required")
	}
	const query = `UPDATE projects
		SET name = $2,
			description = $3,
			status = $4,
			start_date = $5,
			end_date = $6,
			updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	row := r.pool.QueryRow(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.Status,
		timePtrToNil(project.StartDate),
		timePtrToNil(project.EndDate),
	)
	if err := row.Scan(&project.UpdatedAt); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteProject removes a project; tasks and memberships cascade.
func (r *Repository) DeleteProject(ctx context.Context, projectID string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, projectID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Status,
		&p.StartDate,
		&p.EndDate,
		&p.OwnerID,
		&p.OwnerFirstName,
		&p.OwnerLastName,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, classify(err)
	}
	return &p, nil
}
