package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
)

const memberSelect = `SELECT pm.project_id, pm.user_id, pm.role, pm.joined_at,
		u.username, u.email, u.first_name, u.last_name
	FROM project_members pm
	INNER JOIN users u ON u.id = pm.user_id`

// AddMember inserts a membership row.
func (r *Repository) AddMember(ctx context.Context, member *domain.ProjectMember) error {
	if member == nil {
		return fmt.Errorf("member required")
	}
	const query = `INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3) RETURNING joined_at`
	if err := r.pool.QueryRow(ctx, query, member.ProjectID, member.UserID, member.Role).Scan(&member.JoinedAt); err != nil {
		return classify(err)
	}
	return nil
}

// GetMember returns one membership.
func (r *Repository) GetMember(ctx context.Context, projectID, userID string) (*domain.ProjectMember, error) {
	const query = memberSelect + ` WHERE pm.project_id = $1 AND pm.user_id = $2`
	return scanMember(r.pool.QueryRow(ctx, query, projectID, userID))
}

// ListMembers returns the project's members, owner first.
func (r *Repository) ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error) {
	const query = memberSelect + `
	WHERE pm.project_id = $1
	ORDER BY CASE pm.role WHEN 'owner' THEN 0 WHEN 'manager' THEN 1 ELSE 2 END, pm.joined_at`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	members := make([]domain.ProjectMember, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
	}
	return members, classify(rows.Err())
}

// RemoveMember deletes a membership row and unassigns the user's tasks in the
// project inside a single transaction.
func (r *Repository) RemoveMember(ctx context.Context, projectID, userID string) ([]string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const memberDelete = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	tag, err := tx.Exec(ctx, memberDelete, projectID, userID)
	if err != nil {
		return nil, classify(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}

	const unassign = `UPDATE tasks SET assignee_id = NULL, updated_at = NOW()
		WHERE project_id = $1 AND assignee_id = $2
		RETURNING id`
	rows, err := tx.Query(ctx, unassign, projectID, userID)
	if err != nil {
		return nil, classify(err)
	}
	taskIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return taskIDs, nil
}

func scanMember(row rowScanner) (*domain.ProjectMember, error) {
	var m domain.ProjectMember
	if err := row.Scan(
		&m.ProjectID,
		&m.UserID,
		&m.Role,
		&m.JoinedAt,
		&m.Username,
		&m.Email,
		&m.FirstName,
		&m.LastName,
	); err != nil {
		return nil, classify(err)
	}
	return &m, nil
}
