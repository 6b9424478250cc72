package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const memberColumns = `SELECT id, email, first_name, last_name, phone, is_active, created_at, updated_at FROM users`

// ListStaff returns the staff linked to ownerID.
func (r *Repository) ListStaff(ctx context.Context, ownerID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, memberColumns+` WHERE owner_id = $1 AND role = 'staff' ORDER BY first_name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SetActive updates a staff member of ownerID.
func (r *Repository) SetActive(ctx context.Context, ownerID, staffID int64, active bool) (*Member, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET is_active = $3, updated_at = NOW()
		WHERE id = $2 AND owner_id = $1 AND role = 'staff'
		RETURNING id, email, first_name, last_name, phone, is_active, created_at, updated_at`,
		ownerID, staffID, active)
	m, err := scanMember(row)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	if err := row.Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &m.Phone, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrNotFound
		}
		return Member{}, fmt.Errorf("scan member: %w", err)
	}
	return m, nil
}
