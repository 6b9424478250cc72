package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restopro/restopro/internal/platform/db"
	"github.com/restopro/restopro/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindOwnerByInviteCode(ctx context.Context, code string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	ActiveOwners(ctx context.Context) ([]User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `SELECT id, email, first_name, last_name, phone, role, password_hash, restaurant_name, address,
	COALESCE(invite_code, ''), owner_id, is_active, created_at, updated_at FROM users`

// FindByEmail fetches a user by case-insensitive email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, userColumns+` WHERE lower(email) = lower($1)`, email))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, userColumns+` WHERE id = $1`, id))
}

// FindOwnerByInviteCode resolves the active owner holding code.
func (r *PGRepository) FindOwnerByInviteCode(ctx context.Context, code string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, userColumns+` WHERE invite_code = $1 AND role = 'owner' AND is_active`, code))
}

// Create inserts a user.
func (r *PGRepository) Create(ctx context.Context, user *User) error {
	var invite *string
	if user.InviteCode != "" {
		invite = &user.InviteCode
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, phone, role, password_hash, restaurant_name, address, invite_code, owner_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		user.Email, user.FirstName, user.LastName, user.Phone, string(user.Role), user.PasswordHash,
		user.RestaurantName, user.Address, invite, user.OwnerID, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveOwners lists every active owner account.
func (r *PGRepository) ActiveOwners(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userColumns+` WHERE role = 'owner' AND is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &role, &u.PasswordHash,
		&u.RestaurantName, &u.Address, &u.InviteCode, &u.OwnerID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = shared.Role(role)
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
