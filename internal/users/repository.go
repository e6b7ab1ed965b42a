package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardboard/wardboard/internal/platform/db"
	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/roles"
	"github.com/wardboard/wardboard/internal/shared"
)

// Repository defines data access methods for users.
type Repository interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string, ordered []roles.Role) (User, error)
	SetCurrentRole(ctx context.Context, id int64, role roles.Role) error
	RolesForUser(ctx context.Context, id int64) ([]roles.Role, roles.Role, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListUsers returns a page of users with their ordered roles.
func (r *PGRepository) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, is_active, COALESCE(current_role_name, ''), created_at, updated_at
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var current string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &current, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		u.CurrentRole = roles.Role(current)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		ordered, _, err := r.RolesForUser(ctx, out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Roles = ordered
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetUser fetches a single user with roles.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	var current string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, is_active, COALESCE(current_role_name, ''), created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &current, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	u.CurrentRole = roles.Role(current)
	ordered, _, err := r.RolesForUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Roles = ordered
	return u, nil
}

// CreateUser inserts the account and its ordered role list in one
// transaction. Duplicate emails surface as ErrDuplicate.
func (r *PGRepository) CreateUser(ctx context.Context, email, name, passwordHash string, ordered []roles.Role) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, name, password_hash, is_active)
			VALUES ($1, $2, $3, TRUE)
			RETURNING id, email, name, is_active, created_at, updated_at`,
			email, name, passwordHash).
			Scan(&created.ID, &created.Email, &created.Name, &created.IsActive, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			return err
		}
		for position, role := range ordered {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_name, position)
				VALUES ($1, $2, $3)`, created.ID, string(role), position); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, httpx.ErrDuplicate
		}
		return User{}, err
	}
	created.Roles = ordered
	return created, nil
}

// SetCurrentRole updates the active role used for routing.
func (r *PGRepository) SetCurrentRole(ctx context.Context, id int64, role roles.Role) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET current_role_name = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $1`, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RolesForUser returns the ordered role list and the optional current role.
func (r *PGRepository) RolesForUser(ctx context.Context, id int64) ([]roles.Role, roles.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role_name FROM user_roles
		WHERE user_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var ordered []roles.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, "", err
		}
		ordered = append(ordered, roles.Role(name))
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var current string
	if err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(current_role_name, '') FROM users WHERE id = $1`, id).
		Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", shared.ErrNotFound
		}
		return nil, "", err
	}
	return ordered, roles.Role(current), nil
}
