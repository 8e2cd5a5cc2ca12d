// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	GetByID(ctx context.Context, id int64) (*Admin, error)
	// CreateIfMissing inserts a and reports whether a row was written. An
	// existing admin with the same email is left untouched.
	CreateIfMissing(ctx context.Context, a *Admin) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	query := `
		SELECT id, email, password_hash, name, created_at
		FROM admins
		WHERE email = $1`

	var a Admin
	err := r.db.GetContext(ctx, &a, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get admin by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}

	return &a, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Admin, error) {
	query := `
		SELECT id, email, password_hash, name, created_at
		FROM admins
		WHERE id = $1`

	var a Admin
	err := r.db.GetContext(ctx, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get admin: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}

	return &a, nil
}

func (r *repository) CreateIfMissing(ctx context.Context, a *Admin) (bool, error) {
	query := `
		INSERT INTO admins (email, password_hash, name)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT admins_email_key DO NOTHING
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		a.Email,
		a.PasswordHash,
		a.Name,
	).Scan(&a.ID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	return true, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id int64,
	passwordHash string,
) error {
	query := `UPDATE admins SET password_hash = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}

	return nil
}
