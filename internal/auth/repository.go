// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

const otpColumns = `id, email, code, purpose, expires_at, attempts, consumed, created_at`

type Repository interface {
	Create(ctx context.Context, code *OTPCode) error
	// Consume claims an unconsumed code matching email, code and purpose.
	// The returned row already counts this attempt.
	Consume(ctx context.Context, email, code, purpose string) (*OTPCode, error)
	RecordFailure(ctx context.Context, email, purpose string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, code *OTPCode) error {
	query := `
		INSERT INTO otp_codes (email, code, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, attempts, consumed, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		code.Email,
		code.Code,
		code.Purpose,
		code.ExpiresAt,
	).Scan(&code.ID, &code.Attempts, &code.Consumed, &code.CreatedAt)
	if err != nil {
		return fmt.Errorf("create otp code: %w", err)
	}

	return nil
}

func (r *repository) Consume(
	ctx context.Context,
	email, code, purpose string,
) (*OTPCode, error) {
	query := `
		UPDATE otp_codes
		SET consumed = true, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM otp_codes
			WHERE email = $1 AND code = $2 AND purpose = $3 AND NOT consumed
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE
		) AND NOT consumed
		RETURNING ` + otpColumns

	var otp OTPCode
	err := r.db.GetContext(ctx, &otp, query, email, code, purpose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume otp code: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume otp code: %w", err)
	}

	return &otp, nil
}

func (r *repository) RecordFailure(
	ctx context.Context,
	email, purpose string,
) error {
	query := `
		UPDATE otp_codes
		SET attempts = attempts + 1
		WHERE id = (
			SELECT id FROM otp_codes
			WHERE email = $1 AND purpose = $2 AND NOT consumed
			ORDER BY created_at DESC
			LIMIT 1
		)`

	if _, err := r.db.ExecContext(ctx, query, email, purpose); err != nil {
		return fmt.Errorf("record otp failure: %w", err)
	}

	return nil
}

func (r *repository) DeleteExpired(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	query := `DELETE FROM otp_codes WHERE expires_at < $1 OR consumed`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired otp codes: %w", err)
	}

	return result.RowsAffected()
}
