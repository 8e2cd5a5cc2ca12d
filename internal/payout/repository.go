// AngelaMos | 2026
// repository.go

package payout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

const (
	payoutColumns = `id, booking_id, host_id, amount, status, note, created_at, updated_at, approved_at`

	pendingConstraint = "payout_requests_pending_key"
)

type Repository interface {
	Create(ctx context.Context, p *PayoutRequest) error
	HasPending(ctx context.Context, bookingID int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*PayoutRequest, error)
	List(ctx context.Context, hostID int64) ([]PayoutRequest, error)
	Transition(ctx context.Context, id int64, status string, note *string) (*PayoutRequest, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *PayoutRequest) error {
	query := `
		INSERT INTO payout_requests (booking_id, host_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, p.BookingID, p.HostID, p.Amount).
		Scan(&p.ID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if core.IsDuplicateKey(err, pendingConstraint) {
		return fmt.Errorf("create payout request: %w", core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create payout request: %w", err)
	}

	return nil
}

func (r *repository) HasPending(ctx context.Context, bookingID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payout_requests
			WHERE booking_id = $1 AND status = 'pending'
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, bookingID); err != nil {
		return false, fmt.Errorf("check pending payout: %w", err)
	}

	return exists, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`

	var p PayoutRequest
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payout request: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payout request: %w", err)
	}

	return &p, nil
}

// List returns every request when hostID is zero.
func (r *repository) List(ctx context.Context, hostID int64) ([]PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests`
	args := []any{}
	if hostID != 0 {
		query += ` WHERE host_id = $1`
		args = append(args, hostID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var requests []PayoutRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list payout requests: %w", err)
	}

	return requests, nil
}

// Transition moves a pending request to status. A request that is no
// longer pending reports ErrInvalidState.
func (r *repository) Transition(
	ctx context.Context,
	id int64,
	status string,
	note *string,
) (*PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $2::text,
		    note = COALESCE($3, note),
		    updated_at = NOW(),
		    approved_at = CASE WHEN $2::text = 'approved' THEN NOW() ELSE approved_at END
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + payoutColumns

	var p PayoutRequest
	err := r.db.GetContext(ctx, &p, query, id, status, note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payout request %d is not pending: %w", id, core.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("update payout request: %w", err)
	}

	return &p, nil
}
