// AngelaMos | 2026
// repository.go

package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

const bookingColumns = `id, user_id, car_id, pickup_date, return_date, pickup_location,
	return_location, verification, total_cost, days, status, payment_id,
	payment_method, payment_status, created_at`

const attachmentColumns = `id, booking_id, kind, path, created_at`

// Database is what the repository needs from the pool: plain queries and
// transactions.
type Database interface {
	core.DBTX
	core.TxBeginner
}

// ListFilter narrows a booking list. Zero values do not filter.
type ListFilter struct {
	UserID int64
	HostID int64
}

type Repository interface {
	Create(ctx context.Context, b *Booking, attachments []Attachment) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	List(ctx context.Context, filter ListFilter) ([]Booking, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Booking, error)
	Attachments(ctx context.Context, bookingIDs []int64) ([]Attachment, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Booking, error)
	UpdatePayment(ctx context.Context, id int64, req UpdatePaymentRequest) (*Booking, error)
	Delete(ctx context.Context, id int64) ([]Attachment, error)
}

type repository struct {
	db Database
}

func NewRepository(db Database) Repository {
	return &repository{db: db}
}

// Create inserts the booking and its attachments in one transaction. The
// attachments are updated with their ids.
func (r *repository) Create(ctx context.Context, b *Booking, attachments []Attachment) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO bookings (
				user_id, car_id, pickup_date, return_date, pickup_location,
				return_location, verification, total_cost, days
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, status, created_at`

		err := tx.QueryRowxContext(ctx, query,
			b.UserID,
			b.CarID,
			b.PickupDate,
			b.ReturnDate,
			b.PickupLocation,
			b.ReturnLocation,
			b.Verification,
			b.TotalCost,
			b.Days,
		).Scan(&b.ID, &b.Status, &b.CreatedAt)
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		for i := range attachments {
			a := &attachments[i]
			a.BookingID = b.ID

			err := tx.QueryRowxContext(ctx, `
				INSERT INTO booking_attachments (booking_id, kind, path)
				VALUES ($1, $2, $3)
				RETURNING id, created_at`,
				a.BookingID, a.Kind, a.Path,
			).Scan(&a.ID, &a.CreatedAt)
			if err != nil {
				return fmt.Errorf("create booking attachment: %w", err)
			}
		}

		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return &b, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	var (
		query string
		args  []any
	)

	switch {
	case filter.HostID != 0:
		query = `
			SELECT b.id, b.user_id, b.car_id, b.pickup_date, b.return_date,
				b.pickup_location, b.return_location, b.verification, b.total_cost,
				b.days, b.status, b.payment_id, b.payment_method, b.payment_status,
				b.created_at
			FROM bookings b
			JOIN cars c ON c.id = b.car_id
			WHERE c.host_id = $1
			ORDER BY b.created_at DESC`
		args = append(args, filter.HostID)
	case filter.UserID != 0:
		query = `SELECT ` + bookingColumns + `
			FROM bookings
			WHERE user_id = $1
			ORDER BY created_at DESC`
		args = append(args, filter.UserID)
	default:
		query = `SELECT ` + bookingColumns + `
			FROM bookings
			ORDER BY created_at DESC`
	}

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return bookings, nil
}

func (r *repository) ListByIDs(ctx context.Context, ids []int64) ([]Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ANY($1)`

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query, ids); err != nil {
		return nil, fmt.Errorf("list bookings by id: %w", err)
	}

	return bookings, nil
}

func (r *repository) Attachments(ctx context.Context, bookingIDs []int64) ([]Attachment, error) {
	if len(bookingIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + attachmentColumns + `
		FROM booking_attachments
		WHERE booking_id = ANY($1)
		ORDER BY id`

	var attachments []Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, bookingIDs); err != nil {
		return nil, fmt.Errorf("list booking attachments: %w", err)
	}

	return attachments, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status string) (*Booking, error) {
	query := `
		UPDATE bookings
		SET status = $2
		WHERE id = $1
		RETURNING ` + bookingColumns

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update booking status: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	return &b, nil
}

func (r *repository) UpdatePayment(
	ctx context.Context,
	id int64,
	req UpdatePaymentRequest,
) (*Booking, error) {
	query := `
		UPDATE bookings
		SET payment_id = $2, payment_method = NULLIF($3, ''), payment_status = $4
		WHERE id = $1
		RETURNING ` + bookingColumns

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id, req.PaymentID, req.PaymentMethod, req.PaymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update booking payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update booking payment: %w", err)
	}

	return &b, nil
}

// Delete removes the booking and its attachment rows. It returns the
// removed attachments so their files can be cleaned up.
func (r *repository) Delete(ctx context.Context, id int64) ([]Attachment, error) {
	var removed []Attachment

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &removed, `
			DELETE FROM booking_attachments
			WHERE booking_id = $1
			RETURNING `+attachmentColumns, id); err != nil {
			return fmt.Errorf("delete booking attachments: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("delete booking: %w", core.ErrNotFound)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}
