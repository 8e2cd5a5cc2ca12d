// AngelaMos | 2026
// repository.go

package car

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

const carColumns = `id, name, type, fuel, transmission, price_per_day, rating, seats,
	image, city, brand, description, available, host_id, deleted, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, car *Car) error
	GetByID(ctx context.Context, id int64) (*Car, error)
	Update(ctx context.Context, car *Car) error
	SoftDelete(ctx context.Context, id int64) (*Car, error)
	List(ctx context.Context, params ListParams) ([]Car, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Car, error)
	Windows(ctx context.Context, carIDs []int64) ([]Window, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, car *Car) error {
	query := `
		INSERT INTO cars (
			name, type, fuel, transmission, price_per_day, rating, seats,
			image, city, brand, description, available, host_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		car.Name,
		car.Type,
		car.Fuel,
		car.Transmission,
		car.PricePerDay,
		car.Rating,
		car.Seats,
		car.Image,
		car.City,
		car.Brand,
		car.Description,
		car.Available,
		car.HostID,
	).Scan(&car.ID, &car.CreatedAt, &car.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create car: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Car, error) {
	query := `SELECT ` + carColumns + `
		FROM cars
		WHERE id = $1 AND deleted = false`

	var car Car
	err := r.db.GetContext(ctx, &car, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get car: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get car: %w", err)
	}

	return &car, nil
}

func (r *repository) Update(ctx context.Context, car *Car) error {
	query := `
		UPDATE cars
		SET name = $2, type = $3, fuel = $4, transmission = $5,
			price_per_day = $6, rating = $7, seats = $8, image = $9,
			city = $10, brand = $11, description = $12, available = $13,
			updated_at = NOW()
		WHERE id = $1 AND deleted = false
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &car.UpdatedAt, query,
		car.ID,
		car.Name,
		car.Type,
		car.Fuel,
		car.Transmission,
		car.PricePerDay,
		car.Rating,
		car.Seats,
		car.Image,
		car.City,
		car.Brand,
		car.Description,
		car.Available,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update car: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}

	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) (*Car, error) {
	query := `
		UPDATE cars
		SET deleted = true, available = false, updated_at = NOW()
		WHERE id = $1 AND deleted = false
		RETURNING ` + carColumns

	var car Car
	err := r.db.GetContext(ctx, &car, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete car: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete car: %w", err)
	}

	return &car, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Car, error) {
	conditions := []string{"deleted = false"}
	var args []any

	addEq := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("LOWER(%s) = LOWER($%d)", column, len(args)))
	}

	addEq("city", params.City)
	addEq("type", params.Type)
	addEq("fuel", params.Fuel)
	addEq("transmission", params.Transmission)

	if params.HostID != 0 {
		args = append(args, params.HostID)
		conditions = append(conditions, fmt.Sprintf("host_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM cars
		WHERE %s
		ORDER BY created_at DESC`,
		carColumns, strings.Join(conditions, " AND "))

	var cars []Car
	if err := r.db.SelectContext(ctx, &cars, query, args...); err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}

	return cars, nil
}

func (r *repository) ListByIDs(ctx context.Context, ids []int64) ([]Car, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + carColumns + `
		FROM cars
		WHERE id = ANY($1)`

	var cars []Car
	if err := r.db.SelectContext(ctx, &cars, query, ids); err != nil {
		return nil, fmt.Errorf("list cars by id: %w", err)
	}

	return cars, nil
}

func (r *repository) Windows(ctx context.Context, carIDs []int64) ([]Window, error) {
	if len(carIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT car_id, pickup_date, return_date, status
		FROM bookings
		WHERE car_id = ANY($1) AND status <> 'cancelled'`

	var windows []Window
	if err := r.db.SelectContext(ctx, &windows, query, carIDs); err != nil {
		return nil, fmt.Errorf("list booking windows: %w", err)
	}

	return windows, nil
}
