// AngelaMos | 2026
// availability.go

package car

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

const (
	DateLayout      = "2006-01-02"
	StatusCancelled = "cancelled"
)

// Window is the span a booking holds a car for. Dates are calendar days in
// DateLayout, so they order correctly as strings.
type Window struct {
	CarID  int64  `db:"car_id"      bson:"carId"`
	Pickup string `db:"pickup_date" bson:"pickupDate"`
	Return string `db:"return_date" bson:"returnDate"`
	Status string `db:"status"      bson:"status"`
}

// Overlaps reports whether the window blocks [start, end). Cancelled
// bookings never block.
func (w Window) Overlaps(start, end string) bool {
	if w.Status == StatusCancelled {
		return false
	}
	return !(w.Return <= start || w.Pickup >= end)
}

// AvailableForRange reports whether c can be booked for [start, end) given
// the booking windows recorded against it.
func AvailableForRange(c *Car, windows []Window, start, end string) bool {
	if c == nil || !c.Available {
		return false
	}

	for _, w := range windows {
		if w.CarID != c.ID {
			continue
		}
		if w.Overlaps(start, end) {
			return false
		}
	}

	return true
}

// ValidateRange checks that start and end are calendar dates with start
// before end.
func ValidateRange(start, end string) error {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return fmt.Errorf("pickup date %q: %w", start, core.ErrInvalidInput)
	}

	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return fmt.Errorf("return date %q: %w", end, core.ErrInvalidInput)
	}

	if !s.Before(e) {
		return fmt.Errorf("return date must be after pickup date: %w", core.ErrInvalidInput)
	}

	return nil
}
