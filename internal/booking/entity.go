// AngelaMos | 2026
// entity.go

package booking

import (
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/car"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = car.StatusCancelled
)

const (
	AttachmentIDFront = "id_front"
	AttachmentIDBack  = "id_back"
	AttachmentLicense = "license"
)

type Booking struct {
	ID             int64     `db:"id"              bson:"pgId"`
	UserID         int64     `db:"user_id"         bson:"userId"`
	CarID          int64     `db:"car_id"          bson:"carId"`
	PickupDate     string    `db:"pickup_date"     bson:"pickupDate"`
	ReturnDate     string    `db:"return_date"     bson:"returnDate"`
	PickupLocation string    `db:"pickup_location" bson:"pickupLocation"`
	ReturnLocation string    `db:"return_location" bson:"returnLocation"`
	Verification   *string   `db:"verification"    bson:"verification"`
	TotalCost      int       `db:"total_cost"      bson:"totalCost"`
	Days           int       `db:"days"            bson:"days"`
	Status         string    `db:"status"          bson:"status"`
	PaymentID      *string   `db:"payment_id"      bson:"paymentId"`
	PaymentMethod  *string   `db:"payment_method"  bson:"paymentMethod"`
	PaymentStatus  *string   `db:"payment_status"  bson:"paymentStatus"`
	CreatedAt      time.Time `db:"created_at"      bson:"createdAt"`

	MirrorID string `db:"-" bson:"-"`
}

func (b *Booking) PublicID() ident.ID {
	return ident.Of(b.ID, b.MirrorID)
}

// Window is the span the booking holds its car for.
func (b *Booking) Window() car.Window {
	return car.Window{
		CarID:  b.CarID,
		Pickup: b.PickupDate,
		Return: b.ReturnDate,
		Status: b.Status,
	}
}

// Overlaps reports whether the booking blocks its car for [start, end).
func (b *Booking) Overlaps(start, end string) bool {
	return b.Window().Overlaps(start, end)
}

// Attachment is a verification document stored with a booking.
type Attachment struct {
	ID        int64     `db:"id"         bson:"pgId"`
	BookingID int64     `db:"booking_id" bson:"bookingId"`
	Kind      string    `db:"kind"       bson:"kind"`
	Path      string    `db:"path"       bson:"path"`
	CreatedAt time.Time `db:"created_at" bson:"createdAt"`
}
