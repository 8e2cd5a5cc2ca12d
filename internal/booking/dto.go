// AngelaMos | 2026
// dto.go

package booking

import (
	"encoding/json"
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/car"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/user"
)

type CreateBookingRequest struct {
	CarID          ident.ID        `json:"carId"`
	PickupDate     string          `json:"pickupDate"     validate:"required,datetime=2006-01-02"`
	ReturnDate     string          `json:"returnDate"     validate:"required,datetime=2006-01-02"`
	PickupLocation string          `json:"pickupLocation" validate:"max=255"`
	ReturnLocation string          `json:"returnLocation" validate:"max=255"`
	TotalCost      int             `json:"totalCost"      validate:"gte=0"`
	Days           int             `json:"days"           validate:"gte=0"`
	Verification   json.RawMessage `json:"verification"`
}

type UpdatePaymentRequest struct {
	PaymentID     string `json:"paymentId"     validate:"required,max=255"`
	PaymentMethod string `json:"paymentMethod" validate:"max=50"`
	PaymentStatus string `json:"paymentStatus" validate:"required,max=50"`
}

type AttachmentResponse struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

type BookingResponse struct {
	ID             ident.ID             `json:"id"`
	UserID         int64                `json:"userId"`
	CarID          int64                `json:"carId"`
	PickupDate     string               `json:"pickupDate"`
	ReturnDate     string               `json:"returnDate"`
	PickupLocation string               `json:"pickupLocation"`
	ReturnLocation string               `json:"returnLocation"`
	Verification   json.RawMessage      `json:"verification"`
	TotalCost      int                  `json:"totalCost"`
	Days           int                  `json:"days"`
	Status         string               `json:"status"`
	PaymentID      *string              `json:"paymentId"`
	PaymentMethod  *string              `json:"paymentMethod"`
	PaymentStatus  *string              `json:"paymentStatus"`
	CreatedAt      time.Time            `json:"createdAt"`
	Attachments    []AttachmentResponse `json:"attachments"`
	Car            *car.Summary         `json:"car,omitempty"`
	User           *user.Summary        `json:"user,omitempty"`
}

// Summary is the booking shape embedded in payout responses.
type Summary struct {
	ID         ident.ID `json:"id"`
	CarID      int64    `json:"carId"`
	UserID     int64    `json:"userId"`
	PickupDate string   `json:"pickupDate"`
	ReturnDate string   `json:"returnDate"`
	TotalCost  int      `json:"totalCost"`
	Status     string   `json:"status"`
}

// Detail is a booking together with the rows it references, all read from
// the same store.
type Detail struct {
	Booking     Booking
	Attachments []Attachment
	Car         *car.Car
	User        *user.User
}

func ToBookingResponse(d *Detail) BookingResponse {
	b := &d.Booking

	attachments := make([]AttachmentResponse, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		attachments = append(attachments, AttachmentResponse{Kind: a.Kind, Path: a.Path})
	}

	return BookingResponse{
		ID:             b.PublicID(),
		UserID:         b.UserID,
		CarID:          b.CarID,
		PickupDate:     b.PickupDate,
		ReturnDate:     b.ReturnDate,
		PickupLocation: b.PickupLocation,
		ReturnLocation: b.ReturnLocation,
		Verification:   verificationJSON(b.Verification),
		TotalCost:      b.TotalCost,
		Days:           b.Days,
		Status:         b.Status,
		PaymentID:      b.PaymentID,
		PaymentMethod:  b.PaymentMethod,
		PaymentStatus:  b.PaymentStatus,
		CreatedAt:      b.CreatedAt,
		Attachments:    attachments,
		Car:            car.ToSummary(d.Car),
		User:           user.ToSummary(d.User),
	}
}

func ToBookingResponseList(details []Detail) []BookingResponse {
	responses := make([]BookingResponse, 0, len(details))
	for i := range details {
		responses = append(responses, ToBookingResponse(&details[i]))
	}
	return responses
}

func ToSummary(b *Booking) *Summary {
	if b == nil {
		return nil
	}
	return &Summary{
		ID:         b.PublicID(),
		CarID:      b.CarID,
		UserID:     b.UserID,
		PickupDate: b.PickupDate,
		ReturnDate: b.ReturnDate,
		TotalCost:  b.TotalCost,
		Status:     b.Status,
	}
}
