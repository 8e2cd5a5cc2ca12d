// AngelaMos | 2026
// dto.go

package payout

import (
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/booking"
)

type CreateRequest struct {
	BookingID int64 `json:"bookingId" validate:"required,gt=0"`
	Amount    *int  `json:"amount"    validate:"omitempty,min=0"`
}

type DecisionRequest struct {
	Note *string `json:"note" validate:"omitempty,max=1000"`
}

type PayoutResponse struct {
	ID         int64            `json:"id"`
	BookingID  int64            `json:"bookingId"`
	HostID     int64            `json:"hostId"`
	Amount     int              `json:"amount"`
	Status     string           `json:"status"`
	Note       *string          `json:"note"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	ApprovedAt *time.Time       `json:"approvedAt"`
	Booking    *booking.Summary `json:"booking,omitempty"`
}

// Detail is a payout request with the booking it claims, read from the same
// store.
type Detail struct {
	Request PayoutRequest
	Booking *booking.Booking
}

func ToPayoutResponse(d *Detail) PayoutResponse {
	p := &d.Request
	return PayoutResponse{
		ID:         p.ID,
		BookingID:  p.BookingID,
		HostID:     p.HostID,
		Amount:     p.Amount,
		Status:     p.Status,
		Note:       p.Note,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		ApprovedAt: p.ApprovedAt,
		Booking:    booking.ToSummary(d.Booking),
	}
}

func ToPayoutResponseList(details []Detail) []PayoutResponse {
	responses := make([]PayoutResponse, 0, len(details))
	for i := range details {
		responses = append(responses, ToPayoutResponse(&details[i]))
	}
	return responses
}
