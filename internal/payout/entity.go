// AngelaMos | 2026
// entity.go

package payout

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// PayoutRequest is a host's claim for the proceeds of one booking. Only
// pending requests can move, and only once.
type PayoutRequest struct {
	ID         int64      `db:"id"          bson:"pgId"`
	BookingID  int64      `db:"booking_id"  bson:"bookingId"`
	HostID     int64      `db:"host_id"     bson:"hostId"`
	Amount     int        `db:"amount"      bson:"amount"`
	Status     string     `db:"status"      bson:"status"`
	Note       *string    `db:"note"        bson:"note,omitempty"`
	CreatedAt  time.Time  `db:"created_at"  bson:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at"  bson:"updatedAt"`
	ApprovedAt *time.Time `db:"approved_at" bson:"approvedAt,omitempty"`
}

func (p *PayoutRequest) IsPending() bool {
	return p.Status == StatusPending
}
