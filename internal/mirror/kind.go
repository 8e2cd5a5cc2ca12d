// AngelaMos | 2026
// kind.go

package mirror

type Kind string

const (
	KindUsers       Kind = "users"
	KindCars        Kind = "cars"
	KindBookings    Kind = "bookings"
	KindAttachments Kind = "attachments"
	KindMessages    Kind = "messages"
	KindPayouts     Kind = "payout_requests"
)

const (
	FieldPrimaryID = "pgId"
	FieldDocID     = "_id"
	FieldBookingID = "bookingId"
)

func (k Kind) Collection() string {
	return string(k)
}

// children lists kinds whose documents are removed together with a parent
// document, keyed by the field that references the parent.
var children = map[Kind][]struct {
	kind  Kind
	field string
}{
	KindBookings: {
		{kind: KindAttachments, field: FieldBookingID},
		{kind: KindPayouts, field: FieldBookingID},
	},
}
