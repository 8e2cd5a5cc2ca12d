// AngelaMos | 2026
// entity.go

package car

import (
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/ident"
)

type Car struct {
	ID           int64     `db:"id"            bson:"pgId"`
	Name         string    `db:"name"          bson:"name"`
	Type         string    `db:"type"          bson:"type"`
	Fuel         string    `db:"fuel"          bson:"fuel"`
	Transmission string    `db:"transmission"  bson:"transmission"`
	PricePerDay  int       `db:"price_per_day" bson:"pricePerDay"`
	Rating       float64   `db:"rating"        bson:"rating"`
	Seats        int       `db:"seats"         bson:"seats"`
	Image        string    `db:"image"         bson:"image"`
	City         string    `db:"city"          bson:"city"`
	Brand        string    `db:"brand"         bson:"brand"`
	Description  string    `db:"description"   bson:"description"`
	Available    bool      `db:"available"     bson:"available"`
	HostID       *int64    `db:"host_id"       bson:"hostId"`
	Deleted      bool      `db:"deleted"       bson:"deleted"`
	CreatedAt    time.Time `db:"created_at"    bson:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at"    bson:"updatedAt"`

	MirrorID string `db:"-" bson:"-"`
}

func (c *Car) PublicID() ident.ID {
	return ident.Of(c.ID, c.MirrorID)
}

func (c *Car) HostedBy(userID int64) bool {
	return c.HostID != nil && userID != 0 && *c.HostID == userID
}
