// AngelaMos | 2026
// reader.go

package payout

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/carterperez-dev/car-rental-backend/internal/booking"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

// Reader serves payout lists and the bookings they claim from one store.
type Reader interface {
	List(ctx context.Context, hostID int64) ([]PayoutRequest, error)
	Bookings() booking.Reader
}

type primaryReader struct {
	repo     Repository
	bookings booking.Reader
}

func NewPrimaryReader(repo Repository, bookings booking.Reader) Reader {
	return &primaryReader{repo: repo, bookings: bookings}
}

func (r *primaryReader) List(ctx context.Context, hostID int64) ([]PayoutRequest, error) {
	return r.repo.List(ctx, hostID)
}

func (r *primaryReader) Bookings() booking.Reader { return r.bookings }

type mongoReader struct {
	store    *mirror.Store
	bookings booking.Reader
}

// NewMongoReader reads payout requests from the document store. bookings
// should read from the same store.
func NewMongoReader(store *mirror.Store, bookings booking.Reader) Reader {
	return &mongoReader{store: store, bookings: bookings}
}

func (r *mongoReader) List(ctx context.Context, hostID int64) ([]PayoutRequest, error) {
	filter := bson.M{}
	if hostID != 0 {
		filter["hostId"] = hostID
	}

	var requests []PayoutRequest

	err := r.store.Execute(ctx, "payout.mongo.List", func(ctx context.Context, db *mongo.Database) error {
		docs, err := mirror.Find[PayoutRequest](ctx,
			db.Collection(mirror.KindPayouts.Collection()), filter, mirror.Page(0, 0),
		)
		if err != nil {
			return err
		}

		requests = make([]PayoutRequest, 0, len(docs))
		for _, doc := range docs {
			requests = append(requests, doc.Row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *mongoReader) Bookings() booking.Reader { return r.bookings }
