// AngelaMos | 2026
// reader.go

package booking

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carterperez-dev/car-rental-backend/internal/car"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
	"github.com/carterperez-dev/car-rental-backend/internal/user"
)

// Reader serves booking reads, and the car and user rows they reference,
// from one store.
type Reader interface {
	GetByID(ctx context.Context, id ident.ID) (*Booking, error)
	List(ctx context.Context, filter ListFilter) ([]Booking, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Booking, error)
	Attachments(ctx context.Context, bookingIDs []int64) ([]Attachment, error)
	Cars() car.Reader
	Users() user.Reader
}

type primaryReader struct {
	repo  Repository
	cars  car.Reader
	users user.Reader
}

func NewPrimaryReader(repo Repository, cars car.Reader, users user.Reader) Reader {
	return &primaryReader{repo: repo, cars: cars, users: users}
}

func (r *primaryReader) GetByID(ctx context.Context, id ident.ID) (*Booking, error) {
	n, ok := id.PrimaryID()
	if !ok {
		return nil, fmt.Errorf("get booking %s: %w", id, core.ErrNotFound)
	}
	return r.repo.GetByID(ctx, n)
}

func (r *primaryReader) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	return r.repo.List(ctx, filter)
}

func (r *primaryReader) ListByIDs(ctx context.Context, ids []int64) ([]Booking, error) {
	return r.repo.ListByIDs(ctx, ids)
}

func (r *primaryReader) Attachments(ctx context.Context, bookingIDs []int64) ([]Attachment, error) {
	return r.repo.Attachments(ctx, bookingIDs)
}

func (r *primaryReader) Cars() car.Reader   { return r.cars }
func (r *primaryReader) Users() user.Reader { return r.users }

type mongoReader struct {
	store *mirror.Store
	cars  car.Reader
	users user.Reader
}

// NewMongoReader reads bookings from the document store. cars and users
// should read from the same store.
func NewMongoReader(store *mirror.Store, cars car.Reader, users user.Reader) Reader {
	return &mongoReader{store: store, cars: cars, users: users}
}

func (r *mongoReader) GetByID(ctx context.Context, id ident.ID) (*Booking, error) {
	filter, err := mirror.IDFilter(id)
	if err != nil {
		return nil, err
	}

	var b *Booking

	err = r.store.Execute(ctx, "booking.mongo.GetByID", func(ctx context.Context, db *mongo.Database) error {
		doc, err := mirror.FindOne[Booking](ctx, db.Collection(mirror.KindBookings.Collection()), filter)
		if err != nil {
			return err
		}
		doc.Row.MirrorID = doc.MirrorID()
		b = &doc.Row
		return nil
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (r *mongoReader) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	query := bson.M{}

	switch {
	case filter.HostID != 0:
		ids, err := r.hostCarIDs(ctx, filter.HostID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		query["carId"] = bson.M{"$in": ids}
	case filter.UserID != 0:
		query["userId"] = filter.UserID
	}

	return r.find(ctx, "booking.mongo.List", query, mirror.Page(0, 0))
}

// hostCarIDs lists every car the host owns, soft-deleted ones included,
// the same set the relational host join covers.
func (r *mongoReader) hostCarIDs(ctx context.Context, hostID int64) ([]int64, error) {
	var ids []int64

	err := r.store.Execute(ctx, "booking.mongo.hostCarIDs", func(ctx context.Context, db *mongo.Database) error {
		docs, err := mirror.Find[car.Car](ctx, db.Collection(mirror.KindCars.Collection()), hostCarsFilter(hostID))
		if err != nil {
			return err
		}

		ids = make([]int64, 0, len(docs))
		for _, doc := range docs {
			if doc.Row.ID != 0 {
				ids = append(ids, doc.Row.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func hostCarsFilter(hostID int64) bson.M {
	return bson.M{"hostId": hostID}
}

func (r *mongoReader) ListByIDs(ctx context.Context, ids []int64) ([]Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return r.find(ctx, "booking.mongo.ListByIDs",
		bson.M{mirror.FieldPrimaryID: bson.M{"$in": ids}},
	)
}

func (r *mongoReader) find(
	ctx context.Context,
	op string,
	filter bson.M,
	opts ...*options.FindOptions,
) ([]Booking, error) {
	var bookings []Booking

	err := r.store.Execute(ctx, op, func(ctx context.Context, db *mongo.Database) error {
		docs, err := mirror.Find[Booking](ctx, db.Collection(mirror.KindBookings.Collection()), filter, opts...)
		if err != nil {
			return err
		}

		bookings = make([]Booking, 0, len(docs))
		for _, doc := range docs {
			doc.Row.MirrorID = doc.MirrorID()
			bookings = append(bookings, doc.Row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *mongoReader) Attachments(ctx context.Context, bookingIDs []int64) ([]Attachment, error) {
	if len(bookingIDs) == 0 {
		return nil, nil
	}

	var attachments []Attachment

	err := r.store.Execute(ctx, "booking.mongo.Attachments", func(ctx context.Context, db *mongo.Database) error {
		docs, err := mirror.Find[Attachment](ctx,
			db.Collection(mirror.KindAttachments.Collection()),
			bson.M{mirror.FieldBookingID: bson.M{"$in": bookingIDs}},
			options.Find().SetSort(bson.D{{Key: mirror.FieldPrimaryID, Value: 1}}),
		)
		if err != nil {
			return err
		}

		attachments = make([]Attachment, 0, len(docs))
		for _, doc := range docs {
			attachments = append(attachments, doc.Row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *mongoReader) Cars() car.Reader   { return r.cars }
func (r *mongoReader) Users() user.Reader { return r.users }
