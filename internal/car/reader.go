// AngelaMos | 2026
// reader.go

package car

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

// Reader serves car reads, and the booking windows availability is
// computed from, out of one store.
type Reader interface {
	GetByID(ctx context.Context, id ident.ID) (*Car, error)
	List(ctx context.Context, params ListParams) ([]Car, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Car, error)
	Windows(ctx context.Context, carIDs []int64) ([]Window, error)
}

type primaryReader struct {
	repo Repository
}

func NewPrimaryReader(repo Repository) Reader {
	return &primaryReader{repo: repo}
}

func (r *primaryReader) GetByID(ctx context.Context, id ident.ID) (*Car, error) {
	n, ok := id.PrimaryID()
	if !ok {
		return nil, fmt.Errorf("get car %s: %w", id, core.ErrNotFound)
	}
	return r.repo.GetByID(ctx, n)
}

func (r *primaryReader) List(ctx context.Context, params ListParams) ([]Car, error) {
	return r.repo.List(ctx, params)
}

func (r *primaryReader) ListByIDs(ctx context.Context, ids []int64) ([]Car, error) {
	return r.repo.ListByIDs(ctx, ids)
}

func (r *primaryReader) Windows(ctx context.Context, carIDs []int64) ([]Window, error) {
	return r.repo.Windows(ctx, carIDs)
}

type mongoReader struct {
	store *mirror.Store
}

func NewMongoReader(store *mirror.Store) Reader {
	return &mongoReader{store: store}
}

func (r *mongoReader) GetByID(ctx context.Context, id ident.ID) (*Car, error) {
	filter, err := mirror.IDFilter(id)
	if err != nil {
		return nil, err
	}
	filter["deleted"] = mirror.NotDeleted()["deleted"]

	var car *Car

	err = r.store.Execute(ctx, "car.mongo.GetByID", func(ctx context.Context, db *mongo.Database) error {
		doc, err := mirror.FindOne[Car](ctx, db.Collection(mirror.KindCars.Collection()), filter)
		if err != nil {
			return err
		}
		doc.Row.MirrorID = doc.MirrorID()
		car = &doc.Row
		return nil
	})
	if err != nil {
		return nil, err
	}

	return car, nil
}

func (r *mongoReader) List(ctx context.Context, params ListParams) ([]Car, error) {
	filter := mirror.NotDeleted()

	addEq := func(field, value string) {
		if value == "" {
			return
		}
		filter[field] = bson.M{
			"$regex":   "^" + regexp.QuoteMeta(value) + "$",
			"$options": "i",
		}
	}

	addEq("city", params.City)
	addEq("type", params.Type)
	addEq("fuel", params.Fuel)
	addEq("transmission", params.Transmission)

	if params.HostID != 0 {
		filter["hostId"] = params.HostID
	}

	return r.find(ctx, "car.mongo.List", filter, mirror.Page(0, 0))
}

func (r *mongoReader) ListByIDs(ctx context.Context, ids []int64) ([]Car, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return r.find(ctx, "car.mongo.ListByIDs",
		bson.M{mirror.FieldPrimaryID: bson.M{"$in": ids}},
	)
}

func (r *mongoReader) find(
	ctx context.Context,
	op string,
	filter bson.M,
	opts ...*options.FindOptions,
) ([]Car, error) {
	var cars []Car

	err := r.store.Execute(ctx, op, func(ctx context.Context, db *mongo.Database) error {
		docs, err := mirror.Find[Car](ctx, db.Collection(mirror.KindCars.Collection()), filter, opts...)
		if err != nil {
			return err
		}

		cars = make([]Car, 0, len(docs))
		for _, doc := range docs {
			doc.Row.MirrorID = doc.MirrorID()
			cars = append(cars, doc.Row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cars, nil
}

func (r *mongoReader) Windows(ctx context.Context, carIDs []int64) ([]Window, error) {
	if len(carIDs) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"carId":  bson.M{"$in": carIDs},
		"status": bson.M{"$ne": StatusCancelled},
	}
	projection := options.Find().SetProjection(bson.M{
		"carId":      1,
		"pickupDate": 1,
		"returnDate": 1,
		"status":     1,
	})

	var windows []Window

	err := r.store.Execute(ctx, "car.mongo.Windows", func(ctx context.Context, db *mongo.Database) error {
		docs, err := mirror.Find[Window](ctx, db.Collection(mirror.KindBookings.Collection()), filter, projection)
		if err != nil {
			return err
		}

		windows = make([]Window, 0, len(docs))
		for _, doc := range docs {
			windows = append(windows, doc.Row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return windows, nil
}
