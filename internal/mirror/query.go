// AngelaMos | 2026
// query.go

package mirror

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
)

// Doc is a mirror document decoded into its row type together with the
// document's own ObjectID.
type Doc[T any] struct {
	Row   T                  `bson:",inline"`
	DocID primitive.ObjectID `bson:"_id"`
}

func (d Doc[T]) MirrorID() string {
	return d.DocID.Hex()
}

// IDFilter addresses a document by primary id, or by ObjectID for documents
// that only exist in the mirror.
func IDFilter(id ident.ID) (bson.M, error) {
	if n, ok := id.PrimaryID(); ok {
		return bson.M{FieldPrimaryID: n}, nil
	}

	hex, ok := id.MirrorID()
	if !ok {
		return nil, fmt.Errorf("id filter: %w", core.ErrInvalidInput)
	}

	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, fmt.Errorf("id filter: %w", core.ErrNotFound)
	}

	return bson.M{FieldDocID: oid}, nil
}

func Find[T any](
	ctx context.Context,
	coll *mongo.Collection,
	filter any,
	opts ...*options.FindOptions,
) ([]Doc[T], error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx) //nolint:errcheck // cursor close on read path

	var docs []Doc[T]
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}

	return docs, nil
}

func FindOne[T any](
	ctx context.Context,
	coll *mongo.Collection,
	filter any,
) (Doc[T], error) {
	var doc Doc[T]

	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, fmt.Errorf("find one %s: %w", coll.Name(), core.ErrNotFound)
	}
	if err != nil {
		return doc, fmt.Errorf("find one %s: %w", coll.Name(), err)
	}

	return doc, nil
}

// NotDeleted matches documents whose deleted flag is false or absent.
func NotDeleted() bson.M {
	return bson.M{"deleted": bson.M{"$ne": true}}
}

func Page(limit, offset int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(int64(offset))
	}
	return opts
}
