// AngelaMos | 2026
// mirror.go

package mirror

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Outcome reports what happened to a mirrored write. Skipped means the
// document store was not configured or not reachable.
type Outcome struct {
	OK      bool
	Skipped bool
	Err     error
}

func (o Outcome) String() string {
	switch {
	case o.OK:
		return "ok"
	case o.Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Mirror copies committed relational rows into the document store. It
// never returns an error to the caller; failures are carried in Outcome.
type Mirror interface {
	Upsert(ctx context.Context, kind Kind, id int64, row any) Outcome
	Delete(ctx context.Context, kind Kind, id int64) Outcome
	Link(ctx context.Context, kind Kind, mirrorID string, id int64, row any) Outcome
}

type MongoMirror struct {
	store *Store
}

func NewMongoMirror(store *Store) *MongoMirror {
	return &MongoMirror{store: store}
}

func (m *MongoMirror) Upsert(
	ctx context.Context,
	kind Kind,
	id int64,
	row any,
) Outcome {
	if !m.store.Configured() {
		return Outcome{Skipped: true}
	}

	doc, err := Document(row)
	if err != nil {
		return Outcome{Err: fmt.Errorf("mirror upsert %s/%d: %w", kind, id, err)}
	}
	doc[FieldPrimaryID] = id

	err = m.store.Execute(ctx, "mirror.Upsert",
		func(ctx context.Context, db *mongo.Database) error {
			_, err := db.Collection(kind.Collection()).UpdateOne(
				ctx,
				bson.M{FieldPrimaryID: id},
				bson.M{"$set": doc},
				options.Update().SetUpsert(true),
			)
			return err
		},
	)

	return outcome(fmt.Sprintf("mirror upsert %s/%d", kind, id), err)
}

func (m *MongoMirror) Delete(ctx context.Context, kind Kind, id int64) Outcome {
	if !m.store.Configured() {
		return Outcome{Skipped: true}
	}

	err := m.store.Execute(ctx, "mirror.Delete",
		func(ctx context.Context, db *mongo.Database) error {
			for _, child := range children[kind] {
				if _, err := db.Collection(child.kind.Collection()).DeleteMany(
					ctx,
					bson.M{child.field: id},
				); err != nil {
					return fmt.Errorf("delete %s: %w", child.kind, err)
				}
			}

			_, err := db.Collection(kind.Collection()).DeleteOne(
				ctx,
				bson.M{FieldPrimaryID: id},
			)
			return err
		},
	)

	return outcome(fmt.Sprintf("mirror delete %s/%d", kind, id), err)
}

// Link stamps a document that only existed in the mirror with the id of its
// new relational copy so later upserts address the same document.
func (m *MongoMirror) Link(
	ctx context.Context,
	kind Kind,
	mirrorID string,
	id int64,
	row any,
) Outcome {
	if !m.store.Configured() {
		return Outcome{Skipped: true}
	}

	oid, err := primitive.ObjectIDFromHex(mirrorID)
	if err != nil {
		return Outcome{Err: fmt.Errorf("mirror link %s/%s: %w", kind, mirrorID, err)}
	}

	doc, err := Document(row)
	if err != nil {
		return Outcome{Err: fmt.Errorf("mirror link %s/%s: %w", kind, mirrorID, err)}
	}
	doc[FieldPrimaryID] = id

	err = m.store.Execute(ctx, "mirror.Link",
		func(ctx context.Context, db *mongo.Database) error {
			_, err := db.Collection(kind.Collection()).UpdateOne(
				ctx,
				bson.M{FieldDocID: oid},
				bson.M{"$set": doc},
			)
			return err
		},
	)

	return outcome(fmt.Sprintf("mirror link %s/%s", kind, mirrorID), err)
}

func outcome(op string, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{OK: true}
	case errors.Is(err, ErrUnreachable):
		return Outcome{Skipped: true, Err: fmt.Errorf("%s: %w", op, err)}
	default:
		return Outcome{Err: fmt.Errorf("%s: %w", op, err)}
	}
}

// Disabled is the mirror used when no document store is configured.
type Disabled struct{}

func (Disabled) Upsert(context.Context, Kind, int64, any) Outcome {
	return Outcome{Skipped: true}
}

func (Disabled) Delete(context.Context, Kind, int64) Outcome {
	return Outcome{Skipped: true}
}

func (Disabled) Link(context.Context, Kind, string, int64, any) Outcome {
	return Outcome{Skipped: true}
}

var (
	_ Mirror = (*MongoMirror)(nil)
	_ Mirror = Disabled{}
)
