// AngelaMos | 2026
// reader.go

package user

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

// Reader serves user reads from one store.
type Reader interface {
	GetByID(ctx context.Context, id ident.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ListByIDs(ctx context.Context, ids []int64) ([]User, error)
}

type primaryReader struct {
	repo Repository
}

func NewPrimaryReader(repo Repository) Reader {
	return &primaryReader{repo: repo}
}

func (r *primaryReader) GetByID(ctx context.Context, id ident.ID) (*User, error) {
	n, ok := id.PrimaryID()
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", id, core.ErrNotFound)
	}
	return r.repo.GetByID(ctx, n)
}

func (r *primaryReader) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.repo.GetByEmail(ctx, email)
}

func (r *primaryReader) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return r.repo.List(ctx, params)
}

func (r *primaryReader) ListByIDs(ctx context.Context, ids []int64) ([]User, error) {
	return r.repo.ListByIDs(ctx, ids)
}

type mongoReader struct {
	store *mirror.Store
}

func NewMongoReader(store *mirror.Store) Reader {
	return &mongoReader{store: store}
}

func (r *mongoReader) GetByID(ctx context.Context, id ident.ID) (*User, error) {
	filter, err := mirror.IDFilter(id)
	if err != nil {
		return nil, err
	}
	filter["deleted"] = mirror.NotDeleted()["deleted"]

	return r.findOne(ctx, "user.mongo.GetByID", filter)
}

func (r *mongoReader) GetByEmail(ctx context.Context, email string) (*User, error) {
	filter := mirror.NotDeleted()
	filter["email"] = email

	return r.findOne(ctx, "user.mongo.GetByEmail", filter)
}

func (r *mongoReader) findOne(
	ctx context.Context,
	op string,
	filter bson.M,
) (*User, error) {
	var user *User

	err := r.store.Execute(ctx, op, func(ctx context.Context, db *mongo.Database) error {
		doc, err := mirror.FindOne[User](ctx, db.Collection(mirror.KindUsers.Collection()), filter)
		if err != nil {
			return err
		}
		doc.Row.MirrorID = doc.MirrorID()
		user = &doc.Row
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *mongoReader) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	filter := mirror.NotDeleted()
	if params.Search != "" {
		pattern := bson.M{
			"$regex":   regexp.QuoteMeta(params.Search),
			"$options": "i",
		}
		filter["$or"] = bson.A{
			bson.M{"email": pattern},
			bson.M{"fullName": pattern},
		}
	}
	if params.Role != "" {
		filter["role"] = params.Role
	}

	var users []User
	var total int64

	err := r.store.Execute(ctx, "user.mongo.List", func(ctx context.Context, db *mongo.Database) error {
		coll := db.Collection(mirror.KindUsers.Collection())

		count, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		total = count

		docs, err := mirror.Find[User](ctx, coll, filter, mirror.Page(params.PageSize, params.Offset()))
		if err != nil {
			return err
		}
		users = rows(docs)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return users, int(total), nil
}

func (r *mongoReader) ListByIDs(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var users []User

	err := r.store.Execute(ctx, "user.mongo.ListByIDs", func(ctx context.Context, db *mongo.Database) error {
		docs, err := mirror.Find[User](ctx,
			db.Collection(mirror.KindUsers.Collection()),
			bson.M{mirror.FieldPrimaryID: bson.M{"$in": ids}},
		)
		if err != nil {
			return err
		}
		users = rows(docs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

func rows(docs []mirror.Doc[User]) []User {
	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		doc.Row.MirrorID = doc.MirrorID()
		users = append(users, doc.Row)
	}
	return users
}
