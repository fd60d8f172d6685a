package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storagehub/storaged/internal/apperr"
	"github.com/storagehub/storaged/internal/document"
	"github.com/storagehub/storaged/internal/session"
)

// Mongo is the MongoDB-backed Repository implementation.
type Mongo[T any, PT Pointer[T]] struct {
	col     *mongo.Collection
	session session.UserSession
}

// NewMongo builds a repository over the entity type's registered
// collection in db.
func NewMongo[T any, PT Pointer[T]](db *mongo.Database, sess session.UserSession) *Mongo[T, PT] {
	var zero T
	name := PT(&zero).Collection()
	return &Mongo[T, PT]{col: db.Collection(name), session: sess}
}

// Collection exposes the underlying collection for change-feed
// subscription and index management.
func (m *Mongo[T, PT]) Collection() *mongo.Collection { return m.col }

func (m *Mongo[T, PT]) Query() *Query[T, PT] { return newQuery[T, PT](m) }

func (m *Mongo[T, PT]) runQuery(ctx context.Context, q *Query[T, PT]) ([]PT, error) {
	opts := options.Find()
	if len(q.sort) > 0 {
		opts.SetSort(q.sort)
	}
	if q.limit > 0 {
		opts.SetLimit(q.limit)
	}
	if q.skip > 0 {
		opts.SetSkip(q.skip)
	}
	cur, err := m.col.Find(ctx, q.filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.col.Name(), err)
	}
	return decodeAll[T, PT](ctx, cur)
}

func (m *Mongo[T, PT]) countQuery(ctx context.Context, q *Query[T, PT]) (int64, error) {
	n, err := m.col.CountDocuments(ctx, q.filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", m.col.Name(), err)
	}
	return n, nil
}

func (m *Mongo[T, PT]) FilterBy(ctx context.Context, filter bson.M) ([]PT, error) {
	cur, err := m.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.col.Name(), err)
	}
	return decodeAll[T, PT](ctx, cur)
}

func (m *Mongo[T, PT]) FilterByProjected(ctx context.Context, filter, projection bson.M) ([]bson.M, error) {
	cur, err := m.col.Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.col.Name(), err)
	}
	out := []bson.M{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", m.col.Name(), err)
	}
	return out, nil
}

func (m *Mongo[T, PT]) FindOne(ctx context.Context, filter bson.M) (PT, error) {
	doc := PT(new(T))
	err := m.col.FindOne(ctx, filter).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	if err != nil {
		var zero PT
		return zero, fmt.Errorf("find one %s: %w", m.col.Name(), err)
	}
	return doc, nil
}

func (m *Mongo[T, PT]) FindByID(ctx context.Context, id string) (PT, error) {
	oid, err := document.ParseID(id)
	if err != nil {
		var zero PT
		return zero, err
	}
	return m.FindOne(ctx, bson.M{"_id": oid})
}

func (m *Mongo[T, PT]) InsertOne(ctx context.Context, doc PT) (PT, error) {
	doc.StampCreated(m.session.CurrentUserName())
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		var zero PT
		return zero, fmt.Errorf("insert %s: %w", m.col.Name(), err)
	}
	return doc, nil
}

func (m *Mongo[T, PT]) InsertMany(ctx context.Context, docs []PT) ([]PT, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to insert", apperr.ErrInvalidArgument)
	}
	user := m.session.CurrentUserName()
	models := make([]interface{}, len(docs))
	for i, d := range docs {
		d.StampCreated(user)
		models[i] = d
	}
	if _, err := m.col.InsertMany(ctx, models); err != nil {
		return nil, fmt.Errorf("insert many %s: %w", m.col.Name(), err)
	}
	return docs, nil
}

func (m *Mongo[T, PT]) ReplaceOne(ctx context.Context, doc PT) (PT, error) {
	doc.StampUpdated(m.session.CurrentUserName(), time.Now().UTC())
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": doc.DocumentID()}, doc)
	if err != nil {
		var zero PT
		return zero, fmt.Errorf("replace %s: %w", m.col.Name(), err)
	}
	if res.MatchedCount == 0 {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	return doc, nil
}

func (m *Mongo[T, PT]) DeleteOne(ctx context.Context, filter bson.M) (PT, error) {
	doc := PT(new(T))
	err := m.col.FindOneAndDelete(ctx, filter).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	if err != nil {
		var zero PT
		return zero, fmt.Errorf("delete %s: %w", m.col.Name(), err)
	}
	return doc, nil
}

func (m *Mongo[T, PT]) DeleteByID(ctx context.Context, id string) (PT, error) {
	oid, err := document.ParseID(id)
	if err != nil {
		var zero PT
		return zero, err
	}
	return m.DeleteOne(ctx, bson.M{"_id": oid})
}

func (m *Mongo[T, PT]) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := m.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete many %s: %w", m.col.Name(), err)
	}
	return res.DeletedCount, nil
}

func decodeAll[T any, PT Pointer[T]](ctx context.Context, cur *mongo.Cursor) ([]PT, error) {
	defer cur.Close(ctx)
	out := []PT{}
	for cur.Next(ctx) {
		doc := PT(new(T))
		if err := cur.Decode(doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return out, nil
}
