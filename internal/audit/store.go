package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the audit trail's collection. Every tracked
// collection's events land here.
const CollectionName = "Audit"

// DefaultRetention is the age after which the store reaps records.
const DefaultRetention = 30 * 24 * time.Hour

// Store is the append-only audit collection.
type Store struct {
	col       *mongo.Collection
	retention time.Duration
}

type StoreOption func(*Store)

// WithRetention overrides the default 30-day expiry window. Tests use
// this to assert expiry with a short TTL.
func WithRetention(d time.Duration) StoreOption {
	return func(s *Store) { s.retention = d }
}

func NewStore(db *mongo.Database, opts ...StoreOption) *Store {
	s := &Store{col: db.Collection(CollectionName), retention: DefaultRetention}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Retention() time.Duration { return s.retention }

// EnsureIndexes creates the non-unique TTL index that expires records
// after the retention window. Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().
			SetName("CreatedAt-TTL").
			SetUnique(false).
			SetExpireAfterSeconds(int32(s.retention / time.Second)),
	}
	if _, err := s.col.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("audit retention index: %w", err)
	}
	return nil
}

// Bootstrap inserts one sentinel record when the collection is empty,
// so a liveness probe always has something to find.
func (s *Store) Bootstrap(ctx context.Context) error {
	n, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("audit count: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.col.InsertOne(ctx, NewRecord()); err != nil {
		return fmt.Errorf("audit sentinel: %w", err)
	}
	return nil
}

// Append writes one record to the trail.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if _, err := s.col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}
