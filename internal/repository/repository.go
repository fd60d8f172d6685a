// Package repository provides the typed CRUD surface over one MongoDB
// collection per entity type, with audit stamping on every write.
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/storagehub/storaged/internal/document"
)

// Pointer constrains PT to a pointer to T implementing Entity, so the
// implementations can allocate decode targets with new(T).
type Pointer[T any] interface {
	document.Entity
	*T
}

// Repository is the only persistence entry point exposed to callers.
// Filters are MongoDB filter documents. Absence is reported with
// apperr.ErrNotFound, never a panic; malformed ids fail with
// apperr.ErrInvalidArgument before any round-trip. Replacements are
// last-writer-wins; no concurrency token is used.
type Repository[T any, PT Pointer[T]] interface {
	// Query returns a lazy, composable query over the collection. Each
	// executed run is independent, so a query value is restartable.
	Query() *Query[T, PT]

	FilterBy(ctx context.Context, filter bson.M) ([]PT, error)
	FilterByProjected(ctx context.Context, filter, projection bson.M) ([]bson.M, error)

	FindOne(ctx context.Context, filter bson.M) (PT, error)
	FindByID(ctx context.Context, id string) (PT, error)

	// InsertOne stamps CreatedBy from the session, clears the update
	// stamps and persists the document. The passed value is mutated in
	// place, so reusing the same pointer across calls is not idempotent.
	InsertOne(ctx context.Context, doc PT) (PT, error)
	InsertMany(ctx context.Context, docs []PT) ([]PT, error)

	// ReplaceOne stamps UpdatedAt/UpdatedBy and replaces the document
	// whose id matches. It never creates a document.
	ReplaceOne(ctx context.Context, doc PT) (PT, error)

	DeleteOne(ctx context.Context, filter bson.M) (PT, error)
	DeleteByID(ctx context.Context, id string) (PT, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
}
