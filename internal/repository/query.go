package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/storagehub/storaged/internal/apperr"
)

// Query is a lazy, composable query over a collection. Chained calls
// return derived queries without touching the store; All, First and
// Count each run a fresh find, so the same query can be executed more
// than once.
type Query[T any, PT Pointer[T]] struct {
	exec   queryExecutor[T, PT]
	filter bson.M
	sort   bson.D
	limit  int64
	skip   int64
}

type queryExecutor[T any, PT Pointer[T]] interface {
	runQuery(ctx context.Context, q *Query[T, PT]) ([]PT, error)
	countQuery(ctx context.Context, q *Query[T, PT]) (int64, error)
}

func newQuery[T any, PT Pointer[T]](exec queryExecutor[T, PT]) *Query[T, PT] {
	return &Query[T, PT]{exec: exec, filter: bson.M{}}
}

func (q *Query[T, PT]) clone() *Query[T, PT] {
	cp := *q
	cp.filter = make(bson.M, len(q.filter))
	for k, v := range q.filter {
		cp.filter[k] = v
	}
	cp.sort = append(bson.D{}, q.sort...)
	return &cp
}

// Filter merges additional conditions into the query's filter document.
func (q *Query[T, PT]) Filter(filter bson.M) *Query[T, PT] {
	cp := q.clone()
	for k, v := range filter {
		cp.filter[k] = v
	}
	return cp
}

// Sort orders results by the given keys (1 ascending, -1 descending).
func (q *Query[T, PT]) Sort(sort bson.D) *Query[T, PT] {
	cp := q.clone()
	cp.sort = append(bson.D{}, sort...)
	return cp
}

func (q *Query[T, PT]) Limit(n int64) *Query[T, PT] {
	cp := q.clone()
	cp.limit = n
	return cp
}

func (q *Query[T, PT]) Skip(n int64) *Query[T, PT] {
	cp := q.clone()
	cp.skip = n
	return cp
}

// All executes the query and returns every match.
func (q *Query[T, PT]) All(ctx context.Context) ([]PT, error) {
	return q.exec.runQuery(ctx, q)
}

// First returns the first match or apperr.ErrNotFound.
func (q *Query[T, PT]) First(ctx context.Context) (PT, error) {
	docs, err := q.Limit(1).All(ctx)
	if err != nil {
		var zero PT
		return zero, err
	}
	if len(docs) == 0 {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	return docs[0], nil
}

// Count returns the number of matches, ignoring limit and skip.
func (q *Query[T, PT]) Count(ctx context.Context) (int64, error) {
	return q.exec.countQuery(ctx, q)
}
