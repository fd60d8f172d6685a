package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/storagehub/storaged/internal/apperr"
	"github.com/storagehub/storaged/internal/document"
	"github.com/storagehub/storaged/internal/session"
)

// Memory is an in-memory Repository with the same contract as Mongo,
// used by unit tests and local runs without a MongoDB instance.
// Documents are stored as marshaled bson so reads return independent
// copies. Filters support top-level and dotted-path equality plus
// $exists; sorts compare scalars on top-level and dotted paths.
type Memory[T any, PT Pointer[T]] struct {
	mu      sync.RWMutex
	docs    map[primitive.ObjectID]bson.Raw
	order   []primitive.ObjectID
	session session.UserSession
}

func NewMemory[T any, PT Pointer[T]](sess session.UserSession) *Memory[T, PT] {
	return &Memory[T, PT]{
		docs:    make(map[primitive.ObjectID]bson.Raw),
		session: sess,
	}
}

func (m *Memory[T, PT]) Query() *Query[T, PT] { return newQuery[T, PT](m) }

func (m *Memory[T, PT]) runQuery(ctx context.Context, q *Query[T, PT]) ([]PT, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched, err := m.matching(q.filter)
	if err != nil {
		return nil, err
	}
	if len(q.sort) > 0 {
		sortIDs(m.docs, matched, q.sort)
	}
	if q.skip > 0 {
		if q.skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[q.skip:]
		}
	}
	if q.limit > 0 && int64(len(matched)) > q.limit {
		matched = matched[:q.limit]
	}
	return m.decodeIDs(matched)
}

func (m *Memory[T, PT]) countQuery(ctx context.Context, q *Query[T, PT]) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched, err := m.matching(q.filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (m *Memory[T, PT]) FilterBy(ctx context.Context, filter bson.M) ([]PT, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched, err := m.matching(filter)
	if err != nil {
		return nil, err
	}
	return m.decodeIDs(matched)
}

func (m *Memory[T, PT]) FilterByProjected(ctx context.Context, filter, projection bson.M) ([]bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched, err := m.matching(filter)
	if err != nil {
		return nil, err
	}
	out := []bson.M{}
	for _, id := range matched {
		var full bson.M
		if err := bson.Unmarshal(m.docs[id], &full); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, project(full, projection))
	}
	return out, nil
}

func (m *Memory[T, PT]) FindOne(ctx context.Context, filter bson.M) (PT, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched, err := m.matching(filter)
	if err != nil {
		var zero PT
		return zero, err
	}
	if len(matched) == 0 {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	return m.decode(matched[0])
}

func (m *Memory[T, PT]) FindByID(ctx context.Context, id string) (PT, error) {
	oid, err := document.ParseID(id)
	if err != nil {
		var zero PT
		return zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.docs[oid]; !ok {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	return m.decode(oid)
}

func (m *Memory[T, PT]) InsertOne(ctx context.Context, doc PT) (PT, error) {
	doc.StampCreated(m.session.CurrentUserName())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.put(doc); err != nil {
		var zero PT
		return zero, err
	}
	return doc, nil
}

func (m *Memory[T, PT]) InsertMany(ctx context.Context, docs []PT) ([]PT, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to insert", apperr.ErrInvalidArgument)
	}
	user := m.session.CurrentUserName()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		d.StampCreated(user)
		if err := m.put(d); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (m *Memory[T, PT]) ReplaceOne(ctx context.Context, doc PT) (PT, error) {
	doc.StampUpdated(m.session.CurrentUserName(), time.Now().UTC())
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.DocumentID()]; !ok {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	if err := m.put(doc); err != nil {
		var zero PT
		return zero, err
	}
	return doc, nil
}

func (m *Memory[T, PT]) DeleteOne(ctx context.Context, filter bson.M) (PT, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched, err := m.matching(filter)
	if err != nil {
		var zero PT
		return zero, err
	}
	if len(matched) == 0 {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	doc, err := m.decode(matched[0])
	if err != nil {
		var zero PT
		return zero, err
	}
	m.remove(matched[0])
	return doc, nil
}

func (m *Memory[T, PT]) DeleteByID(ctx context.Context, id string) (PT, error) {
	oid, err := document.ParseID(id)
	if err != nil {
		var zero PT
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[oid]; !ok {
		var zero PT
		return zero, apperr.ErrNotFound
	}
	doc, err := m.decode(oid)
	if err != nil {
		var zero PT
		return zero, err
	}
	m.remove(oid)
	return doc, nil
}

func (m *Memory[T, PT]) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched, err := m.matching(filter)
	if err != nil {
		return 0, err
	}
	for _, id := range matched {
		m.remove(id)
	}
	return int64(len(matched)), nil
}

func (m *Memory[T, PT]) put(doc PT) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	id := doc.DocumentID()
	if _, ok := m.docs[id]; !ok {
		m.order = append(m.order, id)
	}
	m.docs[id] = raw
	return nil
}

func (m *Memory[T, PT]) remove(id primitive.ObjectID) {
	delete(m.docs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Memory[T, PT]) decode(id primitive.ObjectID) (PT, error) {
	doc := PT(new(T))
	if err := bson.Unmarshal(m.docs[id], doc); err != nil {
		var zero PT
		return zero, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

func (m *Memory[T, PT]) decodeIDs(ids []primitive.ObjectID) ([]PT, error) {
	out := []PT{}
	for _, id := range ids {
		doc, err := m.decode(id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// matching returns the ids of documents satisfying the filter, in
// insertion order. Callers must hold at least the read lock.
func (m *Memory[T, PT]) matching(filter bson.M) ([]primitive.ObjectID, error) {
	matched := []primitive.ObjectID{}
	for _, id := range m.order {
		ok, err := matches(m.docs[id], filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

func matches(raw bson.Raw, filter bson.M) (bool, error) {
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	for path, want := range filter {
		got, present := lookupPath(doc, path)
		if cond, isOp := want.(bson.M); isOp {
			exists, hasOp := cond["$exists"]
			if !hasOp {
				return false, fmt.Errorf("%w: unsupported filter operator in %v", apperr.ErrInvalidArgument, cond)
			}
			if b, _ := exists.(bool); b != present {
				return false, nil
			}
			continue
		}
		if !present || !bsonEqual(got, want) {
			return false, nil
		}
	}
	return true, nil
}

// lookupPath resolves a dotted field path against a decoded document.
func lookupPath(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		mp, ok := cur.(bson.M)
		if !ok {
			return nil, false
		}
		cur, ok = mp[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// bsonEqual compares two values by their bson encoding, which smooths
// over int/int32/int64 and time precision differences.
func bsonEqual(got, want interface{}) bool {
	gb, err := bson.Marshal(bson.M{"v": got})
	if err != nil {
		return false
	}
	wb, err := bson.Marshal(bson.M{"v": want})
	if err != nil {
		return false
	}
	return bytes.Equal(gb, wb)
}

// project applies an include-style projection (field: 1) to a decoded
// document. _id is kept unless excluded with 0.
func project(doc bson.M, projection bson.M) bson.M {
	out := bson.M{}
	if v, ok := doc["_id"]; ok {
		if excl, has := projection["_id"]; !has || !isZeroProjection(excl) {
			out["_id"] = v
		}
	}
	for key, include := range projection {
		if key == "_id" || isZeroProjection(include) {
			continue
		}
		if v, ok := lookupPath(doc, key); ok {
			out[key] = v
		}
	}
	return out
}

func isZeroProjection(v interface{}) bool {
	switch n := v.(type) {
	case int:
		return n == 0
	case int32:
		return n == 0
	case int64:
		return n == 0
	case bool:
		return !n
	}
	return false
}

// sortIDs orders ids by the sort document's keys.
func sortIDs(docs map[primitive.ObjectID]bson.Raw, ids []primitive.ObjectID, sortDoc bson.D) {
	decoded := make(map[primitive.ObjectID]bson.M, len(ids))
	for _, id := range ids {
		var d bson.M
		if err := bson.Unmarshal(docs[id], &d); err == nil {
			decoded[id] = d
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		for _, key := range sortDoc {
			a, _ := lookupPath(decoded[ids[i]], key.Key)
			b, _ := lookupPath(decoded[ids[j]], key.Key)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if dir, ok := toInt(key.Value); ok && dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case primitive.ObjectID:
		if bv, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(av[:], bv[:])
		}
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
