// Package audit maintains the append-only audit trail fed by each
// tracked collection's change feed.
package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Operation types delivered by the change feed.
const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpReplace = "replace"
	OpDelete  = "delete"
)

// Record is one audit trail entry. Records are append-only, created
// only by the watcher, and reaped by a TTL index once older than the
// retention window.
//
// CreatedAt repeats the ObjectID timestamp. Unlike regular documents it
// must be stored, because the TTL reaper needs an indexed field.
type Record struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	CollectionName string             `bson:"collectionName,omitempty" json:"collectionName,omitempty"`
	DocumentKey    bson.M             `bson:"documentKey,omitempty" json:"documentKey,omitempty"`
	OperationType  string             `bson:"operationType,omitempty" json:"operationType,omitempty"`
	RemovedFields  []string           `bson:"removedFields,omitempty" json:"removedFields,omitempty"`
	UpdatedFields  bson.M             `bson:"updatedFields,omitempty" json:"updatedFields,omitempty"`
}

// NewRecord allocates a record with a fresh id and the matching
// creation instant.
func NewRecord() *Record {
	id := primitive.NewObjectID()
	return &Record{ID: id, CreatedAt: id.Timestamp()}
}

// Event is one committed mutation delivered by a collection's change
// feed. UpdateDescription is present on update events only.
type Event struct {
	OperationType     string             `bson:"operationType"`
	DocumentKey       bson.M             `bson:"documentKey"`
	UpdateDescription *UpdateDescription `bson:"updateDescription,omitempty"`
}

type UpdateDescription struct {
	UpdatedFields bson.M   `bson:"updatedFields,omitempty"`
	RemovedFields []string `bson:"removedFields,omitempty"`
}

// FromEvent synthesizes the audit record for one change event.
func FromEvent(collection string, ev *Event) *Record {
	rec := NewRecord()
	rec.CollectionName = collection
	rec.DocumentKey = ev.DocumentKey
	rec.OperationType = ev.OperationType
	if ev.UpdateDescription != nil {
		rec.UpdatedFields = ev.UpdateDescription.UpdatedFields
		rec.RemovedFields = ev.UpdateDescription.RemovedFields
	}
	return rec
}
