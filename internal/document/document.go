// Package document holds the base persisted model and the weak
// reference type embedded across entities.
package document

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/storagehub/storaged/internal/apperr"
)

// Document is the base model every persisted entity embeds. The id is
// generated on the client before the first insert and never changes.
//
// The creation instant is not stored anywhere: an ObjectID encodes its
// generation time, so CreatedAt is derived from the id.
type Document struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CreatedBy string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedAt *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	UpdatedBy *string            `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// New returns a base document with a freshly generated id.
func New(name string) Document {
	return Document{ID: primitive.NewObjectID(), Name: name}
}

func (d *Document) DocumentID() primitive.ObjectID { return d.ID }

func (d *Document) SetDocumentID(id primitive.ObjectID) { d.ID = id }

func (d *Document) DocumentName() string { return d.Name }

// CreatedAt derives the creation instant from the id. Calling it twice
// on the same id yields the same instant.
func (d *Document) CreatedAt() time.Time { return d.ID.Timestamp() }

// StampCreated records the creating user and clears any update stamps.
// A zero id is assigned here so documents built as struct literals are
// still identified before they reach the store.
func (d *Document) StampCreated(by string) {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	d.CreatedBy = by
	d.UpdatedAt = nil
	d.UpdatedBy = nil
}

// StampUpdated records the updating user and instant.
func (d *Document) StampUpdated(by string, at time.Time) {
	d.UpdatedAt = &at
	d.UpdatedBy = &by
}

// Entity is implemented by every persisted type. Collection names are
// registered per type at compile time via the Collection method instead
// of being resolved from runtime type metadata.
type Entity interface {
	Collection() string
	DocumentID() primitive.ObjectID
	SetDocumentID(primitive.ObjectID)
	DocumentName() string
	StampCreated(by string)
	StampUpdated(by string, at time.Time)
}

// Reference is a denormalized {id, name} pointer embedded in other
// entities for display and lookup. It never owns the referenced
// document and is not kept in sync when the referent is renamed.
type Reference struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// NewReference builds a weak reference to an entity.
func NewReference(e Entity) *Reference {
	return &Reference{ID: e.DocumentID(), Name: e.DocumentName()}
}

// ParseID validates and parses a hex document id. Malformed ids fail
// with ErrInvalidArgument before any store round-trip.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed document id %q", apperr.ErrInvalidArgument, id)
	}
	return oid, nil
}
