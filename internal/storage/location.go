// Package storage holds the warehouse entities and the placement
// protocol between storage units and storage bins.
package storage

import "github.com/storagehub/storaged/internal/document"

// Location is a physical site holding storage units.
type Location struct {
	document.Document `bson:",inline"`
}

func (Location) Collection() string { return "Location" }

// NewLocation returns a location with a generated id.
func NewLocation(name string) *Location {
	return &Location{Document: document.New(name)}
}
