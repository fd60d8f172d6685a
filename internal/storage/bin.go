package storage

import "github.com/storagehub/storaged/internal/document"

// BinContent is one line item stored in a bin.
type BinContent struct {
	ContentType string  `bson:"contentType" json:"contentType"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	UnitWeight  float64 `bson:"unitWeight" json:"unitWeight"`
}

func (c BinContent) TotalWeight() float64 {
	return float64(c.Quantity) * c.UnitWeight
}

// BinLocation is the bin's denormalized back-reference to its cell.
// The placement invariant holds when this and the owning unit's cell
// agree on occupancy; the store does not enforce that.
type BinLocation struct {
	Unit        *document.Reference `bson:"unit" json:"unit"`
	Location    *document.Reference `bson:"location,omitempty" json:"location,omitempty"`
	RowIndex    int                 `bson:"rowIndex" json:"rowIndex"`
	ColumnIndex int                 `bson:"columnIndex" json:"columnIndex"`
}

// NewBinLocation denormalizes a unit cell address for embedding in a
// bin.
func NewBinLocation(unit *StorageUnit, row, col int) *BinLocation {
	return &BinLocation{
		Unit:        document.NewReference(unit),
		Location:    unit.Location,
		RowIndex:    row,
		ColumnIndex: col,
	}
}

// StorageBin is a movable container, optionally placed in one unit
// cell.
type StorageBin struct {
	document.Document `bson:",inline"`
	Contents          []BinContent `bson:"contents,omitempty" json:"contents,omitempty"`
	Location          *BinLocation `bson:"storageBinLocation,omitempty" json:"storageBinLocation,omitempty"`
}

func (StorageBin) Collection() string { return "Bin" }

// NewStorageBin returns a bin with a generated id.
func NewStorageBin(name string) *StorageBin {
	return &StorageBin{Document: document.New(name)}
}

// Weight sums the weight of the bin's contents.
func (b *StorageBin) Weight() float64 {
	var total float64
	for _, c := range b.Contents {
		total += c.TotalWeight()
	}
	return total
}
