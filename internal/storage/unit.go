package storage

import (
	"fmt"

	"github.com/storagehub/storaged/internal/apperr"
	"github.com/storagehub/storaged/internal/document"
)

// ErrOutOfRange reports a cell address outside the unit's grid.
var ErrOutOfRange = fmt.Errorf("%w: cell address out of range", apperr.ErrInvalidArgument)

// ErrImmutableLayout rejects edits to a unit's grid through the generic
// update path. The layout is fixed at creation; placement changes go
// through the coordinator.
var ErrImmutableLayout = fmt.Errorf("%w: storage unit layout is fixed, use placement actions", apperr.ErrInvalidOperation)

// Column is one grid cell, optionally holding a weak reference to the
// bin stored there. At most one bin per cell.
type Column struct {
	Index int                 `bson:"index" json:"index"`
	Bin   *document.Reference `bson:"bin,omitempty" json:"bin,omitempty"`
}

// Row is one grid row of a storage unit.
type Row struct {
	Index   int      `bson:"index" json:"index"`
	Columns []Column `bson:"storageColumns" json:"storageColumns"`
}

// StorageUnit owns a rectangular grid of cells, fixed at creation, and
// a weak reference to its location.
type StorageUnit struct {
	document.Document `bson:",inline"`
	Rows              []Row               `bson:"rows" json:"rows"`
	Location          *document.Reference `bson:"location,omitempty" json:"location,omitempty"`
}

func (StorageUnit) Collection() string { return "StorageUnit" }

// NewGrid builds a rows × columnsPerRow layout of empty cells.
func NewGrid(rows, columnsPerRow int) []Row {
	grid := make([]Row, rows)
	for r := range grid {
		grid[r].Index = r
		grid[r].Columns = make([]Column, columnsPerRow)
		for c := range grid[r].Columns {
			grid[r].Columns[c].Index = c
		}
	}
	return grid
}

// NewStorageUnit returns a unit with a generated id and a fixed grid.
func NewStorageUnit(name string, rows, columnsPerRow int) (*StorageUnit, error) {
	if rows <= 0 || columnsPerRow <= 0 {
		return nil, fmt.Errorf("%w: layout must be at least 1x1", apperr.ErrInvalidArgument)
	}
	return &StorageUnit{
		Document: document.New(name),
		Rows:     NewGrid(rows, columnsPerRow),
	}, nil
}

func (u *StorageUnit) RowCount() int { return len(u.Rows) }

func (u *StorageUnit) ColumnsPerRow() int {
	if len(u.Rows) == 0 {
		return 0
	}
	return len(u.Rows[0].Columns)
}

func (u *StorageUnit) cellAt(row, col int) (*Column, error) {
	if row < 0 || row >= len(u.Rows) {
		return nil, fmt.Errorf("%w: row %d outside [0,%d)", ErrOutOfRange, row, len(u.Rows))
	}
	cols := u.Rows[row].Columns
	if col < 0 || col >= len(cols) {
		return nil, fmt.Errorf("%w: column %d outside [0,%d)", ErrOutOfRange, col, len(cols))
	}
	return &cols[col], nil
}

// BinAt returns the reference stored at (row, col), nil for an empty
// cell.
func (u *StorageUnit) BinAt(row, col int) (*document.Reference, error) {
	cell, err := u.cellAt(row, col)
	if err != nil {
		return nil, err
	}
	return cell.Bin, nil
}

func (u *StorageUnit) setBin(row, col int, ref *document.Reference) error {
	cell, err := u.cellAt(row, col)
	if err != nil {
		return err
	}
	cell.Bin = ref
	return nil
}
