package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/storagehub/storaged/internal/apperr"
	"github.com/storagehub/storaged/internal/document"
	"github.com/storagehub/storaged/internal/repository"
	"github.com/storagehub/storaged/pkg/metrics"
)

// Coordinator keeps a unit's grid cell and a bin's back-reference
// mutually consistent without a multi-document transaction.
//
// Write ordering bounds the inconsistency window seen by concurrent
// readers: an evicted occupant is persisted first, then the unit, then
// the newly placed bin. A crash between writes leaves the two documents
// in detectable disagreement; nothing repairs that automatically.
// Concurrent assignments to the same cell or bin are not serialized and
// race last-writer-wins.
type Coordinator struct {
	units repository.Repository[StorageUnit, *StorageUnit]
	bins  repository.Repository[StorageBin, *StorageBin]
}

func NewCoordinator(
	units repository.Repository[StorageUnit, *StorageUnit],
	bins repository.Repository[StorageBin, *StorageBin],
) *Coordinator {
	return &Coordinator{units: units, bins: bins}
}

// AssignBin places the bin at (row, col) of the unit, evicting any
// current occupant. Until the first replace, no side effect has
// happened, so NotFound and out-of-range failures leave both documents
// untouched.
func (c *Coordinator) AssignBin(ctx context.Context, unitID, binID string, row, col int) (*StorageBin, error) {
	unit, err := c.units.FindByID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("load unit: %w", err)
	}
	bin, err := c.bins.FindByID(ctx, binID)
	if err != nil {
		return nil, fmt.Errorf("load bin: %w", err)
	}
	occupant, err := unit.BinAt(row, col)
	if err != nil {
		return nil, err
	}

	if occupant != nil && occupant.ID != bin.ID {
		evicted, err := c.bins.FindByID(ctx, occupant.ID.Hex())
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			// dangling cell reference, the bin side is already gone
		case err != nil:
			return nil, fmt.Errorf("load occupant: %w", err)
		default:
			evicted.Location = nil
			if _, err := c.bins.ReplaceOne(ctx, evicted); err != nil {
				return nil, fmt.Errorf("evict occupant: %w", err)
			}
			metrics.PlacementEvictions.Inc()
		}
	}

	bin.Location = NewBinLocation(unit, row, col)
	if err := unit.setBin(row, col, document.NewReference(bin)); err != nil {
		return nil, err
	}
	if _, err := c.units.ReplaceOne(ctx, unit); err != nil {
		return nil, fmt.Errorf("persist unit: %w", err)
	}
	if _, err := c.bins.ReplaceOne(ctx, bin); err != nil {
		return nil, fmt.Errorf("persist bin: %w", err)
	}
	metrics.PlacementAssignments.Inc()
	return bin, nil
}

// GetAssignedBin reads the cell's current reference without mutating
// anything. It returns nil for an empty cell.
func (c *Coordinator) GetAssignedBin(ctx context.Context, unitID string, row, col int) (*document.Reference, error) {
	unit, err := c.units.FindByID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("load unit: %w", err)
	}
	return unit.BinAt(row, col)
}
