// Package ledger is the durable quarantine store for candidate story
// elements. It is the single source of truth for item state: producers insert
// through it, the verification gateway mutates through it, and the reviewing
// surface re-queries it instead of caching mutable copies.
package ledger

import (
	"context"

	"github.com/fablesmith/loregate/internal/catalog"
)

// Filter narrows a List call. Nil fields match everything.
type Filter struct {
	Type   *catalog.ItemType
	Status *catalog.Status
}

// TypeFilter returns a filter matching one item type.
func TypeFilter(t catalog.ItemType) Filter {
	return Filter{Type: &t}
}

// Store is the ledger contract consumed by the gateway, the stats
// aggregator, and the bulk orchestrator.
type Store interface {
	// Insert stores a new pending item. Returns catalog.ErrDuplicateID when
	// the (series_id, item_type, id) identity already exists.
	Insert(ctx context.Context, item catalog.PendingItem) error

	// Get fetches one item by identity. Returns catalog.ErrNotFound when the
	// item does not exist.
	Get(ctx context.Context, seriesID string, itemType catalog.ItemType, id string) (catalog.PendingItem, error)

	// List returns the series' items matching the filter, ordered by
	// created_at ascending (oldest first, review-queue order).
	List(ctx context.Context, seriesID string, filter Filter) ([]catalog.PendingItem, error)

	// ApplyTransition is the only mutation entry point. It applies the edit
	// patch (which may be empty) and moves the item from pending to the given
	// terminal status as one atomic read-modify-write: the underlying update
	// is conditional on status still being pending, so concurrent transitions
	// on the same identity resolve with exactly one winner.
	//
	// Returns catalog.ErrNotFound when the item does not exist,
	// catalog.ErrAlreadyFinalized when it is no longer pending, and
	// catalog.ErrInvalidEdit when the patch is invalid; in every failure case
	// the stored row is untouched.
	ApplyTransition(ctx context.Context, seriesID string, itemType catalog.ItemType, id string, newStatus catalog.Status, patch catalog.EditPatch) (catalog.PendingItem, error)

	// CountPending returns the live number of pending items per type for a
	// series. Types with no pending items are absent from the map.
	CountPending(ctx context.Context, seriesID string) (map[catalog.ItemType]int, error)
}
