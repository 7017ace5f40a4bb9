// Package gateway enforces the verification state machine for quarantined
// story elements. Every reviewer decision, single or bulk, funnels through
// this service: approve, reject, or edit-then-approve, each resolved as one
// atomic ledger transition.
package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/catalog"
	"github.com/fablesmith/loregate/internal/ledger"
)

// StatsInvalidator is the slice of the stats aggregator the gateway needs:
// dropping cached counts for a series after a successful transition.
type StatsInvalidator interface {
	Invalidate(seriesID string)
}

// Service applies verification transitions against the pending ledger.
type Service struct {
	store   ledger.Store
	stats   StatsInvalidator
	logger  *zap.Logger
	metrics *Metrics
}

// NewService creates the verification gateway. invalidator may be nil when
// no stats cache is in play.
func NewService(store ledger.Store, invalidator StatsInvalidator, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:   store,
		stats:   invalidator,
		logger:  logger,
		metrics: NewMetrics(logger),
	}, nil
}

// Approve transitions one pending item to approved with no field changes.
// The item becomes visible to approved-only consumers.
func (s *Service) Approve(ctx context.Context, seriesID string, itemType catalog.ItemType, id string) (catalog.PendingItem, error) {
	return s.transition(ctx, seriesID, itemType, id, catalog.StatusApproved, nil, "approve")
}

// Reject transitions one pending item to rejected with no field changes.
// The item is permanently excluded from consumers and retained for audit.
func (s *Service) Reject(ctx context.Context, seriesID string, itemType catalog.ItemType, id string) (catalog.PendingItem, error) {
	return s.transition(ctx, seriesID, itemType, id, catalog.StatusRejected, nil, "reject")
}

// EditAndApprove validates the patch against the item type's editable field
// set, applies it, and approves, as one indivisible operation. A failing
// patch leaves the item pending with no partial application.
func (s *Service) EditAndApprove(ctx context.Context, seriesID string, itemType catalog.ItemType, id string, patch catalog.EditPatch) (catalog.PendingItem, error) {
	return s.transition(ctx, seriesID, itemType, id, catalog.StatusApproved, patch, "edit_approve")
}

func (s *Service) transition(ctx context.Context, seriesID string, itemType catalog.ItemType, id string, newStatus catalog.Status, patch catalog.EditPatch, action string) (catalog.PendingItem, error) {
	if _, err := catalog.ParseItemType(string(itemType)); err != nil {
		return catalog.PendingItem{}, err
	}

	item, err := s.store.ApplyTransition(ctx, seriesID, itemType, id, newStatus, patch)
	if err != nil {
		s.metrics.RecordTransition(ctx, action, outcomeOf(err))
		s.logger.Debug("transition refused",
			zap.String("series_id", seriesID),
			zap.String("item_type", string(itemType)),
			zap.String("id", id),
			zap.String("action", action),
			zap.Error(err))
		return catalog.PendingItem{}, err
	}

	if s.stats != nil {
		s.stats.Invalidate(seriesID)
	}
	s.metrics.RecordTransition(ctx, action, "ok")
	s.logger.Info("transition applied",
		zap.String("series_id", seriesID),
		zap.String("item_type", string(itemType)),
		zap.String("id", id),
		zap.String("action", action),
		zap.String("status", string(item.Status)))
	return item, nil
}
