// Package bulk fans one verification action out over every item of a type
// within a series. The item-id list is snapshotted once at call time;
// each transition is dispatched independently with bounded concurrency, and
// every item's outcome is reported individually. There is no partial-batch
// rollback: one item losing a race to another reviewer must not corrupt the
// approvals already applied to its neighbors.
package bulk

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/catalog"
	"github.com/fablesmith/loregate/internal/ledger"
)

// DefaultWorkers bounds fan-out concurrency when no limit is configured.
const DefaultWorkers = 8

// Action is a bulk-applicable transition.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ErrUnknownAction is returned for an action outside {approve, reject}.
var ErrUnknownAction = fmt.Errorf("unknown bulk action")

// ParseAction validates a wire-format action string.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionApprove, ActionReject:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Transitioner is the slice of the verification gateway the orchestrator
// dispatches through.
type Transitioner interface {
	Approve(ctx context.Context, seriesID string, itemType catalog.ItemType, id string) (catalog.PendingItem, error)
	Reject(ctx context.Context, seriesID string, itemType catalog.ItemType, id string) (catalog.PendingItem, error)
}

// ItemFailure reports one item that could not be transitioned.
type ItemFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Result reports every snapshotted item's outcome, in snapshot order.
type Result struct {
	Action    Action        `json:"action"`
	Succeeded []string      `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

// Orchestrator applies bulk transitions.
type Orchestrator struct {
	store   ledger.Store
	gateway Transitioner
	workers int
	logger  *zap.Logger
	metrics *Metrics
}

// New creates a bulk orchestrator. workers below 1 falls back to
// DefaultWorkers.
func New(store ledger.Store, gateway Transitioner, workers int, logger *zap.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}
	if workers < 1 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		store:   store,
		gateway: gateway,
		workers: workers,
		logger:  logger,
		metrics: NewMetrics(logger),
	}, nil
}

// outcome is one item's fan-out result, tagged with its snapshot position so
// the report preserves review-queue order.
type outcome struct {
	index int
	id    string
	err   error
}

// Apply snapshots the item ids matching (seriesID, itemType) and applies the
// action to each, concurrently and independently. Items inserted after the
// snapshot are not picked up; callers re-query to discover them.
//
// The returned error covers snapshot failure only. Per-item failures,
// including AlreadyFinalized races with other reviewers, land in
// Result.Failed.
func (o *Orchestrator) Apply(ctx context.Context, seriesID string, itemType catalog.ItemType, action Action) (Result, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return Result{}, err
	}
	if _, err := catalog.ParseItemType(string(itemType)); err != nil {
		return Result{}, err
	}

	// The snapshot covers every item of the type, not just pending ones:
	// an already-finalized item must surface in Failed as AlreadyFinalized
	// rather than vanish from the report.
	snapshot, err := o.store.List(ctx, seriesID, ledger.TypeFilter(itemType))
	if err != nil {
		return Result{}, fmt.Errorf("snapshot items: %w", err)
	}

	result := Result{
		Action:    action,
		Succeeded: []string{},
		Failed:    []ItemFailure{},
	}
	if len(snapshot) == 0 {
		return result, nil
	}

	ids := make([]string, len(snapshot))
	for i, item := range snapshot {
		ids[i] = item.ID
	}

	outcomes := o.fanOut(ctx, seriesID, itemType, action, ids)
	for _, oc := range outcomes {
		if oc.err != nil {
			result.Failed = append(result.Failed, ItemFailure{ID: oc.id, Error: oc.err.Error()})
		} else {
			result.Succeeded = append(result.Succeeded, oc.id)
		}
	}

	o.metrics.RecordBatch(ctx, string(action), len(result.Succeeded), len(result.Failed))
	o.logger.Info("bulk transition applied",
		zap.String("series_id", seriesID),
		zap.String("item_type", string(itemType)),
		zap.String("action", string(action)),
		zap.Int("snapshot", len(ids)),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// fanOut dispatches one transition per id over a bounded worker set and
// collects outcomes back into snapshot order.
func (o *Orchestrator) fanOut(ctx context.Context, seriesID string, itemType catalog.ItemType, action Action, ids []string) []outcome {
	workers := o.workers
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan outcome)
	outcomes := make([]outcome, len(ids))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				job.err = o.dispatch(ctx, seriesID, itemType, action, job.id)
				outcomes[job.index] = job
			}
		}()
	}

	for i, id := range ids {
		jobs <- outcome{index: i, id: id}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) dispatch(ctx context.Context, seriesID string, itemType catalog.ItemType, action Action, id string) error {
	var err error
	switch action {
	case ActionApprove:
		_, err = o.gateway.Approve(ctx, seriesID, itemType, id)
	case ActionReject:
		_, err = o.gateway.Reject(ctx, seriesID, itemType, id)
	}
	return err
}
