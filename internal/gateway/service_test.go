package gateway

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/catalog"
	"github.com/fablesmith/loregate/internal/ledger"
)

// mockStore is an in-memory ledger.Store with real transition semantics.
type mockStore struct {
	mu    sync.Mutex
	items map[string]catalog.PendingItem
}

func newMockStore() *mockStore {
	return &mockStore{items: make(map[string]catalog.PendingItem)}
}

func storeKey(seriesID string, itemType catalog.ItemType, id string) string {
	return fmt.Sprintf("%s/%s/%s", seriesID, itemType, id)
}

func (m *mockStore) Insert(ctx context.Context, item catalog.PendingItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(item.SeriesID, item.Type, item.ID)
	if _, ok := m.items[key]; ok {
		return catalog.ErrDuplicateID
	}
	m.items[key] = item
	return nil
}

func (m *mockStore) Get(ctx context.Context, seriesID string, itemType catalog.ItemType, id string) (catalog.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[storeKey(seriesID, itemType, id)]
	if !ok {
		return catalog.PendingItem{}, catalog.ErrNotFound
	}
	return item, nil
}

func (m *mockStore) List(ctx context.Context, seriesID string, filter ledger.Filter) ([]catalog.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.PendingItem
	for _, item := range m.items {
		if item.SeriesID != seriesID {
			continue
		}
		if filter.Type != nil && item.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *mockStore) ApplyTransition(ctx context.Context, seriesID string, itemType catalog.ItemType, id string, newStatus catalog.Status, patch catalog.EditPatch) (catalog.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(seriesID, itemType, id)
	item, ok := m.items[key]
	if !ok {
		return catalog.PendingItem{}, catalog.ErrNotFound
	}
	if item.Status != catalog.StatusPending {
		return catalog.PendingItem{}, fmt.Errorf("%w: item is %s", catalog.ErrAlreadyFinalized, item.Status)
	}
	edited, err := catalog.ApplyEdit(item, patch)
	if err != nil {
		return catalog.PendingItem{}, err
	}
	now := time.Now().UTC()
	edited.Status = newStatus
	edited.FinalizedAt = &now
	m.items[key] = edited
	return edited, nil
}

func (m *mockStore) CountPending(ctx context.Context, seriesID string) (map[catalog.ItemType]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[catalog.ItemType]int)
	for _, item := range m.items {
		if item.SeriesID == seriesID && item.Status == catalog.StatusPending {
			counts[item.Type]++
		}
	}
	return counts, nil
}

// recordingInvalidator records Invalidate calls.
type recordingInvalidator struct {
	mu     sync.Mutex
	series []string
}

func (r *recordingInvalidator) Invalidate(seriesID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series = append(r.series, seriesID)
}

func (r *recordingInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

func seedItem(t *testing.T, store *mockStore, itemType catalog.ItemType, id, name string) {
	t.Helper()
	item, err := catalog.NewPendingItem("series-1", itemType, id, name, "description of "+name, nil, "", nil)
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), item))
}

func TestNewService(t *testing.T) {
	_, err := NewService(nil, nil, zap.NewNop())
	assert.Error(t, err)

	svc, err := NewService(newMockStore(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("approves a pending item", func(t *testing.T) {
		store := newMockStore()
		invalidator := &recordingInvalidator{}
		svc, err := NewService(store, invalidator, zap.NewNop())
		require.NoError(t, err)
		seedItem(t, store, catalog.ItemTypeCharacter, "char-1", "Mira")

		item, err := svc.Approve(ctx, "series-1", catalog.ItemTypeCharacter, "char-1")
		require.NoError(t, err)
		assert.Equal(t, catalog.StatusApproved, item.Status)
		require.NotNil(t, item.FinalizedAt)
		assert.Equal(t, 1, invalidator.count())
	})

	t.Run("second approve reports AlreadyFinalized and keeps fields", func(t *testing.T) {
		store := newMockStore()
		svc, err := NewService(store, nil, zap.NewNop())
		require.NoError(t, err)
		seedItem(t, store, catalog.ItemTypeCharacter, "char-1", "Mira")

		first, err := svc.Approve(ctx, "series-1", catalog.ItemTypeCharacter, "char-1")
		require.NoError(t, err)

		_, err = svc.Approve(ctx, "series-1", catalog.ItemTypeCharacter, "char-1")
		assert.ErrorIs(t, err, catalog.ErrAlreadyFinalized)

		stored, err := store.Get(ctx, "series-1", catalog.ItemTypeCharacter, "char-1")
		require.NoError(t, err)
		assert.Equal(t, first, stored)
	})

	t.Run("missing item reports NotFound without invalidation", func(t *testing.T) {
		store := newMockStore()
		invalidator := &recordingInvalidator{}
		svc, err := NewService(store, invalidator, zap.NewNop())
		require.NoError(t, err)

		_, err = svc.Approve(ctx, "series-1", catalog.ItemTypeCharacter, "missing")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		assert.Zero(t, invalidator.count())
	})

	t.Run("rejects unknown item type before touching the ledger", func(t *testing.T) {
		svc, err := NewService(newMockStore(), nil, zap.NewNop())
		require.NoError(t, err)

		_, err = svc.Approve(ctx, "series-1", catalog.ItemType("rumor"), "x")
		assert.ErrorIs(t, err, catalog.ErrUnknownItemType)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc, err := NewService(store, nil, zap.NewNop())
	require.NoError(t, err)
	seedItem(t, store, catalog.ItemTypeForeshadowing, "42", "The cracked bell")

	// reject, then approve: rejection is terminal.
	item, err := svc.Reject(ctx, "series-1", catalog.ItemTypeForeshadowing, "42")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusRejected, item.Status)

	_, err = svc.Approve(ctx, "series-1", catalog.ItemTypeForeshadowing, "42")
	assert.ErrorIs(t, err, catalog.ErrAlreadyFinalized)

	stored, err := store.Get(ctx, "series-1", catalog.ItemTypeForeshadowing, "42")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusRejected, stored.Status)
}

func TestEditAndApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the edit and approves atomically", func(t *testing.T) {
		store := newMockStore()
		invalidator := &recordingInvalidator{}
		svc, err := NewService(store, invalidator, zap.NewNop())
		require.NoError(t, err)
		seedItem(t, store, catalog.ItemTypeWorldRule, "7", "Iron cannot be enchanted")

		item, err := svc.EditAndApprove(ctx, "series-1", catalog.ItemTypeWorldRule, "7",
			catalog.EditPatch{"name": "Cold iron resists enchantment"})
		require.NoError(t, err)
		assert.Equal(t, "Cold iron resists enchantment", item.Name)
		assert.Equal(t, catalog.StatusApproved, item.Status)
		assert.Equal(t, 1, invalidator.count())

		stored, err := store.Get(ctx, "series-1", catalog.ItemTypeWorldRule, "7")
		require.NoError(t, err)
		assert.Equal(t, "Cold iron resists enchantment", stored.Name)
		assert.Equal(t, catalog.StatusApproved, stored.Status)
	})

	t.Run("invalid edit leaves the item pending", func(t *testing.T) {
		store := newMockStore()
		invalidator := &recordingInvalidator{}
		svc, err := NewService(store, invalidator, zap.NewNop())
		require.NoError(t, err)
		seedItem(t, store, catalog.ItemTypeWorldRule, "7", "Iron cannot be enchanted")

		_, err = svc.EditAndApprove(ctx, "series-1", catalog.ItemTypeWorldRule, "7",
			catalog.EditPatch{"created_at": "2020-01-01"})
		assert.ErrorIs(t, err, catalog.ErrInvalidEdit)
		assert.Zero(t, invalidator.count())

		stored, err := store.Get(ctx, "series-1", catalog.ItemTypeWorldRule, "7")
		require.NoError(t, err)
		assert.Equal(t, catalog.StatusPending, stored.Status)
		assert.Equal(t, "Iron cannot be enchanted", stored.Name)
	})
}
