package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestParseItemType(t *testing.T) {
	t.Run("accepts every member of the closed set", func(t *testing.T) {
		for _, want := range AllItemTypes() {
			got, err := ParseItemType(string(want))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		for _, s := range []string{"", "chapter", "Character", "world-rule"} {
			_, err := ParseItemType(s)
			assert.ErrorIs(t, err, ErrUnknownItemType, "input %q", s)
		}
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestNewPendingItem(t *testing.T) {
	t.Run("creates a pending item with generated id", func(t *testing.T) {
		item, err := NewPendingItem("series-1", ItemTypeCharacter, "", "Mira", "A wandering cartographer.", floatPtr(0.9), "ch03", nil)
		require.NoError(t, err)

		assert.NotEmpty(t, item.ID)
		assert.Equal(t, "series-1", item.SeriesID)
		assert.Equal(t, ItemTypeCharacter, item.Type)
		assert.Equal(t, StatusPending, item.Status)
		assert.False(t, item.CreatedAt.IsZero())
		assert.Nil(t, item.FinalizedAt)
	})

	t.Run("keeps producer-supplied id", func(t *testing.T) {
		item, err := NewPendingItem("series-1", ItemTypeFact, "fact-42", "Capital", "The capital moved twice.", nil, "", nil)
		require.NoError(t, err)
		assert.Equal(t, "fact-42", item.ID)
	})

	tests := []struct {
		name        string
		series      string
		itemType    ItemType
		itemName    string
		description string
		confidence  *float64
		details     Details
		wantErr     error
	}{
		{"empty series", "", ItemTypeFact, "n", "d", nil, nil, ErrInvalidItem},
		{"unknown type", "s", ItemType("rumor"), "n", "d", nil, nil, ErrUnknownItemType},
		{"empty name", "s", ItemTypeFact, "", "d", nil, nil, ErrInvalidItem},
		{"empty description", "s", ItemTypeFact, "n", "", nil, nil, ErrInvalidItem},
		{"confidence above range", "s", ItemTypeFact, "n", "d", floatPtr(1.5), nil, ErrInvalidItem},
		{"confidence below range", "s", ItemTypeFact, "n", "d", floatPtr(-0.1), nil, ErrInvalidItem},
		{"details variant mismatch", "s", ItemTypeFact, "n", "d", nil, CharacterDetails{Role: "lead"}, ErrInvalidItem},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := NewPendingItem(tt.series, tt.itemType, "", tt.itemName, tt.description, tt.confidence, "", tt.details)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPendingItemJSONRoundTrip(t *testing.T) {
	item, err := NewPendingItem("series-1", ItemTypeForeshadowing, "seed-7", "The cracked bell", "The bell in the square is cracked.", floatPtr(0.7), "ch01",
		ForeshadowingDetails{PlantedChapter: 1, Subtlety: "high"})
	require.NoError(t, err)

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded PendingItem
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, item.ID, decoded.ID)
	assert.Equal(t, item.Type, decoded.Type)
	require.IsType(t, ForeshadowingDetails{}, decoded.Details)
	assert.Equal(t, item.Details, decoded.Details)
}
