package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalDetails(t *testing.T) {
	t.Run("decodes each variant by item type", func(t *testing.T) {
		tests := []struct {
			itemType ItemType
			payload  string
			want     Details
		}{
			{ItemTypeCharacter, `{"role":"antagonist","traits":["patient"]}`, CharacterDetails{Role: "antagonist", Traits: []string{"patient"}}},
			{ItemTypeWorldRule, `{"rule_category":"magic","is_hard_rule":true}`, WorldRuleDetails{RuleCategory: "magic", IsHardRule: true}},
			{ItemTypeForeshadowing, `{"planted_chapter":3,"subtlety":"low"}`, ForeshadowingDetails{PlantedChapter: 3, Subtlety: "low"}},
			{ItemTypePayoff, `{"foreshadowing_id":"seed-7","resolved_chapter":12}`, PayoffDetails{ForeshadowingID: "seed-7", ResolvedChapter: 12}},
			{ItemTypeFact, `{"category":"geography","subject":"the capital"}`, FactDetails{Category: "geography", Subject: "the capital"}},
		}
		for _, tt := range tests {
			got, err := UnmarshalDetails(tt.itemType, []byte(tt.payload))
			require.NoError(t, err, "type %s", tt.itemType)
			assert.Equal(t, tt.want, got)
		}
	})

	t.Run("nil and null payloads decode to nil", func(t *testing.T) {
		got, err := UnmarshalDetails(ItemTypeFact, nil)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = UnmarshalDetails(ItemTypeFact, []byte("null"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rejects keys outside the variant field set", func(t *testing.T) {
		_, err := UnmarshalDetails(ItemTypeWorldRule, []byte(`{"rule_category":"magic","planted_chapter":2}`))
		assert.ErrorIs(t, err, ErrInvalidItem)
	})

	t.Run("rejects unknown item type", func(t *testing.T) {
		_, err := UnmarshalDetails(ItemType("rumor"), []byte(`{}`))
		assert.ErrorIs(t, err, ErrUnknownItemType)
	})
}

func TestMarshalDetailsRoundTrip(t *testing.T) {
	original := WorldRuleDetails{RuleCategory: "magic", IsHardRule: true, Exceptions: []string{"cold iron"}}

	data, err := MarshalDetails(original)
	require.NoError(t, err)

	decoded, err := UnmarshalDetails(ItemTypeWorldRule, data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	data, err = MarshalDetails(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestEditableDetailKeys(t *testing.T) {
	// Every member of the closed type set has a fixed, non-empty key set.
	for _, itemType := range AllItemTypes() {
		keys := EditableDetailKeys(itemType)
		assert.NotEmpty(t, keys, "type %s", itemType)
	}
	assert.Empty(t, EditableDetailKeys(ItemType("rumor")))
}
