package catalog

import (
	"encoding/json"
	"fmt"
)

// Details is the type-specific attribute set of a pending item, a tagged
// union keyed by ItemType. Each variant carries a fixed field set; the
// per-type JSON keys double as the editable detail keys for edit-and-approve.
type Details interface {
	// Kind returns the item type this variant belongs to.
	Kind() ItemType
}

// CharacterDetails describes an extracted character.
type CharacterDetails struct {
	Role         string   `json:"role,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	Traits       []string `json:"traits,omitempty"`
	FirstChapter int      `json:"first_chapter,omitempty"`
}

func (CharacterDetails) Kind() ItemType { return ItemTypeCharacter }

// WorldRuleDetails describes an extracted rule of the story world.
type WorldRuleDetails struct {
	RuleCategory string   `json:"rule_category,omitempty"`
	IsHardRule   bool     `json:"is_hard_rule,omitempty"`
	Exceptions   []string `json:"exceptions,omitempty"`
}

func (WorldRuleDetails) Kind() ItemType { return ItemTypeWorldRule }

// ForeshadowingDetails describes a planted foreshadowing seed.
type ForeshadowingDetails struct {
	PlantedChapter int    `json:"planted_chapter,omitempty"`
	PayoffChapter  int    `json:"payoff_chapter,omitempty"`
	Subtlety       string `json:"subtlety,omitempty"`
}

func (ForeshadowingDetails) Kind() ItemType { return ItemTypeForeshadowing }

// PayoffDetails describes the resolution of a planted seed.
type PayoffDetails struct {
	ForeshadowingID string `json:"foreshadowing_id,omitempty"`
	ResolvedChapter int    `json:"resolved_chapter,omitempty"`
	Impact          string `json:"impact,omitempty"`
}

func (PayoffDetails) Kind() ItemType { return ItemTypePayoff }

// FactDetails describes a standalone story fact.
type FactDetails struct {
	Category string `json:"category,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Chapter  int    `json:"chapter,omitempty"`
}

func (FactDetails) Kind() ItemType { return ItemTypeFact }

// detailKeys maps each item type to its editable detail keys (the variant's
// JSON field names). Kept in sync with the struct tags above.
var detailKeys = map[ItemType]map[string]struct{}{
	ItemTypeCharacter: {
		"role": {}, "aliases": {}, "traits": {}, "first_chapter": {},
	},
	ItemTypeWorldRule: {
		"rule_category": {}, "is_hard_rule": {}, "exceptions": {},
	},
	ItemTypeForeshadowing: {
		"planted_chapter": {}, "payoff_chapter": {}, "subtlety": {},
	},
	ItemTypePayoff: {
		"foreshadowing_id": {}, "resolved_chapter": {}, "impact": {},
	},
	ItemTypeFact: {
		"category": {}, "subject": {}, "chapter": {},
	},
}

// EditableDetailKeys returns the detail keys a reviewer may edit for the
// given item type.
func EditableDetailKeys(t ItemType) map[string]struct{} {
	return detailKeys[t]
}

// UnmarshalDetails decodes a JSON details payload into the variant for the
// given item type. Unknown keys are rejected so producer typos surface at
// insert time instead of silently dropping data.
func UnmarshalDetails(t ItemType, data []byte) (Details, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	// Reject keys outside the variant's fixed field set before decoding.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	allowed, ok := detailKeys[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, t)
	}
	for key := range raw {
		if _, ok := allowed[key]; !ok {
			return nil, fmt.Errorf("%w: unknown detail key %q for item type %q",
				ErrInvalidItem, key, t)
		}
	}

	var (
		d   Details
		err error
	)
	switch t {
	case ItemTypeCharacter:
		var v CharacterDetails
		err = json.Unmarshal(data, &v)
		d = v
	case ItemTypeWorldRule:
		var v WorldRuleDetails
		err = json.Unmarshal(data, &v)
		d = v
	case ItemTypeForeshadowing:
		var v ForeshadowingDetails
		err = json.Unmarshal(data, &v)
		d = v
	case ItemTypePayoff:
		var v PayoffDetails
		err = json.Unmarshal(data, &v)
		d = v
	case ItemTypeFact:
		var v FactDetails
		err = json.Unmarshal(data, &v)
		d = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s details: %w", t, err)
	}
	return d, nil
}

// MarshalDetails encodes a details variant for storage. A nil variant
// round-trips as nil.
func MarshalDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode %s details: %w", d.Kind(), err)
	}
	return data, nil
}

// UnmarshalJSON decodes a PendingItem, resolving the Details union from the
// item_type tag.
func (p *PendingItem) UnmarshalJSON(data []byte) error {
	type alias PendingItem
	aux := struct {
		*alias
		Details json.RawMessage `json:"details,omitempty"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Details) > 0 {
		d, err := UnmarshalDetails(p.Type, aux.Details)
		if err != nil {
			return err
		}
		p.Details = d
	}
	return nil
}
