package catalog

import (
	"encoding/json"
	"fmt"
)

// EditPatch is a partial field update a reviewer applies together with
// approval. Only name, description, and the item type's detail keys are
// editable; every other key is rejected with ErrInvalidEdit before any
// mutation happens.
type EditPatch map[string]any

// editableFields are the top-level keys an edit patch may carry.
var editableFields = map[string]struct{}{
	"name":        {},
	"description": {},
	"details":     {},
}

// ApplyEdit returns a copy of item with the patch applied. The input item is
// not modified. An empty patch is valid and returns the item unchanged.
//
// Validation happens before any field is touched, so a failing patch leaves
// no partial application for the caller to persist.
func ApplyEdit(item PendingItem, patch EditPatch) (PendingItem, error) {
	for key := range patch {
		if _, ok := editableFields[key]; !ok {
			return PendingItem{}, fmt.Errorf("%w: field %q is not editable", ErrInvalidEdit, key)
		}
	}

	edited := item

	if v, ok := patch["name"]; ok {
		name, ok := v.(string)
		if !ok {
			return PendingItem{}, fmt.Errorf("%w: name must be a string", ErrInvalidEdit)
		}
		if name == "" {
			return PendingItem{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidEdit)
		}
		edited.Name = name
	}

	if v, ok := patch["description"]; ok {
		desc, ok := v.(string)
		if !ok {
			return PendingItem{}, fmt.Errorf("%w: description must be a string", ErrInvalidEdit)
		}
		if desc == "" {
			return PendingItem{}, fmt.Errorf("%w: description cannot be empty", ErrInvalidEdit)
		}
		edited.Description = desc
	}

	if v, ok := patch["details"]; ok {
		edits, ok := v.(map[string]any)
		if !ok {
			return PendingItem{}, fmt.Errorf("%w: details must be an object", ErrInvalidEdit)
		}
		merged, err := mergeDetails(item.Type, item.Details, edits)
		if err != nil {
			return PendingItem{}, err
		}
		edited.Details = merged
	}

	return edited, nil
}

// mergeDetails overlays edited detail keys onto the existing variant and
// decodes the result back into the typed union.
func mergeDetails(t ItemType, current Details, edits map[string]any) (Details, error) {
	allowed := EditableDetailKeys(t)
	for key := range edits {
		if _, ok := allowed[key]; !ok {
			return nil, fmt.Errorf("%w: unknown detail key %q for item type %q", ErrInvalidEdit, key, t)
		}
	}

	// Round-trip the current variant through a map so unedited keys survive.
	base := map[string]any{}
	if current != nil {
		raw, err := MarshalDetails(current)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &base); err != nil {
			return nil, fmt.Errorf("decode current details: %w", err)
		}
	}
	for key, value := range edits {
		base[key] = value
	}

	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode merged details: %w", err)
	}
	merged, err := UnmarshalDetails(t, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
	}
	return merged, nil
}
