// Package catalog defines the typed representation of candidate story
// elements awaiting human review and their verification lifecycle.
//
// Every automatically extracted element (character, world rule, foreshadowing
// seed, payoff, fact) enters the system as a PendingItem. Items are quarantined
// until a reviewer finalizes them; only approved items are ever served to the
// retrieval side of the application.
package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemType identifies which kind of story element a candidate item is.
// The set is closed: extraction producers cannot introduce new kinds at
// runtime.
type ItemType string

const (
	ItemTypeCharacter     ItemType = "character"
	ItemTypeWorldRule     ItemType = "world_rule"
	ItemTypeForeshadowing ItemType = "foreshadowing"
	ItemTypePayoff        ItemType = "payoff"
	ItemTypeFact          ItemType = "fact"
)

// AllItemTypes returns the closed set of item types in stable order.
func AllItemTypes() []ItemType {
	return []ItemType{
		ItemTypeCharacter,
		ItemTypeWorldRule,
		ItemTypeForeshadowing,
		ItemTypePayoff,
		ItemTypeFact,
	}
}

// ParseItemType validates a wire-format item type string.
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(s)
	switch t {
	case ItemTypeCharacter, ItemTypeWorldRule, ItemTypeForeshadowing, ItemTypePayoff, ItemTypeFact:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownItemType, s)
}

// Status is the verification state of a pending item.
//
// The state machine is pending -> approved | rejected. Both outcomes are
// terminal; no item ever re-enters pending.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a wire-format status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PendingItem is one candidate story element held in the verification
// quarantine. Identity is (series_id, item_type, id).
type PendingItem struct {
	// ID is the opaque item identifier, unique within (item_type, id) for a
	// series. Generated when the producer does not supply one.
	ID string `json:"id"`

	// SeriesID scopes the item to one story/work.
	SeriesID string `json:"series_id"`

	// Type is the kind of story element. Immutable after insert.
	Type ItemType `json:"item_type"`

	// Name is a short human-readable label. Editable until finalized.
	Name string `json:"name"`

	// Description is the extracted free-text content. Editable until finalized.
	Description string `json:"description"`

	// Confidence is the extractor's reliability score in [0,1].
	// Nil means the extraction was not scored. Immutable.
	Confidence *float64 `json:"confidence,omitempty"`

	// Source records provenance, e.g. the originating chapter. Immutable.
	Source string `json:"source,omitempty"`

	// Details carries the type-specific attributes. The concrete variant
	// always matches Type.
	Details Details `json:"details,omitempty"`

	// Status is the verification state. Mutated only through the ledger's
	// transition path.
	Status Status `json:"status"`

	// CreatedAt is when the producer inserted the item. Immutable.
	CreatedAt time.Time `json:"created_at"`

	// FinalizedAt is set on the terminal transition, for audit.
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// NewPendingItem builds a quarantined item for producer insertion.
// An empty id is replaced with a generated UUID. Details may be nil; when
// present its variant must match itemType.
func NewPendingItem(seriesID string, itemType ItemType, id, name, description string, confidence *float64, source string, details Details) (PendingItem, error) {
	if id == "" {
		id = uuid.New().String()
	}
	item := PendingItem{
		ID:          id,
		SeriesID:    seriesID,
		Type:        itemType,
		Name:        name,
		Description: description,
		Confidence:  confidence,
		Source:      source,
		Details:     details,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return PendingItem{}, err
	}
	return item, nil
}

// Validate checks the structural invariants of an item.
func (p *PendingItem) Validate() error {
	if p.SeriesID == "" {
		return fmt.Errorf("%w: series id cannot be empty", ErrInvalidItem)
	}
	if _, err := ParseItemType(string(p.Type)); err != nil {
		return err
	}
	if p.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidItem)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidItem)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: description cannot be empty", ErrInvalidItem)
	}
	if p.Confidence != nil && (*p.Confidence < 0.0 || *p.Confidence > 1.0) {
		return fmt.Errorf("%w: confidence must be between 0.0 and 1.0", ErrInvalidItem)
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return err
	}
	if p.Details != nil && p.Details.Kind() != p.Type {
		return fmt.Errorf("%w: details variant %q does not match item type %q",
			ErrInvalidItem, p.Details.Kind(), p.Type)
	}
	return nil
}
