package catalog

import "errors"

// Error taxonomy for verification operations. Callers branch with errors.Is;
// the HTTP layer maps each to a distinct status code so reviewers always see
// true item state.
var (
	// ErrNotFound is returned when the referenced item does not exist.
	ErrNotFound = errors.New("item not found")

	// ErrAlreadyFinalized is returned when a transition targets an item whose
	// status is already terminal. It is a legitimate outcome to report (a
	// stale review queue or a race with another reviewer), not a fault.
	ErrAlreadyFinalized = errors.New("item already finalized")

	// ErrInvalidEdit is returned when an edit patch touches an immutable or
	// unknown field. No mutation occurs; the item stays pending.
	ErrInvalidEdit = errors.New("invalid edit")

	// ErrDuplicateID is returned when a producer inserts an identity that
	// already exists.
	ErrDuplicateID = errors.New("duplicate item id")

	// ErrInvalidItem is returned when an item fails structural validation.
	ErrInvalidItem = errors.New("invalid item")

	// ErrUnknownItemType is returned for a string outside the closed type set.
	ErrUnknownItemType = errors.New("unknown item type")

	// ErrUnknownStatus is returned for a string outside the closed status set.
	ErrUnknownStatus = errors.New("unknown status")
)
