package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fablesmith/loregate/internal/bulk"
	"github.com/fablesmith/loregate/internal/catalog"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// InsertItemRequest is the producer's request body for POST .../items.
type InsertItemRequest struct {
	ID          string          `json:"id,omitempty"`
	ItemType    string          `json:"item_type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Confidence  *float64        `json:"confidence,omitempty"`
	Source      string          `json:"source,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// ListItemsResponse is the response body for GET .../items.
type ListItemsResponse struct {
	Items []catalog.PendingItem `json:"items"`
}

// EditApproveRequest is the reviewer's request body for edit-and-approve:
// the edit patch applied atomically with approval.
type EditApproveRequest = catalog.EditPatch

// ErrorResponse is the body of every non-2xx response. Code is stable for
// clients; Message carries detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Stable error codes surfaced to clients.
const (
	codeNotFound         = "not_found"
	codeAlreadyFinalized = "already_finalized"
	codeInvalidEdit      = "invalid_edit"
	codeDuplicateID      = "duplicate_id"
	codeInvalidRequest   = "invalid_request"
	codeInternal         = "internal_error"
)

// httpError maps the domain error taxonomy onto HTTP status codes. Every
// refused transition carries its true cause so a reviewer racing another
// reviewer sees the real item state, never a silent no-op.
func httpError(err error) *echo.HTTPError {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, catalog.ErrAlreadyFinalized):
		status, code = http.StatusConflict, codeAlreadyFinalized
	case errors.Is(err, catalog.ErrDuplicateID):
		status, code = http.StatusConflict, codeDuplicateID
	case errors.Is(err, catalog.ErrInvalidEdit):
		status, code = http.StatusBadRequest, codeInvalidEdit
	case errors.Is(err, catalog.ErrInvalidItem),
		errors.Is(err, catalog.ErrUnknownItemType),
		errors.Is(err, catalog.ErrUnknownStatus),
		errors.Is(err, bulk.ErrUnknownAction):
		status, code = http.StatusBadRequest, codeInvalidRequest
	default:
		status, code = http.StatusInternalServerError, codeInternal
	}
	return echo.NewHTTPError(status, ErrorResponse{Error: code, Message: err.Error()})
}
