package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/bulk"
	"github.com/fablesmith/loregate/internal/catalog"
	"github.com/fablesmith/loregate/internal/ledger"
)

// handleInsert stores a new candidate item from the extraction producer.
func (s *Server) handleInsert(c echo.Context) error {
	seriesID := c.Param("series")

	var req InsertItemRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid insert request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{
			Error: codeInvalidRequest, Message: "invalid request body",
		})
	}

	itemType, err := catalog.ParseItemType(req.ItemType)
	if err != nil {
		return httpError(err)
	}
	details, err := catalog.UnmarshalDetails(itemType, req.Details)
	if err != nil {
		return httpError(err)
	}

	item, err := catalog.NewPendingItem(seriesID, itemType, req.ID, req.Name, req.Description, req.Confidence, req.Source, details)
	if err != nil {
		return httpError(err)
	}
	if err := s.store.Insert(c.Request().Context(), item); err != nil {
		return httpError(err)
	}
	// The insert changed the live pending count; cached stats for the
	// series must not outlive it.
	s.stats.Invalidate(seriesID)
	return c.JSON(http.StatusCreated, item)
}

// handleList serves the review queue and, with status=approved, the context
// assembler's approved-only read path. Items come back oldest first.
func (s *Server) handleList(c echo.Context) error {
	seriesID := c.Param("series")

	var filter ledger.Filter
	if typeParam := c.QueryParam("type"); typeParam != "" {
		itemType, err := catalog.ParseItemType(typeParam)
		if err != nil {
			return httpError(err)
		}
		filter.Type = &itemType
	}

	// The review queue is the default view; other states are opt-in.
	statusParam := c.QueryParam("status")
	if statusParam == "" {
		statusParam = string(catalog.StatusPending)
	}
	status, err := catalog.ParseStatus(statusParam)
	if err != nil {
		return httpError(err)
	}
	filter.Status = &status

	items, err := s.store.List(c.Request().Context(), seriesID, filter)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []catalog.PendingItem{}
	}
	return c.JSON(http.StatusOK, ListItemsResponse{Items: items})
}

// handleGet fetches one item by identity.
func (s *Server) handleGet(c echo.Context) error {
	itemType, err := catalog.ParseItemType(c.Param("type"))
	if err != nil {
		return httpError(err)
	}
	item, err := s.store.Get(c.Request().Context(), c.Param("series"), itemType, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// handleStats serves the per-type pending counts for the dashboard.
func (s *Server) handleStats(c echo.Context) error {
	st, err := s.stats.Stats(c.Request().Context(), c.Param("series"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleApprove(c echo.Context) error {
	itemType, err := catalog.ParseItemType(c.Param("type"))
	if err != nil {
		return httpError(err)
	}
	item, err := s.gateway.Approve(c.Request().Context(), c.Param("series"), itemType, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) handleReject(c echo.Context) error {
	itemType, err := catalog.ParseItemType(c.Param("type"))
	if err != nil {
		return httpError(err)
	}
	item, err := s.gateway.Reject(c.Request().Context(), c.Param("series"), itemType, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) handleEditApprove(c echo.Context) error {
	itemType, err := catalog.ParseItemType(c.Param("type"))
	if err != nil {
		return httpError(err)
	}

	var patch EditApproveRequest
	if err := c.Bind(&patch); err != nil {
		s.logger.Warn("invalid edit-approve request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{
			Error: codeInvalidRequest, Message: "invalid request body",
		})
	}

	item, err := s.gateway.EditAndApprove(c.Request().Context(), c.Param("series"), itemType, c.Param("id"), patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// handleBulk applies one transition to every item of a type. Partial failure
// is a normal outcome: the response is 200 with per-item failures listed.
func (s *Server) handleBulk(c echo.Context) error {
	action, err := bulk.ParseAction(c.Param("action"))
	if err != nil {
		return httpError(err)
	}
	itemType, err := catalog.ParseItemType(c.QueryParam("type"))
	if err != nil {
		return httpError(err)
	}

	result, err := s.bulk.Apply(c.Request().Context(), c.Param("series"), itemType, action)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}
