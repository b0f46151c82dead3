// Package pending exposes the ambiguous duplicate review queue.
package pending

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/models"
)

// Register registers pending record routes
func Register(g *echo.Group) {
	g.GET("", ListPending)
	g.GET("/:id", GetPending)
	g.POST("/:id/approve", ApprovePending)
	g.POST("/:id/reject", RejectPending)
}

// ListPending lists parked records, open ones by default
func ListPending(c echo.Context) error {
	ctx := c.Request().Context()

	status := c.QueryParam("status")
	if status == "" {
		status = models.PendingStatusOpen
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	ctx, store, err := ectoinject.GetContext[pendingrecord.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	records, total, err := store.List(ctx, status, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"records":   records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetPending gets one parked record
func GetPending(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[pendingrecord.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := store.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if record == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "pending record not found")
	}

	return c.JSON(http.StatusOK, record)
}

// ApprovePending folds the parked record into its object
func ApprovePending(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	obj, err := engine.ApprovePending(ctx, c.Param("id"))
	if err != nil {
		if err == models.ErrNotFound {
			return httperror.NewHTTPError(http.StatusNotFound, "no open pending record with that id")
		}
		return err
	}

	return c.JSON(http.StatusOK, obj)
}

// RejectPending discards the parked record
func RejectPending(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := engine.RejectPending(ctx, c.Param("id")); err != nil {
		if err == models.ErrNotFound {
			return httperror.NewHTTPError(http.StatusNotFound, "no open pending record with that id")
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "rejected"})
}
