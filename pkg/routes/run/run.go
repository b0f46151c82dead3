// Package run exposes ingestion run history.
package run

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/internal/repositories/ingestrun"
)

// Register registers ingest run routes
func Register(g *echo.Group) {
	g.GET("", ListRuns)
	g.GET("/:id", GetRun)
}

// ListRuns lists ingestion runs, newest first
func ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	ctx, store, err := ectoinject.GetContext[ingestrun.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	runs, total, err := store.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"runs":      runs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetRun gets one ingestion run with its summary
func GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[ingestrun.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := store.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if run == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "run not found")
	}

	return c.JSON(http.StatusOK, run)
}
