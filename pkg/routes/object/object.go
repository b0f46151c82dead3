// Package object exposes the merged object registry over HTTP.
package object

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/query"
	"github.com/Ramsey-B/aster/pkg/sky"
)

// Register registers object routes
func Register(g *echo.Group) {
	g.GET("", ListObjects)
	g.GET("/:id", GetObject)
	g.GET("/source/:survey/:source_id", GetObjectBySource)
}

// ListObjects lists objects, or runs a cone search when ra/dec/radius
// query parameters are present
func ListObjects(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, service, err := ectoinject.GetContext[*query.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if c.QueryParam("ra") != "" || c.QueryParam("dec") != "" {
		ra, err := strconv.ParseFloat(c.QueryParam("ra"), 64)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "ra must be a number")
		}
		dec, err := strconv.ParseFloat(c.QueryParam("dec"), 64)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "dec must be a number")
		}
		if !sky.ValidDec(dec) {
			return httperror.NewHTTPError(http.StatusBadRequest, "dec must be within [-90, 90]")
		}

		radius := 1.0
		if raw := c.QueryParam("radius"); raw != "" {
			radius, err = strconv.ParseFloat(raw, 64)
			if err != nil || radius <= 0 {
				return httperror.NewHTTPError(http.StatusBadRequest, "radius must be a positive number of arcseconds")
			}
		}

		results, err := service.FindWithin(ctx, sky.NormalizeRA(ra), dec, radius)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{
			"results": results,
			"count":   len(results),
		})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	objects, total, err := service.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"objects":   objects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetObject gets one object with its merged attribute view
func GetObject(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, service, err := ectoinject.GetContext[*query.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	view, err := service.GetByID(ctx, c.Param("id"))
	if err != nil {
		if err == models.ErrNotFound {
			return httperror.NewHTTPError(http.StatusNotFound, "object not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, view)
}

// GetObjectBySource resolves a survey source to the object it was
// folded into
func GetObjectBySource(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, service, err := ectoinject.GetContext[*query.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	view, err := service.GetBySource(ctx, c.Param("survey"), c.Param("source_id"))
	if err != nil {
		if err == models.ErrNotFound {
			return httperror.NewHTTPError(http.StatusNotFound, "source not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, view)
}
