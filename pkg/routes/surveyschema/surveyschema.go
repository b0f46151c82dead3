// Package surveyschema manages survey schema descriptors over HTTP.
package surveyschema

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/schema"
)

// Register registers survey schema routes
func Register(g *echo.Group) {
	g.GET("", ListSchemas)
	g.GET("/:survey", GetSchema)
	g.PUT("/:survey", UpsertSchema)
}

// ListSchemas lists all registered descriptors
func ListSchemas(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, service, err := ectoinject.GetContext[*schema.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	schemas, err := service.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, schemas)
}

// GetSchema gets the descriptor for one survey
func GetSchema(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, service, err := ectoinject.GetContext[*schema.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	descriptor, err := service.GetBySurvey(ctx, c.Param("survey"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no schema registered for survey")
	}

	return c.JSON(http.StatusOK, descriptor)
}

// UpsertSchema validates and registers a descriptor
func UpsertSchema(c echo.Context) error {
	ctx := c.Request().Context()

	var descriptor models.SurveySchema
	if err := c.Bind(&descriptor); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid schema descriptor body")
	}
	descriptor.Survey = c.Param("survey")

	ctx, service, err := ectoinject.GetContext[*schema.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := service.Register(ctx, &descriptor); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, descriptor)
}
