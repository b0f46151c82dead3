// Package ingestion accepts record batches over HTTP.
package ingestion

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/pkg/ingest"
)

// Register registers ingestion routes
func Register(g *echo.Group) {
	g.POST("/:survey", IngestBatch)
}

// IngestBatch ingests a JSON array of raw survey rows synchronously and
// returns the run summary
func IngestBatch(c echo.Context) error {
	ctx := c.Request().Context()
	survey := c.Param("survey")

	var rows []map[string]any
	if err := c.Bind(&rows); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "body must be a JSON array of row objects")
	}
	if len(rows) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "no rows to ingest")
	}

	ctx, runner, err := ectoinject.GetContext[*ingest.Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	feed := make(chan map[string]any, len(rows))
	for _, row := range rows {
		feed <- row
	}
	close(feed)

	run, err := runner.Run(ctx, survey, "http", feed)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, run)
}
