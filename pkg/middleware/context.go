package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/pkg/appcontext"
)

const (
	// HeaderRunID carries the ingestion run id across API calls.
	HeaderRunID = "X-Run-Id"
	// HeaderSurvey carries the survey name for ingestion requests.
	HeaderSurvey = "X-Survey"
)

func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			// get request id from header
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			runID := req.Header.Get(HeaderRunID)
			survey := req.Header.Get(HeaderSurvey)

			ctx := req.Context()
			ctx = appcontext.SetRequestID(ctx, requestID)
			ctx = appcontext.SetMethod(ctx, req.Method)
			ctx = appcontext.SetRoute(ctx, req.URL.Path)
			ctx = appcontext.SetRemoteIP(ctx, c.RealIP())
			ctx = appcontext.SetReferer(ctx, req.Referer())
			if runID != "" {
				ctx = appcontext.SetRunID(ctx, runID)
			}
			if survey != "" {
				ctx = appcontext.SetSurvey(ctx, survey)
			}

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
