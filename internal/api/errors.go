package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"assignment-status/internal/reconcile"
)

// newAppHTTPErrorHandler maps engine and validation errors to JSON responses.
// Fatal and cancelled passes are flagged retryable; the dashboard offers a retry for those.
func newAppHTTPErrorHandler(log *zap.Logger, rv *requestValidator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}
		retryable := false

		var (
			httpErr  *echo.HTTPError
			valErrs  validator.ValidationErrors
			fatalErr *reconcile.CourseListError
		)
		switch {
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &valErrs):
			code = http.StatusBadRequest
			message = rv.fieldErrors(valErrs)
		case errors.Is(err, reconcile.ErrMissingStudent):
			code = http.StatusBadRequest
			message = err.Error()
		case errors.As(err, &fatalErr):
			code = http.StatusBadGateway
			message = "course list unavailable: " + fatalErr.Err.Error()
			retryable = true
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			code = http.StatusServiceUnavailable
			message = "reconciliation interrupted"
			retryable = true
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)
			log.Error("request failed",
				zap.String("path", ctx.Path()),
				zap.String("request_id", ctx.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			body := echo.Map{"error": m}
			if retryable {
				body["retryable"] = true
			}
			message = body
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				log.Warn("write error response", zap.Error(err))
			}
		}
	}
}
