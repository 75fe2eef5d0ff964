package handlers

import (
	"errors"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NewHTTPErrorHandler renders the 404 and 500 pages. Server errors are
// logged and, when Sentry is enabled, reported.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
			)
			if hub := sentryecho.GetHubFromContext(c); hub != nil {
				hub.CaptureException(err)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			switch {
			case code == http.StatusNotFound:
				err = c.Render(code, "core/404.html", echo.Map{"path": c.Request().URL.Path})
			case code >= http.StatusInternalServerError:
				err = c.Render(code, "core/500.html", nil)
			default:
				err = c.String(code, message)
			}
		}
		if err != nil {
			log.Error("failed to write error response", zap.Error(err))
		}
	}
}
