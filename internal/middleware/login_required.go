package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireLogin redirects anonymous callers to loginURL with the requested
// path in the "next" query parameter.
func RequireLogin(loginURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) != nil {
				return next(c)
			}
			return c.Redirect(http.StatusFound, LoginRedirectURL(loginURL, c.Request().URL.RequestURI()))
		}
	}
}

// LoginRedirectURL builds "<loginURL>?next=<path>" keeping slashes readable.
func LoginRedirectURL(loginURL, next string) string {
	return loginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
