package webserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	csrfCookieName = "_csrf"
	csrfFormField  = "_csrf"
	csrfContextKey = "csrf"
)

// hasJSONBody is true for requests a browser can only send cross site after a CORS preflight
func hasJSONBody(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

// csrfMiddleware guards the form routes with a double submit token. The cookie is readable by
// scripts so pages can post it back as X-CSRF-Token
func (w *Webserver) csrfMiddleware() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        hasJSONBody,
		TokenLookup:    "form:" + csrfFormField + ",header:" + echo.HeaderXCSRFToken,
		ContextKey:     csrfContextKey,
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieDomain:   w.conf.Session.Cookie.Domain,
		CookieMaxAge:   w.conf.Session.Lifetime,
		CookieSecure:   w.conf.Session.Cookie.Secure,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get(csrfContextKey).(string)
	return token
}
