package webserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lachlan2k/school-portal/internal/auth"
	"github.com/lachlan2k/school-portal/internal/session"
)

type AuthInfoRes struct {
	User session.User `json:"user"`
}

func wantsJSON(c echo.Context) bool {
	req := c.Request()
	return strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (w *Webserver) loginPageRouteHandler(c echo.Context) error {
	sess := w.loadSession(c)
	if sess.IsAuthenticated() {
		return c.Redirect(http.StatusFound, w.router.Destination(sess.Role()))
	}

	return c.Render(http.StatusOK, "login", loginPage{
		Action: w.conf.Routes.Login,
		CSRF:   csrfToken(c),
	})
}

func (w *Webserver) loginRouteHandler(c echo.Context) error {
	var creds auth.Credentials
	err := c.Bind(&creds)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid login request")
	}

	res := w.auth.Login(c.Request().Context(), w.sessions.Jar(c), creds.Email, creds.Password)

	if wantsJSON(c) {
		status := http.StatusOK
		switch {
		case res.Success:
		case len(res.Fields) > 0:
			status = http.StatusBadRequest
		default:
			status = http.StatusUnauthorized
		}
		return c.JSON(status, res)
	}

	if res.Success {
		return c.Redirect(http.StatusSeeOther, res.Redirect)
	}

	status := http.StatusUnauthorized
	if len(res.Fields) > 0 {
		status = http.StatusBadRequest
	}

	return c.Render(status, "login", loginPage{
		Action: w.conf.Routes.Login,
		CSRF:   csrfToken(c),
		Email:  creds.Email,
		Error:  res.Error,
		Fields: res.Fields,
	})
}

func (w *Webserver) logoutRouteHandler(c echo.Context) error {
	dest := w.auth.Logout(w.sessions.Jar(c))
	return c.Redirect(http.StatusSeeOther, dest)
}

func (w *Webserver) authInfoRouteHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, AuthInfoRes{
		User: currentSession(c).User,
	})
}
