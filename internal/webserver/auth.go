package webserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lachlan2k/school-portal/internal/accesscontrol"
	"github.com/lachlan2k/school-portal/internal/session"
)

const sessionContextKey = "session"

// loadSession restores the session once per request. A corrupt session has already had
// its cookies wiped by the time this returns nil
func (w *Webserver) loadSession(c echo.Context) *session.Session {
	if sess, ok := c.Get(sessionContextKey).(*session.Session); ok {
		return sess
	}

	sess, err := w.sessions.Restore(w.sessions.Jar(c))
	if err != nil {
		switch {
		case err == session.ErrInvalidSession:
			// no session at all
		case errors.Is(err, session.ErrInvalidSession):
			c.Logger().Debugf("Discarded session: %v", err)
		default:
			c.Logger().Errorf("unexpected error occured restoring session: %v", err)
		}
		return nil
	}

	c.Set(sessionContextKey, sess)
	return sess
}

func currentSession(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionContextKey).(*session.Session)
	return sess
}

// requirePage guards a dashboard page. Anonymous users go to the login page, users whose
// role isn't allowed go to their own dashboard
func (w *Webserver) requirePage(allowed ...accesscontrol.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := w.loadSession(c)
			if !sess.IsAuthenticated() {
				w.metrics.Guard("redirect_login")
				return c.Redirect(http.StatusFound, w.conf.Routes.Login)
			}

			err := accesscontrol.CheckAccess(sess.User.Email, sess.Role(), allowed)
			if err != nil {
				c.Logger().Debugf("%v", err)

				dest := w.router.Destination(sess.Role())
				if dest == c.Request().URL.Path {
					// The role's own dashboard doesn't admit it, don't loop
					w.metrics.Guard("forbidden")
					return echo.NewHTTPError(http.StatusForbidden, "permission denied")
				}

				w.metrics.Guard("redirect_role")
				return c.Redirect(http.StatusFound, dest)
			}

			w.metrics.Guard("allow")
			return next(c)
		}
	}
}

// requireAPISession guards JSON routes, answering 401 instead of redirecting
func (w *Webserver) requireAPISession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := w.loadSession(c)
		if !sess.IsAuthenticated() {
			w.metrics.Guard("unauthorized")
			return errUnauthorized
		}

		w.metrics.Guard("allow")
		return next(c)
	}
}
