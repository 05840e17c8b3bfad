package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/lachlan2k/school-portal/internal/accesscontrol"
	"github.com/lachlan2k/school-portal/internal/api"
	"github.com/lachlan2k/school-portal/internal/metrics"
	"github.com/lachlan2k/school-portal/internal/session"
)

const (
	unreachableMessage = "Unable to reach the server, please try again"
	rejectedMessage    = "Login failed"
)

// Result is what a login attempt reports back to the page
type Result struct {
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
	Fields   FieldErrors `json:"fields,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
}

type Authenticator struct {
	API        *api.Client
	Sessions   session.SessionHandler
	Router     *accesscontrol.Router
	LoginRoute string
	Metrics    *metrics.Metrics
	Logger     echo.Logger
}

var defaultLogger = log.New("auth")

func (a *Authenticator) logger() echo.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return defaultLogger
}

func (a *Authenticator) fail(outcome, msg string) Result {
	a.Metrics.Login(outcome)
	return Result{Success: false, Error: msg}
}

// Login exchanges credentials for a token. Only a successful exchange touches the jar,
// so a failed attempt leaves any existing session alone
func (a *Authenticator) Login(ctx context.Context, jar session.CookieJar, email, password string) Result {
	creds := Credentials{Email: strings.TrimSpace(email), Password: password}

	err := creds.Validate()
	if err != nil {
		a.Metrics.Login("invalid")
		if fields, ok := err.(FieldErrors); ok {
			return Result{Success: false, Error: fields.Error(), Fields: fields}
		}
		a.logger().Errorf("Couldn't validate login form: %v", err)
		return Result{Success: false, Error: rejectedMessage}
	}

	env, err := a.API.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		a.logger().Warnf("Login request for %s failed: %v", creds.Email, err)
		return a.fail("error", unreachableMessage)
	}

	if !env.Success || env.Token == "" || isEmptyJSON(env.User) {
		msg := env.Message
		if msg == "" {
			msg = rejectedMessage
		}
		return a.fail("rejected", msg)
	}

	var user session.User
	err = json.Unmarshal(env.User, &user)
	if err != nil {
		a.logger().Warnf("API returned a user for %s that couldn't be decoded: %v", creds.Email, err)
		return a.fail("rejected", rejectedMessage)
	}
	if user == (session.User{}) {
		a.logger().Warnf("API returned an empty user for %s", creds.Email)
		return a.fail("rejected", rejectedMessage)
	}

	err = a.Sessions.Persist(jar, session.Session{Token: env.Token, User: user})
	if err != nil {
		a.logger().Errorf("Couldn't persist session for %s: %v", creds.Email, err)
		return a.fail("error", rejectedMessage)
	}

	a.Metrics.Login("success")

	return Result{
		Success:  true,
		Redirect: a.Router.RedirectBasedOnRole(user.Role),
	}
}

// Logout clears the session no matter what state it was in and returns where to send the user
func (a *Authenticator) Logout(jar session.CookieJar) string {
	a.Sessions.Clear(jar)
	return a.LoginRoute
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
