package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lachlan2k/school-portal/internal/accesscontrol"
	"github.com/lachlan2k/school-portal/internal/api"
	"github.com/lachlan2k/school-portal/internal/metrics"
	"github.com/lachlan2k/school-portal/internal/session"
)

type loginTest struct {
	name         string
	email        string
	password     string
	status       int
	body         any
	wantSuccess  bool
	wantError    string
	wantRedirect string
	wantCalls    int
	wantOutcome  string
}

func setup(t *testing.T, status int, body any) (*Authenticator, *session.CookieStore, *int) {
	t.Helper()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	store := &session.CookieStore{
		TokenCookie: "token",
		UserCookie:  "user",
		Lifetime:    30 * 24 * time.Hour,
	}

	logger := log.New("test")
	logger.SetLevel(log.OFF)

	router, err := accesscontrol.NewRouter(nil)
	require.NoError(t, err)

	return &Authenticator{
		API:        api.New(srv.URL, api.WithHTTPClient(srv.Client())),
		Sessions:   store,
		Router:     router,
		LoginRoute: "/login",
		Metrics:    metrics.New(),
		Logger:     logger,
	}, store, &calls
}

func userBody(role string) map[string]any {
	return map[string]any{
		"id":        "u1",
		"firstName": "Ada",
		"lastName":  "Obi",
		"email":     "ada@school.test",
		"role":      role,
	}
}

func TestLogin(t *testing.T) {
	tests := []loginTest{
		{
			name: "success redirects by role", email: "ada@school.test", password: "secret",
			status: http.StatusOK,
			body:   map[string]any{"success": true, "token": "tok-1", "user": userBody("school_admin")},
			wantSuccess: true, wantRedirect: "/admin/dashboard", wantCalls: 1, wantOutcome: "success",
		},
		{
			name: "unknown role lands on the generic dashboard", email: "ada@school.test", password: "secret",
			status: http.StatusOK,
			body:   map[string]any{"success": true, "token": "tok-1", "user": userBody("librarian")},
			wantSuccess: true, wantRedirect: "/dashboard", wantCalls: 1, wantOutcome: "success",
		},
		{
			name: "api rejection surfaces server message", email: "ada@school.test", password: "wrong",
			status: http.StatusUnauthorized,
			body:   map[string]any{"success": false, "message": "Invalid email or password"},
			wantError: "Invalid email or password", wantCalls: 1, wantOutcome: "rejected",
		},
		{
			name: "success without token is rejected", email: "ada@school.test", password: "secret",
			status: http.StatusOK,
			body:   map[string]any{"success": true, "user": userBody("teacher")},
			wantError: rejectedMessage, wantCalls: 1, wantOutcome: "rejected",
		},
		{
			name: "success without user is rejected", email: "ada@school.test", password: "secret",
			status: http.StatusOK,
			body:   map[string]any{"success": true, "token": "tok-1", "user": nil},
			wantError: rejectedMessage, wantCalls: 1, wantOutcome: "rejected",
		},
		{
			name: "empty user object is rejected", email: "ada@school.test", password: "secret",
			status: http.StatusOK,
			body:   map[string]any{"success": true, "token": "tok-1", "user": map[string]any{}},
			wantError: rejectedMessage, wantCalls: 1, wantOutcome: "rejected",
		},
		{
			name: "malformed user is rejected", email: "ada@school.test", password: "secret",
			status: http.StatusOK,
			body:   map[string]any{"success": true, "token": "tok-1", "user": "ada"},
			wantError: rejectedMessage, wantCalls: 1, wantOutcome: "rejected",
		},
		{
			name: "undecodable response counts as a transport failure", email: "ada@school.test", password: "secret",
			status: http.StatusBadGateway,
			body:   "gateway down",
			wantError: unreachableMessage, wantCalls: 1, wantOutcome: "error",
		},
		{
			name: "invalid email never reaches the api", email: "not-an-email", password: "secret",
			wantError: "email must be a valid email address", wantCalls: 0, wantOutcome: "invalid",
		},
		{
			name: "blank password never reaches the api", email: "ada@school.test", password: "   ",
			wantError: "this field cannot be blank", wantCalls: 0, wantOutcome: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, store, calls := setup(t, tt.status, tt.body)
			jar := session.NewMemoryJar()

			res := a.Login(context.Background(), jar, tt.email, tt.password)

			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantRedirect, res.Redirect)
			if tt.wantError != "" {
				assert.Contains(t, res.Error, tt.wantError)
			}
			assert.Equal(t, tt.wantCalls, *calls)
			assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Logins().WithLabelValues(tt.wantOutcome)))

			sess, err := store.Restore(jar)
			if tt.wantSuccess {
				require.NoError(t, err)
				assert.Equal(t, "tok-1", sess.GetToken())
				assert.Equal(t, "ada@school.test", sess.User.Email)
			} else {
				assert.ErrorIs(t, err, session.ErrInvalidSession)
				assert.Equal(t, 0, jar.Len())
			}
		})
	}
}

func TestFailedLoginKeepsPriorSession(t *testing.T) {
	a, store, _ := setup(t, http.StatusUnauthorized, map[string]any{"success": false, "message": "Account locked"})
	jar := session.NewMemoryJar()

	prior := session.Session{Token: "old-token", User: session.User{ID: "u0", Email: "old@school.test", Role: "student"}}
	require.NoError(t, store.Persist(jar, prior))

	res := a.Login(context.Background(), jar, "ada@school.test", "secret")
	assert.False(t, res.Success)
	assert.Equal(t, "Account locked", res.Error)

	sess, err := store.Restore(jar)
	require.NoError(t, err)
	assert.Equal(t, prior, *sess)
}

func TestLoginUnreachableAPI(t *testing.T) {
	a, store, _ := setup(t, http.StatusOK, nil)
	a.API = api.New("http://127.0.0.1:1")
	jar := session.NewMemoryJar()

	res := a.Login(context.Background(), jar, "ada@school.test", "secret")
	assert.False(t, res.Success)
	assert.Equal(t, unreachableMessage, res.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Logins().WithLabelValues("error")))

	_, err := store.Restore(jar)
	assert.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestLoginPersistsThirtyDayCookies(t *testing.T) {
	a, _, _ := setup(t, http.StatusOK, map[string]any{"success": true, "token": "tok-1", "user": userBody("bursar")})
	jar := session.NewMemoryJar()

	before := time.Now()
	res := a.Login(context.Background(), jar, "ada@school.test", "secret")
	require.True(t, res.Success)
	assert.Equal(t, "/bursar/dashboard", res.Redirect)

	for _, name := range []string{"token", "user"} {
		expires, ok := jar.Expires(name)
		require.True(t, ok)
		assert.WithinDuration(t, before.Add(30*24*time.Hour), expires, time.Minute)
	}

	raw, _ := jar.Get("user")
	decoded, err := url.QueryUnescape(raw)
	require.NoError(t, err)
	assert.Contains(t, decoded, `"role":"bursar"`)
}

func TestLogoutAlwaysClears(t *testing.T) {
	a, store, _ := setup(t, http.StatusOK, nil)

	empty := session.NewMemoryJar()
	assert.Equal(t, "/login", a.Logout(empty))
	assert.Equal(t, 0, empty.Len())

	full := session.NewMemoryJar()
	require.NoError(t, store.Persist(full, session.Session{Token: "tok", User: session.User{Role: "parent"}}))
	assert.Equal(t, "/login", a.Logout(full))
	assert.Equal(t, 0, full.Len())
}

func TestCredentialsValidate(t *testing.T) {
	err := Credentials{}.Validate()
	require.Error(t, err)

	fields, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "email is a required field", fields["email"])
	assert.Equal(t, "this field cannot be blank", fields["password"])

	assert.NoError(t, Credentials{Email: "a@school.test", Password: "x"}.Validate())
}
