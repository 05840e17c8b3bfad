package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// CookieStore keeps the bearer token and a JSON copy of the user in two cookies
type CookieStore struct {
	TokenCookie string
	UserCookie  string
	Domain      string
	Secure      bool
	Lifetime    time.Duration

	// When set, a token that parses as a JWT with a passed exp is treated as a dead session.
	// Opaque tokens are never inspected
	CheckExpiry bool

	Now func() time.Time
}

func (s *CookieStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Jar binds the store's cookie attributes to a single request
func (s *CookieStore) Jar(c echo.Context) CookieJar {
	return &echoJar{c: c, domain: s.Domain, secure: s.Secure}
}

func (s *CookieStore) Persist(jar CookieJar, sess Session) error {
	if sess.Token == "" {
		return fmt.Errorf("refusing to persist a session without a token")
	}
	if sess.User == (User{}) {
		return fmt.Errorf("refusing to persist a session without a user")
	}

	userBuff, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("couldn't marshal session user: %v", err)
	}

	expires := s.now().Add(s.Lifetime)

	// net/http drops quotes from cookie values, so the JSON is escaped
	jar.Set(s.TokenCookie, sess.Token, expires)
	jar.Set(s.UserCookie, url.QueryEscape(string(userBuff)), expires)

	return nil
}

func (s *CookieStore) Clear(jar CookieJar) {
	jar.Remove(s.TokenCookie)
	jar.Remove(s.UserCookie)
}

// Restore rebuilds the session from the jar. Anything short of a full, well formed pair
// of cookies wipes both of them and returns ErrInvalidSession
func (s *CookieStore) Restore(jar CookieJar) (*Session, error) {
	token, hasToken := jar.Get(s.TokenCookie)
	rawUser, hasUser := jar.Get(s.UserCookie)

	if !hasToken && !hasUser {
		return nil, ErrInvalidSession
	}

	if !hasToken || !hasUser {
		s.Clear(jar)
		return nil, fmt.Errorf("%w: only one of the session cookies was present", ErrInvalidSession)
	}

	userJSON, err := url.QueryUnescape(rawUser)
	if err != nil {
		s.Clear(jar)
		return nil, fmt.Errorf("%w: user cookie wasn't escaped properly: %v", ErrInvalidSession, err)
	}

	var user User
	err = json.Unmarshal([]byte(userJSON), &user)
	if err != nil {
		s.Clear(jar)
		return nil, fmt.Errorf("%w: user cookie wasn't valid JSON: %v", ErrInvalidSession, err)
	}

	// null and {} decode cleanly but carry no user
	if user == (User{}) {
		s.Clear(jar)
		return nil, fmt.Errorf("%w: user cookie was empty", ErrInvalidSession)
	}

	if s.CheckExpiry && s.tokenExpired(token) {
		s.Clear(jar)
		return nil, fmt.Errorf("%w: token has expired", ErrInvalidSession)
	}

	return &Session{
		Token: token,
		User:  user,
	}, nil
}

func (s *CookieStore) tokenExpired(token string) bool {
	claims := new(jwt.RegisteredClaims)

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return false
	}

	if claims.ExpiresAt == nil {
		return false
	}

	return claims.ExpiresAt.Time.Before(s.now())
}
