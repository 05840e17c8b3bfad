package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieJar is the storage port the session lives in
type CookieJar interface {
	Get(name string) (string, bool)
	Set(name, value string, expires time.Time)
	Remove(name string)
}

type echoJar struct {
	c      echo.Context
	domain string
	secure bool
}

func (j *echoJar) Get(name string) (string, bool) {
	cookie, err := j.c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (j *echoJar) Set(name, value string, expires time.Time) {
	j.c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   j.domain,
		Expires:  expires,
		Secure:   j.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (j *echoJar) Remove(name string) {
	j.c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   j.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   j.secure,
		HttpOnly: true,
	})
}

type memoryCookie struct {
	value   string
	expires time.Time
}

// MemoryJar keeps cookies in a map. Used by tests and anything that isn't serving a browser
type MemoryJar struct {
	mu      sync.Mutex
	cookies map[string]memoryCookie
}

func NewMemoryJar() *MemoryJar {
	return &MemoryJar{cookies: make(map[string]memoryCookie)}
}

func (j *MemoryJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookie, ok := j.cookies[name]
	if !ok || cookie.value == "" {
		return "", false
	}
	return cookie.value, true
}

func (j *MemoryJar) Set(name, value string, expires time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cookies[name] = memoryCookie{value: value, expires: expires}
}

func (j *MemoryJar) Remove(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	delete(j.cookies, name)
}

func (j *MemoryJar) Expires(name string) (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookie, ok := j.cookies[name]
	return cookie.expires, ok
}

func (j *MemoryJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return len(j.cookies)
}
