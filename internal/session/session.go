package session

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/lachlan2k/school-portal/internal/accesscontrol"
)

type Token = string

// UserID accepts both string and numeric ids from the API
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = UserID(n.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = UserID(s)
	return nil
}

type User struct {
	ID          UserID `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// Session is only ever built with both a token and a user
type Session struct {
	Token Token
	User  User
}

func (s *Session) GetToken() Token {
	if s == nil {
		return ""
	}
	return s.Token
}

func (s *Session) IsAuthenticated() bool {
	return s.GetToken() != ""
}

func (s *Session) Role() accesscontrol.Role {
	if s == nil {
		return accesscontrol.RoleUnknown
	}
	return accesscontrol.ParseRole(s.User.Role)
}

type SessionHandler interface {
	Persist(CookieJar, Session) error
	Clear(CookieJar)
	Restore(CookieJar) (*Session, error)
}

var ErrInvalidSession = errors.New("session was missing or invalid")
