// Package session owns the browser-facing auth cookies. It is the only
// component that reads or writes them; everything downstream receives the
// restored Session explicitly instead of re-reading cookies ad hoc.
package session

import (
	"net/http"
	"time"

	"bookmart/pkg/domain"
)

// Cookie names mirror the fields the web client persists.
const (
	cookieToken     = "accessToken"
	cookieRole      = "role"
	cookieEmail     = "email"
	cookieFirstName = "firstName"
	cookieLastName  = "lastName"
	cookiePhone     = "phone"
)

// DefaultTTL matches the 7-day cookie expiry of the web client.
const DefaultTTL = 7 * 24 * time.Hour

// Config controls cookie attributes.
type Config struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}

// Store restores, establishes, and clears sessions via cookies.
type Store struct {
	cfg Config
}

// NewStore builds a cookie session store with defaults applied.
func NewStore(cfg Config) *Store {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Store{cfg: cfg}
}

// FromRequest restores the session from request cookies. A missing or
// unreadable token degrades to the anonymous session rather than an error.
// Tokens whose exp claim already passed are treated as absent so a stale
// cookie never reaches the remote API. A token whose role cookie is missing
// or unknown is kept as a corrupt session for the route guard to bounce.
func (s *Store) FromRequest(r *http.Request) domain.Session {
	token := cookieValue(r, cookieToken)
	if token == "" || tokenExpired(token, time.Now()) {
		return domain.Session{}
	}
	sess := domain.Session{
		Token:     token,
		Email:     cookieValue(r, cookieEmail),
		FirstName: cookieValue(r, cookieFirstName),
		LastName:  cookieValue(r, cookieLastName),
		Phone:     cookieValue(r, cookiePhone),
	}
	if role, ok := domain.ParseRole(cookieValue(r, cookieRole)); ok {
		sess.Role = role
	}
	return sess
}

// Establish writes all session cookies with one shared expiry.
func (s *Store) Establish(w http.ResponseWriter, sess domain.Session) {
	expires := time.Now().Add(s.cfg.TTL)
	s.setCookie(w, cookieToken, sess.Token, expires)
	s.setCookie(w, cookieRole, string(sess.Role), expires)
	s.setCookie(w, cookieEmail, sess.Email, expires)
	s.setCookie(w, cookieFirstName, sess.FirstName, expires)
	s.setCookie(w, cookieLastName, sess.LastName, expires)
	s.setCookie(w, cookiePhone, sess.Phone, expires)
}

// Clear expires every session cookie. Safe to call on an already-cleared
// session; it does not navigate.
func (s *Store) Clear(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	for _, name := range []string{cookieToken, cookieRole, cookieEmail, cookieFirstName, cookieLastName, cookiePhone} {
		cookie := s.newCookie(name, "", expired)
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (s *Store) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, s.newCookie(name, value, expires))
}

func (s *Store) newCookie(name, value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.cfg.Path,
		Domain:   s.cfg.Domain,
		Expires:  expires,
		Secure:   s.cfg.Secure,
		SameSite: s.cfg.SameSite,
	}
	// The token never needs to be script-readable; profile fields do.
	if name == cookieToken {
		cookie.HttpOnly = true
	}
	return cookie
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
