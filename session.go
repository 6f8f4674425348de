package securecore

import (
	"sync"
	"time"
)

// Country is the geo context attached to requests as X-Country-Id and
// X-Country-Code headers.
type Country struct {
	ID   int
	Code string
}

// Session holds the mutable per-process request context: bearer token,
// locale, country, the unauthorized callback, and the default timeout.
//
// It is an explicit, injectable component rather than package state so tests
// can construct isolated instances. All mutation goes through setters. A
// request reads a snapshot of the session when its headers are assembled;
// mutations land in any request whose headers have not been assembled yet and
// never retroactively affect one already dispatched.
type Session struct {
	mu             sync.RWMutex
	token          string
	locale         string
	country        *Country
	onUnauthorized func()
	timeout        time.Duration
}

// NewSession creates a session seeded from the configuration defaults.
func NewSession(cfg Config) *Session {
	locale := cfg.DefaultLocale
	if locale == "" {
		locale = DefaultLocale
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Session{locale: locale, timeout: timeout}
}

// SetToken installs the bearer token used for the Authorization header.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// ClearToken removes the bearer token without firing the unauthorized
// callback. Used by explicit logout.
func (s *Session) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Token returns the current bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetLocale updates the language tag sent in Accept-Language and
// X-App-Locale headers.
func (s *Session) SetLocale(locale string) {
	if locale == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale
}

// SetCountry updates the geo context headers. Passing nil clears them.
func (s *Session) SetCountry(c *Country) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		s.country = nil
		return
	}
	cp := *c
	s.country = &cp
}

// OnUnauthorized registers the callback fired when a 401 response arrives
// while a token is set. Only one callback is held; registering replaces any
// previous one.
func (s *Session) OnUnauthorized(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnauthorized = fn
}

// SetTimeout changes the default per-request deadline.
func (s *Session) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// expire handles a 401: it clears the token and fires the unauthorized
// callback, but only when a token was actually set. A second 401 after the
// token is gone is a no-op, which keeps an already-logged-out client from
// firing the callback repeatedly.
func (s *Session) expire() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	cb := s.onUnauthorized
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// sessionSnapshot is the immutable view of the session taken at header
// assembly time.
type sessionSnapshot struct {
	token   string
	locale  string
	country *Country
	timeout time.Duration
}

func (s *Session) snapshot() sessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sessionSnapshot{
		token:   s.token,
		locale:  s.locale,
		country: s.country,
		timeout: s.timeout,
	}
}
