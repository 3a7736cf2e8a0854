package core

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/samber/oops"
)

const sessionName = "tt_session"

// Session value keys.
const (
	sessionKeyAuthenticated = "tt_auth_ok"
	sessionKeyLastSeen      = "tt_auth_last_seen" // unix millis
)

// SessionBackend is a sessions.Store that can also drop a record by token.
type SessionBackend interface {
	sessions.Store
	Delete(ctx context.Context, token string) error
}

// SessionManager issues and checks the authenticated session with a sliding idle timeout.
type SessionManager struct {
	store   SessionBackend
	ttl     time.Duration
	now     func() time.Time
	metrics *AuthMetrics
}

func NewSessionManager(store SessionBackend, ttl time.Duration, metrics *AuthMetrics) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{store: store, ttl: ttl, now: time.Now, metrics: metrics}
}

// WithClock replaces the time source; used by tests.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// Issue starts an authenticated session under a fresh token. Any token the
// request already carried is invalidated first.
func (m *SessionManager) Issue(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return oops.Code("SESSION_LOAD_FAILED").Wrap(err)
	}
	if session.ID != "" {
		if err := m.store.Delete(r.Context(), session.ID); err != nil {
			return err
		}
	}
	session.ID = ""
	session.IsNew = true
	session.Values = map[interface{}]interface{}{
		sessionKeyAuthenticated: true,
		sessionKeyLastSeen:      m.now().UnixMilli(),
	}
	applySessionOptions(r, session)
	return session.Save(r, w)
}

// Validate reports whether the request carries a live authenticated session.
// An idle-expired or unknown session is destroyed; a live one is refreshed.
func (m *SessionManager) Validate(w http.ResponseWriter, r *http.Request) (bool, error) {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return false, oops.Code("SESSION_LOAD_FAILED").Wrap(err)
	}

	authed, _ := session.Values[sessionKeyAuthenticated].(bool)
	if !authed {
		if hasSessionCookie(r) {
			return false, m.destroy(w, r, session)
		}
		return false, nil
	}

	now := m.now()
	lastSeen, _ := session.Values[sessionKeyLastSeen].(int64)
	if lastSeen == 0 || now.Sub(time.UnixMilli(lastSeen)) > m.ttl {
		m.metrics.SessionExpired()
		return false, m.destroy(w, r, session)
	}

	if err := m.refresh(w, r, session, now); err != nil {
		if errors.Is(err, errSessionGone) {
			// Logged out while this request was in flight.
			session.ID = ""
			return false, m.destroy(w, r, session)
		}
		return false, err
	}
	return true, nil
}

// Refresh stamps lastSeenAt on the current session without re-checking its age.
// It returns ErrUnauthorized when the request has no stored session.
func (m *SessionManager) Refresh(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return oops.Code("SESSION_LOAD_FAILED").Wrap(err)
	}
	if session.IsNew {
		return ErrUnauthorized
	}
	if err := m.refresh(w, r, session, m.now()); err != nil {
		if errors.Is(err, errSessionGone) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// Destroy clears server-side state and expires the cookie. Safe to call without a session.
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return oops.Code("SESSION_LOAD_FAILED").Wrap(err)
	}
	return m.destroy(w, r, session)
}

func (m *SessionManager) refresh(w http.ResponseWriter, r *http.Request, session *sessions.Session, now time.Time) error {
	session.Values[sessionKeyLastSeen] = now.UnixMilli()
	applySessionOptions(r, session)
	return session.Save(r, w)
}

func (m *SessionManager) destroy(w http.ResponseWriter, r *http.Request, session *sessions.Session) error {
	session.Values = map[interface{}]interface{}{}
	applySessionOptions(r, session)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return err
	}
	session.ID = ""
	return nil
}

// applySessionOptions enforces the fixed cookie policy: no expiry, HTTP-only,
// strict same-site, root path, Secure only over TLS.
func applySessionOptions(r *http.Request, session *sessions.Session) {
	if session.Options == nil {
		session.Options = &sessions.Options{}
	}
	session.Options.Path = "/"
	session.Options.MaxAge = 0
	session.Options.HttpOnly = true
	session.Options.Secure = isTLS(r)
	session.Options.SameSite = http.SameSiteStrictMode
}

func isTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func hasSessionCookie(r *http.Request) bool {
	_, err := r.Cookie(sessionName)
	return err == nil
}
