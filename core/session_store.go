package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// errSessionGone is returned when saving a loaded session whose record was deleted meanwhile.
var errSessionGone = errors.New("session record no longer exists")

// RedisSessionStore implements sessions.Store with values kept server-side in Redis.
// The cookie only carries a signed random token; Redis is keyed by the token's SHA-256.
type RedisSessionStore struct {
	client  redis.Cmdable
	Codecs  []securecookie.Codec
	Options *sessions.Options
	// expiry is the Redis key lifetime, refreshed on every save.
	expiry time.Duration
	serde  securecookie.GobEncoder
}

// NewRedisSessionStore signs cookies with keyPairs (as sessions.NewCookieStore does).
func NewRedisSessionStore(client redis.Cmdable, expiry time.Duration, keyPairs ...[]byte) *RedisSessionStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			// Browser-session cookie; validity is enforced server-side.
			sc.MaxAge(0)
		}
	}
	return &RedisSessionStore{
		client: client,
		Codecs: codecs,
		Options: &sessions.Options{
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		},
		expiry: expiry,
	}
}

// Get returns the session cached in the request registry, loading it on first use.
func (s *RedisSessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. Unknown, tampered or
// expired tokens yield a fresh session with IsNew set.
func (s *RedisSessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var token string
	if err := securecookie.DecodeMulti(name, c.Value, &token, s.Codecs...); err != nil {
		return session, nil
	}
	found, err := s.load(r.Context(), token, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = token
		session.IsNew = false
	}
	return session, nil
}

// Save persists the session and writes the cookie. MaxAge < 0 deletes both.
// Saving a loaded session whose record is gone returns errSessionGone and sets no cookie.
func (s *RedisSessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.Delete(ctx, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		token, err := NewSessionToken()
		if err != nil {
			return oops.Code("SESSION_TOKEN_GENERATE_FAILED").Wrap(err)
		}
		session.ID = token
	}
	if err := s.store(ctx, session); err != nil {
		return err
	}
	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Delete removes the server-side record for a session token.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionRedisKey(token)).Err(); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

func (s *RedisSessionStore) load(ctx context.Context, token string, session *sessions.Session) (bool, error) {
	data, err := s.client.Get(ctx, sessionRedisKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("SESSION_LOAD_FAILED").Wrap(err)
	}
	if err := s.serde.Deserialize(data, &session.Values); err != nil {
		// Undecodable record: drop it and treat the caller as anonymous.
		_ = s.client.Del(ctx, sessionRedisKey(token)).Err()
		return false, nil
	}
	return true, nil
}

func (s *RedisSessionStore) store(ctx context.Context, session *sessions.Session) error {
	data, err := s.serde.Serialize(session.Values)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}
	key := sessionRedisKey(session.ID)
	if session.IsNew {
		if err := s.client.Set(ctx, key, data, s.expiry).Err(); err != nil {
			return oops.Code("SESSION_SAVE_FAILED").Wrap(err)
		}
		return nil
	}
	// A loaded session is only rewritten while its record exists, so a
	// concurrent Delete cannot be undone by an in-flight save.
	ok, err := s.client.SetXX(ctx, key, data, s.expiry).Result()
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").Wrap(err)
	}
	if !ok {
		return errSessionGone
	}
	return nil
}

func sessionRedisKey(token string) string {
	return SessionKeyPrefix + hashSessionToken(token)
}
