package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the browser session cookie.
const SessionName = "nautilus-session"

// sessionKeyToken is the session value holding the signed token.
const sessionKeyToken = "token"

// SessionStore keeps the signed session token in a signed cookie for
// browser clients. API clients send the token in the Authorization header.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore initializes the cookie-based session store.
//
// The secret parameter is used to sign session cookies. It can be any
// passphrase - it will be SHA-256 hashed to derive a 32-byte key.
// The secret must be consistent across server restarts and multiple
// servers in a load-balanced deployment.
//
// Security settings:
// - HttpOnly: true (inaccessible to JavaScript)
// - Secure: derived from the base URL
// - SameSite: Lax (sent on top-level navigation only)
func NewSessionStore(secret string, cookie CookieSettings, maxAgeSeconds int) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cookie.Domain,
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Token returns the session token carried by the request, if any.
func (s *SessionStore) Token(r *http.Request) (string, bool) {
	session, err := s.store.Get(r, SessionName)
	if err != nil || session.IsNew {
		return "", false
	}
	token, ok := session.Values[sessionKeyToken].(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// SaveToken stores the token in the session cookie.
func (s *SessionStore) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	// A cookie signed with a rotated key fails to decode; start a new session.
	session, _ := s.store.Get(r, SessionName)
	session.Values[sessionKeyToken] = token
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	delete(session.Values, sessionKeyToken)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
