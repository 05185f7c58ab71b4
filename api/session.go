/*
session.go - Terminal session tokens

PURPOSE:
  Maps opaque session tokens to authenticated client identities. The
  engine takes identities explicitly; this store is the surrounding
  application's replacement for ambient session state. Tokens expire
  after a TTL and are revoked on logout.
*/
package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a terminal session stays valid after
// login.
const DefaultSessionTTL = 15 * time.Minute

type session struct {
	clientIdentity string
	accountNumber  string
	expiresAt      time.Time
}

// SessionStore is an in-memory token registry. A restart invalidates
// all sessions, which is acceptable for terminal logins.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]session
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// Create issues a token for an authenticated client. The account number
// is the one the client logged in with.
func (s *SessionStore) Create(clientIdentity, accountNumber string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	s.sessions[token] = session{
		clientIdentity: clientIdentity,
		accountNumber:  accountNumber,
		expiresAt:      s.now().Add(s.ttl),
	}
	return token
}

// Lookup resolves a token to the client identity and login account.
// Expired or unknown tokens report ok=false.
func (s *SessionStore) Lookup(token string) (clientIdentity, accountNumber string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.sessions[token]
	if !found {
		return "", "", false
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", "", false
	}
	return sess.clientIdentity, sess.accountNumber, true
}

// Revoke ends a session. Unknown tokens are a no-op.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
