package kvstore

import (
	"errors"
	"time"

	"collections-console/internal/core/domain"
)

// Two logical keys per session, mirroring what the console kept in browser storage
const (
	authTokenKey = "auth_token"
	userKey      = "user"
)

// StoredUser is the profile document kept next to the token
type StoredUser struct {
	UserID    string      `json:"userId"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SessionStore persists staff sessions keyed by console session id.
// The token is stored as given; callers seal it before handing it over.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a session store backed by store
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

func sessionKey(sessionID, name string) string {
	return sessionID + ":" + name
}

// Put stores token and profile for a session
func (s *SessionStore) Put(sessionID, sealedToken string, user StoredUser) error {
	if err := s.store.put(sessionsBucket, sessionKey(sessionID, authTokenKey), sealedToken); err != nil {
		return err
	}
	return s.store.put(sessionsBucket, sessionKey(sessionID, userKey), user)
}

// Get loads a session. A session without a token is treated as absent.
func (s *SessionStore) Get(sessionID string) (sealedToken string, user StoredUser, err error) {
	if err = s.store.get(sessionsBucket, sessionKey(sessionID, authTokenKey), &sealedToken); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = domain.ErrSessionNotFound
		}
		return "", StoredUser{}, err
	}
	if err = s.store.get(sessionsBucket, sessionKey(sessionID, userKey), &user); err != nil && !errors.Is(err, ErrNotFound) {
		return "", StoredUser{}, err
	}
	return sealedToken, user, nil
}

// Delete removes both keys of a session
func (s *SessionStore) Delete(sessionID string) error {
	return s.store.delete(sessionsBucket,
		sessionKey(sessionID, authTokenKey),
		sessionKey(sessionID, userKey),
	)
}
