package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STORE
// Sessions are opaque bearer tokens. The token is the Redis key, the
// payload carries the owner. A per-user set indexes tokens so a password
// change can revoke everything at once.
// ══════════════════════════════════════════════════════════════════════════════

// SessionStore implements profile.SessionStore on Redis.
type SessionStore struct {
	cache *Cache
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(cache *Cache) *SessionStore {
	return &SessionStore{cache: cache}
}

// Save stores a session with the given TTL and indexes it under the user.
func (s *SessionStore) Save(ctx context.Context, session profile.Session, ttl time.Duration) error {
	if session.Token == "" || session.UserID == "" {
		return ErrCacheKeyEmpty
	}
	if ttl <= 0 {
		ttl = TTLSession
	}

	if err := s.cache.Set(ctx, SessionKey(session.Token), session, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	indexKey := UserSessionsKey(session.UserID)
	pipe := s.cache.Client().Pipeline()
	pipe.SAdd(ctx, indexKey, session.Token)
	pipe.Expire(ctx, indexKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// Get returns the session for a token.
func (s *SessionStore) Get(ctx context.Context, token string) (profile.Session, error) {
	var session profile.Session
	err := s.cache.Get(ctx, SessionKey(token), &session)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return profile.Session{}, shared.ErrSessionNotFound
		}
		return profile.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	if session.IsExpired(time.Now().UTC()) {
		_ = s.Delete(ctx, token)
		return profile.Session{}, shared.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session (logout).
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	session, err := s.Get(ctx, token)
	if err == nil {
		_ = s.cache.Client().SRem(ctx, UserSessionsKey(session.UserID), token).Err()
	}
	return s.cache.Delete(ctx, SessionKey(token))
}

// DeleteAllForUser removes every session of a user.
func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	indexKey := UserSessionsKey(userID)
	tokens, err := s.cache.Client().SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, SessionKey(token))
	}
	keys = append(keys, indexKey)
	return s.cache.Delete(ctx, keys...)
}

// Touch extends the session's TTL.
func (s *SessionStore) Touch(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLSession
	}
	return s.cache.Expire(ctx, SessionKey(token), ttl)
}
