package adapter

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/evalgate/evalgate/internal/models"
)

const (
	defaultSessionCapacity = 512
	defaultSessionTTL      = 30 * time.Minute
)

// SessionStore keeps per-conversation dialogue history. Entries expire
// after their TTL and the least recently used conversation is evicted
// at capacity, so abandoned sessions never need explicit cleanup.
type SessionStore struct {
	cache *expirable.LRU[string, []models.Turn]
}

func NewSessionStore(capacity int, ttl time.Duration) *SessionStore {
	if capacity <= 0 {
		capacity = defaultSessionCapacity
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		cache: expirable.NewLRU[string, []models.Turn](capacity, nil, ttl),
	}
}

func (s *SessionStore) History(sessionID string) []models.Turn {
	turns, _ := s.cache.Get(sessionID)
	return turns
}

func (s *SessionStore) Append(sessionID string, turns ...models.Turn) {
	history := append(s.History(sessionID), turns...)
	s.cache.Add(sessionID, history)
}

func (s *SessionStore) Reset(sessionID string) {
	s.cache.Remove(sessionID)
}
