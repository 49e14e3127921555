package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemoryStore keeps journals in process memory and drops them after ttl.
type InMemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
	ttl   time.Duration
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	cleanup := ttl
	if cleanup <= 0 || cleanup > time.Minute {
		cleanup = time.Minute
	}
	return &InMemoryStore{
		items: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (s *InMemoryStore) LoadSession(ctx context.Context, sessionID string) (*SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID), nil
}

func (s *InMemoryStore) load(sessionID string) *SessionData {
	v, ok := s.items.Get(sessionID)
	if !ok {
		return newSessionData(sessionID)
	}
	stored := v.(*SessionData)
	copied := *stored
	copied.Messages = append([]Message(nil), stored.Messages...)
	return &copied
}

func (s *InMemoryStore) SaveMessages(ctx context.Context, sessionID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.load(sessionID)
	appendMessages(session, msgs)
	s.items.Set(sessionID, session, s.ttl)
	return nil
}

func (s *InMemoryStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID).Messages, nil
}

func (s *InMemoryStore) ClearSession(ctx context.Context, sessionID string) error {
	s.items.Delete(sessionID)
	return nil
}

func (s *InMemoryStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	_, ok := s.items.Get(sessionID)
	return ok, nil
}
