package intake

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for an unknown or closed session id.
var ErrSessionNotFound = errors.New("session not found")

// Registry maps session ids to controllers. Options passed to NewRegistry
// apply to every controller it creates.
type Registry struct {
	resolver Resolver
	settings settings

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewRegistry(resolver Resolver, opts ...Option) *Registry {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &Registry{
		resolver: resolver,
		settings: s,
		sessions: make(map[string]*Controller),
	}
}

// AddObserver registers o for every controller created afterwards.
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.observers = append(r.settings.observers, o)
}

// Create opens a session with a new random id.
func (r *Registry) Create() *Controller {
	return r.GetOrCreate(uuid.NewString())
}

// Get returns the controller for id.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// GetOrCreate returns the controller for id, opening it if needed.
func (r *Registry) GetOrCreate(id string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.sessions[id]; ok {
		return c
	}
	c := newController(id, r.resolver, r.settings)
	r.sessions[id] = c
	r.settings.metrics.SetActiveSessions(len(r.sessions))
	r.settings.logger.Info("Session opened", zap.String("session_id", id))
	return c
}

// Close closes the session and drops its journal.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.settings.metrics.SetActiveSessions(len(r.sessions))
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	c.Close()

	if cleaner, ok := r.settings.journal.(interface {
		ClearSession(ctx context.Context, sessionID string) error
	}); ok {
		if err := cleaner.ClearSession(ctx, id); err != nil {
			r.settings.logger.Warn("Failed to clear session journal", zap.String("session_id", id), zap.Error(err))
		}
	}
	r.settings.logger.Info("Session closed", zap.String("session_id", id))
	return nil
}

// CloseAll closes every session. Journals are left to expire.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Controller)
	r.settings.metrics.SetActiveSessions(0)
	r.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
