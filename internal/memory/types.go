package memory

import (
	"context"
	"time"
)

// Message represents a single journal entry
type Message struct {
	Role      string    `json:"role"`      // "user" (transcript) or "assistant" (extraction)
	Content   string    `json:"content"`   // The transcript text or extracted record
	Timestamp time.Time `json:"timestamp"` // When the entry was written
}

// SessionData represents the journal of one intake session
type SessionData struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

func newSessionData(sessionID string) *SessionData {
	now := time.Now()
	return &SessionData{
		SessionID: sessionID,
		Messages:  []Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}

// Store defines the interface for journal storage. Entries expire after
// the store's TTL.
type Store interface {
	// LoadSession loads a session, returning an empty one if none exists
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// SaveMessages appends messages to a session and refreshes its TTL
	SaveMessages(ctx context.Context, sessionID string, msgs ...Message) error

	// GetMessages retrieves all messages for a session
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error

	// SessionExists checks if a session exists
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}
