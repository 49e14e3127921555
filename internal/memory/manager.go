package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"

	"github.com/steveharianto/Flightly/internal/models"
)

// Manager journals each session's transcripts and extraction results using
// a LangChainGo conversation buffer backed by a Store.
type Manager struct {
	mu       sync.Mutex
	store    Store
	sessions map[string]*memory.ConversationBuffer // In-memory cache
	logger   *zap.Logger
}

// NewManager creates a new memory manager
func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    store,
		sessions: make(map[string]*memory.ConversationBuffer),
		logger:   logger,
	}
}

// GetOrCreateSession gets or creates a LangChainGo memory buffer for a session
func (m *Manager) GetOrCreateSession(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(ctx, sessionID)
}

func (m *Manager) getOrCreateLocked(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	if mem, exists := m.sessions[sessionID]; exists {
		return mem, nil
	}

	mem := memory.NewConversationBuffer()

	sessionData, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	for _, msg := range sessionData.Messages {
		var chatMsg llms.ChatMessage

		switch msg.Role {
		case "user":
			chatMsg = llms.HumanChatMessage{Content: msg.Content}
		case "assistant":
			chatMsg = llms.AIChatMessage{Content: msg.Content}
		default:
			m.logger.Warn("Unknown message role, skipping", zap.String("role", msg.Role))
			continue
		}

		if err := mem.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	m.sessions[sessionID] = mem
	m.logger.Debug("Loaded session journal",
		zap.String("session_id", sessionID),
		zap.Int("messages", len(sessionData.Messages)))

	return mem, nil
}

// extractionEntry is the assistant-side journal payload.
type extractionEntry struct {
	Source  string               `json:"source"`
	Request models.TravelRequest `json:"request"`
}

// RecordExtraction journals the extracted text as a user message and the
// resulting record as an assistant message.
func (m *Manager) RecordExtraction(ctx context.Context, sessionID, text string, request models.TravelRequest, source string) error {
	payload, err := json.Marshal(extractionEntry{Source: source, Request: request})
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mem, err := m.getOrCreateLocked(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := mem.ChatHistory.AddUserMessage(ctx, text); err != nil {
		return fmt.Errorf("failed to add user message to memory: %w", err)
	}
	if err := mem.ChatHistory.AddAIMessage(ctx, string(payload)); err != nil {
		return fmt.Errorf("failed to add AI message to memory: %w", err)
	}

	now := time.Now()
	if err := m.store.SaveMessages(ctx, sessionID,
		Message{Role: "user", Content: text, Timestamp: now},
		Message{Role: "assistant", Content: string(payload), Timestamp: now},
	); err != nil {
		return fmt.Errorf("failed to save journal: %w", err)
	}

	return nil
}

// GetFormattedHistory returns the journal as "User:/Assistant:" lines.
func (m *Manager) GetFormattedHistory(ctx context.Context, sessionID string) (string, error) {
	mem, err := m.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	messages, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	var formatted string
	for _, msg := range messages {
		switch msg := msg.(type) {
		case llms.HumanChatMessage:
			formatted += fmt.Sprintf("User: %s\n", msg.Content)
		case llms.AIChatMessage:
			formatted += fmt.Sprintf("Assistant: %s\n", msg.Content)
		}
	}

	return formatted, nil
}

// GetMessages returns raw messages from the store
func (m *Manager) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	return m.store.GetMessages(ctx, sessionID)
}

// ClearSession clears a session from both cache and store
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.logger.Debug("Cleared session journal", zap.String("session_id", sessionID))
	return nil
}

// SessionExists checks if a session journal exists in the store
func (m *Manager) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.SessionExists(ctx, sessionID)
}

// GetActiveSessionCount returns the number of cached sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Ping checks the store's backend when it has one.
func (m *Manager) Ping(ctx context.Context) error {
	if pinger, ok := m.store.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
