package transport

import (
	"context"

	"github.com/steveharianto/Flightly/internal/memory"
	"github.com/steveharianto/Flightly/internal/models"
)

// HistorySource reads session extraction journals.
type HistorySource interface {
	GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error)
	GetFormattedHistory(ctx context.Context, sessionID string) (string, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	GetActiveSessionCount() int
	Ping(ctx context.Context) error
}

func toHistory(msgs []memory.Message) []models.HistoryMessage {
	out := make([]models.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return out
}
