package out

import (
	"context"
	"time"

	"github.com/clouderp-code/email-processor/core/domain"
)

// HistoryPort reads and records conversation context per sender
type HistoryPort interface {
	// Recent returns up to limit prior messages, newest first
	Recent(ctx context.Context, sender string, limit int) (*domain.ConversationHistory, error)

	// Append records a processed message for later follow-ups
	Append(ctx context.Context, sender, conversationID, content string, at time.Time) error
}
