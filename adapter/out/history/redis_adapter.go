package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/clouderp-code/email-processor/core/domain"
)

const (
	historyKeyPrefix      = "history:"
	conversationKeyPrefix = "history:conv:"
)

// RedisAdapter reads recent conversation context from sorted sets keyed
// by sender, scored by message timestamp.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

type historyEntry struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Recent returns up to limit messages for the sender, newest first.
// An unknown sender yields an empty history, not an error.
func (a *RedisAdapter) Recent(ctx context.Context, sender string, limit int) (*domain.ConversationHistory, error) {
	key := historyKeyPrefix + strings.ToLower(sender)

	members, err := a.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("history lookup: %w", err)
	}

	messages := make([]domain.HistoryMessage, 0, len(members))
	for _, member := range members {
		var entry historyEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		messages = append(messages, domain.HistoryMessage{
			Content:   entry.Content,
			Timestamp: entry.Timestamp,
		})
	}

	conversationID, err := a.client.Get(ctx, conversationKeyPrefix+strings.ToLower(sender)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("conversation id lookup: %w", err)
	}

	return &domain.ConversationHistory{
		ConversationID: conversationID,
		Messages:       messages,
	}, nil
}

// Append records a processed message so later follow-ups can see it.
func (a *RedisAdapter) Append(ctx context.Context, sender, conversationID, content string, at time.Time) error {
	entry, err := json.Marshal(historyEntry{Content: content, Timestamp: at})
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	lowered := strings.ToLower(sender)
	pipe := a.client.TxPipeline()
	pipe.ZAdd(ctx, historyKeyPrefix+lowered, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: string(entry),
	})
	if conversationID != "" {
		pipe.Set(ctx, conversationKeyPrefix+lowered, conversationID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
