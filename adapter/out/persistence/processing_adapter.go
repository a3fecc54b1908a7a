package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clouderp-code/email-processor/core/domain"
)

// ProcessingAdapter records processed emails and their responses in one
// transaction.
type ProcessingAdapter struct {
	db *sqlx.DB
}

func NewProcessingAdapter(db *sqlx.DB) *ProcessingAdapter {
	return &ProcessingAdapter{db: db}
}

type processedEmailRow struct {
	ID                 uuid.UUID `db:"id"`
	MessageID          string    `db:"message_id"`
	Sender             string    `db:"sender"`
	Subject            string    `db:"subject"`
	Body               string    `db:"body"`
	CleanedBody        string    `db:"cleaned_body"`
	Entities           []byte    `db:"entities"`
	Category           string    `db:"category"`
	CategoryConfidence float64   `db:"category_confidence"`
	Priority           string    `db:"priority"`
	PriorityConfidence float64   `db:"priority_confidence"`
	ReceivedAt         time.Time `db:"received_at"`
	ProcessedAt        time.Time `db:"processed_at"`
}

type emailResponseRow struct {
	ID             uuid.UUID `db:"id"`
	EmailID        uuid.UUID `db:"email_id"`
	ResponseType   string    `db:"response_type"`
	Content        string    `db:"content"`
	DraftID        string    `db:"draft_id"`
	TicketID       *string   `db:"ticket_id"`
	ConversationID *string   `db:"conversation_id"`
	GeneratedAt    time.Time `db:"generated_at"`
}

// SaveProcessed writes both rows atomically and returns their ids.
func (a *ProcessingAdapter) SaveProcessed(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification, draft *domain.ResponseDraft, draftID string) (*domain.RecordIDs, error) {
	entities, err := json.Marshal(email.Entities)
	if err != nil {
		return nil, fmt.Errorf("encode entities: %w", err)
	}

	emailRow := processedEmailRow{
		ID:                 uuid.New(),
		MessageID:          email.MessageID,
		Sender:             email.Sender,
		Subject:            email.Subject,
		Body:               email.Body,
		CleanedBody:        email.CleanedBody,
		Entities:           entities,
		Category:           string(cls.Category),
		CategoryConfidence: cls.CategoryConfidence,
		Priority:           string(cls.Priority),
		PriorityConfidence: cls.PriorityConfidence,
		ReceivedAt:         email.ReceivedAt,
		ProcessedAt:        time.Now().UTC(),
	}
	responseRow := emailResponseRow{
		ID:             uuid.New(),
		EmailID:        emailRow.ID,
		ResponseType:   string(draft.Type),
		Content:        draft.Body,
		DraftID:        draftID,
		TicketID:       nullable(draft.TicketID),
		ConversationID: nullable(draft.ConversationID),
		GeneratedAt:    draft.CreatedAt,
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO processed_emails (
			id, message_id, sender, subject, body, cleaned_body, entities,
			category, category_confidence, priority, priority_confidence,
			received_at, processed_at
		) VALUES (
			:id, :message_id, :sender, :subject, :body, :cleaned_body, :entities,
			:category, :category_confidence, :priority, :priority_confidence,
			:received_at, :processed_at
		)`, emailRow)
	if err != nil {
		return nil, fmt.Errorf("insert processed email: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO email_responses (
			id, email_id, response_type, content, draft_id,
			ticket_id, conversation_id, generated_at
		) VALUES (
			:id, :email_id, :response_type, :content, :draft_id,
			:ticket_id, :conversation_id, :generated_at
		)`, responseRow)
	if err != nil {
		return nil, fmt.Errorf("insert email response: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &domain.RecordIDs{
		EmailID:    emailRow.ID,
		ResponseID: responseRow.ID,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
