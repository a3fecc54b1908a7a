package respond

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/apperr"
	"github.com/clouderp-code/email-processor/pkg/metrics"
)

const (
	followUpMaxTokens   = 600
	followUpTemperature = 0.7

	historyLimit = 5
)

// FollowUpResponder continues an earlier thread using recent
// conversation history for the sender.
type FollowUpResponder struct {
	llm     out.CompletionPort
	history out.HistoryPort
	metrics *metrics.PipelineMetrics
	log     zerolog.Logger
}

func NewFollowUpResponder(llm out.CompletionPort, history out.HistoryPort, m *metrics.PipelineMetrics, log zerolog.Logger) *FollowUpResponder {
	return &FollowUpResponder{llm: llm, history: history, metrics: m, log: log}
}

func (r *FollowUpResponder) Category() domain.Category {
	return domain.CategoryFollowUp
}

func (r *FollowUpResponder) Generate(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification) (*domain.ResponseDraft, error) {
	// History failures degrade to a contextless reply, never an abort.
	hist, err := r.history.Recent(ctx, email.Sender, historyLimit)
	if err != nil {
		r.log.Warn().Err(err).
			Str("sender", email.Sender).
			Msg("[FollowUpResponder.Generate] history lookup degraded to empty")
		r.metrics.ObserveDegraded("history")
		hist = nil
	}

	content, err := r.llm.Complete(ctx, out.CompletionRequest{
		Prompt:      r.buildPrompt(email, hist),
		MaxTokens:   followUpMaxTokens,
		Temperature: followUpTemperature,
	})
	if err != nil {
		return nil, apperr.GenerationError(err)
	}

	draft := &domain.ResponseDraft{
		Type:      domain.CategoryFollowUp,
		Body:      RenderReply(email.Sender, content, followUpReference(hist)),
		CreatedAt: time.Now().UTC(),
	}
	if hist != nil {
		draft.ConversationID = hist.ConversationID
	}
	return draft, nil
}

func (r *FollowUpResponder) buildPrompt(email *domain.NormalizedEmail, hist *domain.ConversationHistory) string {
	var sb strings.Builder
	sb.WriteString("You are a customer service assistant continuing an ongoing conversation. Write a reply to the follow-up below.\n\n")
	fmt.Fprintf(&sb, "Subject: %s\n\nMessage: %s\n", email.Subject, email.CleanedBody)

	if hist != nil && len(hist.Messages) > 0 {
		sb.WriteString("\nPrevious messages, newest first:\n")
		for _, m := range hist.Messages {
			fmt.Fprintf(&sb, "- [%s] %s\n", m.Timestamp.Format("2006-01-02"), m.Content)
		}
	} else {
		sb.WriteString("\nNo prior conversation context is available; ask for details if needed.")
	}

	sb.WriteString("\nDo not include a greeting or signature.")
	return sb.String()
}

func followUpReference(hist *domain.ConversationHistory) string {
	if hist == nil || len(hist.Messages) == 0 {
		return ""
	}
	return "Regarding our previous conversation on " + hist.Messages[0].Timestamp.Format("January 2, 2006")
}
