package respond

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/apperr"
	"github.com/clouderp-code/email-processor/pkg/metrics"
)

const (
	supportMaxTokens   = 800
	supportTemperature = 0.5

	kbArticleLimit = 3
	kbMinRelevance = 0.7
	ticketIDLayout = "20060102-150405"
	ticketIDPrefix = "TICKET-"
)

// SupportResponder handles technical issues: it consults the knowledge
// base, synthesizes a ticket id and asks for step-by-step guidance.
type SupportResponder struct {
	llm     out.CompletionPort
	kb      out.KnowledgePort
	metrics *metrics.PipelineMetrics
	now     func() time.Time
	log     zerolog.Logger
}

func NewSupportResponder(llm out.CompletionPort, kb out.KnowledgePort, m *metrics.PipelineMetrics, log zerolog.Logger) *SupportResponder {
	return &SupportResponder{
		llm:     llm,
		kb:      kb,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
	}
}

func (r *SupportResponder) Category() domain.Category {
	return domain.CategorySupport
}

func (r *SupportResponder) Generate(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification) (*domain.ResponseDraft, error) {
	// Knowledge-base failures degrade to an empty article list, they
	// never abort the response.
	articles, err := r.kb.Search(ctx, email.CleanedBody, kbArticleLimit, kbMinRelevance)
	if err != nil {
		r.log.Warn().Err(err).
			Str("message_id", email.MessageID).
			Msg("[SupportResponder.Generate] knowledge base lookup degraded to empty")
		r.metrics.ObserveDegraded("knowledge_base")
		articles = nil
	}

	ticketID := NewTicketID(r.now())

	content, err := r.llm.Complete(ctx, out.CompletionRequest{
		Prompt:      r.buildPrompt(email, articles),
		MaxTokens:   supportMaxTokens,
		Temperature: supportTemperature,
	})
	if err != nil {
		return nil, apperr.GenerationError(err)
	}

	return &domain.ResponseDraft{
		Type:      domain.CategorySupport,
		Body:      RenderReply(email.Sender, content, "Ticket reference: "+ticketID),
		TicketID:  ticketID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (r *SupportResponder) buildPrompt(email *domain.NormalizedEmail, articles []domain.Article) string {
	var sb strings.Builder
	sb.WriteString("You are a technical support assistant. Write a reply that acknowledges the problem and gives clear step-by-step instructions to resolve it.\n\n")
	fmt.Fprintf(&sb, "Subject: %s\n\nMessage: %s\n", email.Subject, email.CleanedBody)

	if len(articles) > 0 {
		sb.WriteString("\nRelevant knowledge base articles:\n")
		for _, a := range articles {
			fmt.Fprintf(&sb, "- %s: %s\n", a.Title, a.Content)
		}
	}

	sb.WriteString("\nNumber the steps. Do not include a greeting or signature.")
	return sb.String()
}

// NewTicketID synthesizes a ticket id from the timestamp plus a short
// random suffix against same-second collisions.
func NewTicketID(now time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return ticketIDPrefix + now.UTC().Format(ticketIDLayout) + "-" + suffix
}
