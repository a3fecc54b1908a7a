package respond

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

const (
	inquiryMaxTokens   = 500
	inquiryTemperature = 0.7
)

// InquiryResponder answers product and general questions.
type InquiryResponder struct {
	llm out.CompletionPort
	log zerolog.Logger
}

func NewInquiryResponder(llm out.CompletionPort, log zerolog.Logger) *InquiryResponder {
	return &InquiryResponder{llm: llm, log: log}
}

func (r *InquiryResponder) Category() domain.Category {
	return domain.CategoryInquiry
}

func (r *InquiryResponder) Generate(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification) (*domain.ResponseDraft, error) {
	prompt := fmt.Sprintf(
		"You are a helpful customer service assistant. Write a professional, friendly reply to the following inquiry.\n\nSubject: %s\n\nMessage: %s\n\nAnswer the question directly. Do not include a greeting or signature.",
		email.Subject, email.CleanedBody,
	)

	content, err := r.llm.Complete(ctx, out.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   inquiryMaxTokens,
		Temperature: inquiryTemperature,
	})
	if err != nil {
		return nil, apperr.GenerationError(err)
	}

	return &domain.ResponseDraft{
		Type:      domain.CategoryInquiry,
		Body:      RenderReply(email.Sender, content, ""),
		CreatedAt: time.Now().UTC(),
	}, nil
}
