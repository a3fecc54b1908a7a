package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

// Publisher hands a finished draft to the mail transport and, for
// meeting drafts, creates the tentative calendar event.
type Publisher struct {
	mailer   out.MailTransportPort
	calendar out.CalendarPort
	log      zerolog.Logger
}

func NewPublisher(mailer out.MailTransportPort, calendar out.CalendarPort, log zerolog.Logger) *Publisher {
	return &Publisher{mailer: mailer, calendar: calendar, log: log}
}

// Publish creates the mail draft first so its id survives even when the
// calendar event fails afterwards; the error then carries the draft id.
func (p *Publisher) Publish(ctx context.Context, email *domain.NormalizedEmail, draft *domain.ResponseDraft) (string, error) {
	subject := replySubject(email.Subject)

	draftID, err := p.mailer.CreateDraft(ctx, email.MessageID, email.Sender, subject, draft.Body)
	if err != nil {
		return "", apperr.PublishError(err)
	}

	if draft.Event != nil && p.calendar != nil {
		eventID, err := p.calendar.CreateDraftEvent(ctx, draft.Event)
		if err != nil {
			return draftID, apperr.PublishError(err).WithDetail("draft_id", draftID)
		}
		p.log.Debug().
			Str("draft_id", draftID).
			Str("event_id", eventID).
			Msg("[Publisher.Publish] tentative event created")
	}

	return draftID, nil
}

func replySubject(subject string) string {
	if len(subject) >= 3 && (subject[:3] == "Re:" || subject[:3] == "RE:") {
		return subject
	}
	return "Re: " + subject
}
