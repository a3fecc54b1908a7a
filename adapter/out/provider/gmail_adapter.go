package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailAdapter creates reply drafts through the Gmail API behind a
// circuit breaker.
type GmailAdapter struct {
	tokenSource oauth2.TokenSource
	breaker     *gobreaker.CircuitBreaker
	log         zerolog.Logger
}

func NewGmailAdapter(cfg *GoogleConfig, log zerolog.Logger) *GmailAdapter {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       []string{gmail.GmailComposeScope},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-drafts",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[GmailAdapter] circuit breaker state changed")
		},
	})

	return &GmailAdapter{
		tokenSource: oauthCfg.TokenSource(context.Background(), token),
		breaker:     breaker,
		log:         log,
	}
}

// CreateDraft creates a draft reply on the originating thread and
// returns the Gmail draft id.
func (a *GmailAdapter) CreateDraft(ctx context.Context, threadID, recipient, subject, body string) (string, error) {
	result, err := a.breaker.Execute(func() (any, error) {
		svc, err := gmail.NewService(ctx, option.WithTokenSource(a.tokenSource))
		if err != nil {
			return nil, fmt.Errorf("create gmail service: %w", err)
		}

		raw := buildRawMessage(threadID, recipient, subject, body)
		created, err := svc.Users.Drafts.Create("me", &gmail.Draft{
			Message: &gmail.Message{
				Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
			},
		}).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("create draft: %w", err)
		}
		return created.Id, nil
	})
	if err != nil {
		return "", err
	}

	draftID := result.(string)
	a.log.Debug().
		Str("draft_id", draftID).
		Str("thread_id", threadID).
		Msg("[GmailAdapter.CreateDraft] draft created")
	return draftID, nil
}

func buildRawMessage(threadID, recipient, subject, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", recipient)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	if threadID != "" {
		fmt.Fprintf(&sb, "In-Reply-To: <%s>\r\n", threadID)
		fmt.Fprintf(&sb, "References: <%s>\r\n", threadID)
	}
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}
