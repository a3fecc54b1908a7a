package out

import "context"

// MailTransportPort creates reply drafts on the user's mail account
type MailTransportPort interface {
	// CreateDraft creates a draft reply on the given thread and returns
	// the transport-assigned draft id
	CreateDraft(ctx context.Context, threadID, recipient, subject, body string) (string, error)
}
