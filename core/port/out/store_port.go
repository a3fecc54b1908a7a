package out

import (
	"context"

	"github.com/clouderp-code/email-processor/core/domain"
)

// ProcessingStorePort records a processed email and its response
// atomically
type ProcessingStorePort interface {
	SaveProcessed(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification, draft *domain.ResponseDraft, draftID string) (*domain.RecordIDs, error)
}
