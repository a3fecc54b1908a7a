package out

import (
	"context"

	"github.com/clouderp-code/email-processor/core/domain"
)

// KnowledgePort searches the knowledge base for relevant articles
type KnowledgePort interface {
	// Search returns up to limit articles with relevance >= minRelevance,
	// most relevant first
	Search(ctx context.Context, query string, limit int, minRelevance float64) ([]domain.Article, error)
}
