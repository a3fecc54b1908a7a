package respond

import (
	"context"
	"fmt"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

// Responder generates a category-specific reply draft.
type Responder interface {
	Category() domain.Category
	Generate(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification) (*domain.ResponseDraft, error)
}

// Router maps each category to exactly one responder. Construction
// fails unless the table covers the full closed category set, so a
// running router is total by construction.
type Router struct {
	table map[domain.Category]Responder
}

func NewRouter(responders ...Responder) (*Router, error) {
	table := make(map[domain.Category]Responder, len(responders))
	for _, r := range responders {
		cat := r.Category()
		if !cat.Valid() {
			return nil, fmt.Errorf("responder registered for unknown category %q", cat)
		}
		if _, exists := table[cat]; exists {
			return nil, fmt.Errorf("duplicate responder for category %q", cat)
		}
		table[cat] = r
	}
	for _, cat := range domain.Categories() {
		if _, ok := table[cat]; !ok {
			return nil, fmt.Errorf("no responder for category %q", cat)
		}
	}
	return &Router{table: table}, nil
}

// Route fails closed: an unmapped category is an explicit routing error,
// never a silent fallback to some default responder.
func (r *Router) Route(category domain.Category) (Responder, error) {
	responder, ok := r.table[category]
	if !ok {
		return nil, apperr.RoutingError(string(category))
	}
	return responder, nil
}
