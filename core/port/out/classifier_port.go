package out

import (
	"context"

	"github.com/clouderp-code/email-processor/core/domain"
)

// Distribution maps each category to its probability mass
type Distribution map[domain.Category]float64

// ClassifierPort talks to the category classification service
type ClassifierPort interface {
	// Classify returns the category distribution for the given text
	Classify(ctx context.Context, text string) (Distribution, error)
}
