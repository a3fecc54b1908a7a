package classify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

// MaxClassifyChars caps the text sent to the classification service
const MaxClassifyChars = 4096

// Classifier assigns a category by arg-max over the distribution the
// classification service returns for "subject\n\nbody".
type Classifier struct {
	port out.ClassifierPort
	log  zerolog.Logger
}

func NewClassifier(port out.ClassifierPort, log zerolog.Logger) *Classifier {
	return &Classifier{port: port, log: log}
}

// Classify returns the category decision with its confidence, or a
// CLASSIFICATION_UNAVAILABLE error when the service cannot answer.
// Priority fields are filled by the scorer, not here.
func (c *Classifier) Classify(ctx context.Context, subject, cleanedBody string) (*domain.Classification, error) {
	text := ClassifierInput(subject, cleanedBody)

	dist, err := c.port.Classify(ctx, text)
	if err != nil {
		return nil, apperr.ClassificationUnavailable(err)
	}
	if len(dist) == 0 {
		return nil, apperr.ClassificationUnavailable(nil).WithDetail("reason", "empty distribution")
	}

	// Arg-max in canonical category order so ties resolve deterministically
	var (
		best     domain.Category
		bestProb = -1.0
	)
	for _, cat := range domain.Categories() {
		if p, ok := dist[cat]; ok && p > bestProb {
			best = cat
			bestProb = p
		}
	}
	if bestProb < 0 {
		return nil, apperr.ClassificationUnavailable(nil).WithDetail("reason", "no known category in distribution")
	}

	confidence := clamp01(bestProb)

	c.log.Debug().
		Str("category", string(best)).
		Float64("confidence", confidence).
		Msg("[Classifier.Classify] category assigned")

	return &domain.Classification{
		Category:           best,
		CategoryConfidence: confidence,
		Distribution:       distributionFor(dist),
	}, nil
}

// ClassifierInput builds the service input: subject and cleaned body
// joined by a blank line, truncated to the fixed character budget.
func ClassifierInput(subject, cleanedBody string) string {
	text := subject + "\n\n" + cleanedBody
	runes := []rune(text)
	if len(runes) > MaxClassifyChars {
		return string(runes[:MaxClassifyChars])
	}
	return text
}

func distributionFor(dist out.Distribution) map[domain.Category]float64 {
	result := make(map[domain.Category]float64, len(dist))
	for cat, p := range dist {
		if cat.Valid() {
			result[cat] = clamp01(p)
		}
	}
	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
