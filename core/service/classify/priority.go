package classify

import (
	"strings"

	"github.com/clouderp-code/email-processor/core/domain"
)

// Keyword table for rule-based urgency scoring. Matching is
// case-insensitive substring counting over subject and cleaned body.
var priorityKeywords = map[domain.Priority][]string{
	domain.PriorityUrgent: {"urgent", "asap", "emergency", "immediate"},
	domain.PriorityHigh:   {"important", "priority", "critical"},
	domain.PriorityMedium: {"please", "when possible", "need"},
	domain.PriorityLow:    {"fyi", "update", "newsletter"},
}

// PriorityScorer assigns an urgency level from keyword hit counts.
type PriorityScorer struct{}

func NewPriorityScorer() *PriorityScorer {
	return &PriorityScorer{}
}

// Score returns the level with the most keyword hits and the confidence
// winningHits/totalHits. Ties break toward the more urgent level. With
// no hits at all the result is the neutral default: Medium at 0.5.
func (s *PriorityScorer) Score(text string) (domain.Priority, float64) {
	lower := strings.ToLower(text)

	counts := make(map[domain.Priority]int, len(priorityKeywords))
	total := 0
	for level, keywords := range priorityKeywords {
		for _, kw := range keywords {
			n := strings.Count(lower, kw)
			counts[level] += n
			total += n
		}
	}

	if total == 0 {
		return domain.PriorityMedium, domain.NeutralConfidence
	}

	best := domain.PriorityLow
	bestCount := -1
	for _, level := range domain.PrioritiesByUrgency() {
		if counts[level] > bestCount {
			best = level
			bestCount = counts[level]
		}
	}

	return best, float64(bestCount) / float64(total)
}
