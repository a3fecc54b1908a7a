package domain

// Category is the closed set of email categories the pipeline routes on
type Category string

const (
	CategoryInquiry  Category = "inquiry"   // Product and general questions
	CategorySupport  Category = "support"   // Technical issues and account problems
	CategoryMeeting  Category = "meeting"   // Scheduling requests
	CategoryFollowUp Category = "follow_up" // Continuations of earlier threads
)

// Categories returns the closed category set in canonical order.
// Arg-max tie-breaking and router exhaustiveness both key off this order.
func Categories() []Category {
	return []Category{CategoryInquiry, CategorySupport, CategoryMeeting, CategoryFollowUp}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryInquiry, CategorySupport, CategoryMeeting, CategoryFollowUp:
		return true
	}
	return false
}

// Priority is the rule-based urgency level
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PrioritiesByUrgency lists priorities from most to least urgent.
// Tie-breaking between equal keyword counts favors the earlier entry.
func PrioritiesByUrgency() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
}

// NeutralConfidence is assigned when no signal supports a decision
const NeutralConfidence = 0.5

// Classification carries the category decision and the rule-based
// priority, each with its own confidence in [0,1].
type Classification struct {
	Category           Category             `json:"category"`
	CategoryConfidence float64              `json:"category_confidence"`
	Distribution       map[Category]float64 `json:"distribution,omitempty"`
	Priority           Priority             `json:"priority"`
	PriorityConfidence float64              `json:"priority_confidence"`
}
