package domain

import "time"

// Article is a knowledge-base document matched against a support request
type Article struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// HistoryMessage is one prior message in a conversation thread
type HistoryMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationHistory is the recent thread context for a sender
type ConversationHistory struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []HistoryMessage `json:"messages"`
}

// TimeSlot is a proposed meeting window
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventDraft is the tentative calendar event built for the earliest
// proposed slot. It is created only at publish time.
type EventDraft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// ResponseDraft is a generated reply ready for publishing
type ResponseDraft struct {
	Type Category `json:"type"`
	Body string   `json:"body"`

	// Category-specific payload
	TicketID       string      `json:"ticket_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Slots          []TimeSlot  `json:"slots,omitempty"`
	Event          *EventDraft `json:"event,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
