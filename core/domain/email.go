package domain

import "time"

// EntityKind identifies a kind of structured entity extracted from a body
type EntityKind string

const (
	EntityEmail EntityKind = "email"
	EntityPhone EntityKind = "phone"
	EntityURL   EntityKind = "url"
)

// Attachment describes an attachment without carrying its content
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// InboundMessage is the raw message metadata after header parsing
type InboundMessage struct {
	MessageID   string       `json:"message_id"`
	Sender      string       `json:"sender"`
	Recipients  []string     `json:"recipients,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReceivedAt  time.Time    `json:"received_at"`
}

// NormalizedEmail is the intake output: parsed metadata plus the cleaned
// body and extracted entities the downstream stages operate on.
type NormalizedEmail struct {
	InboundMessage

	CleanedBody string                  `json:"cleaned_body"`
	Entities    map[EntityKind][]string `json:"entities,omitempty"`
}
