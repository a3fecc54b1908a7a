package respond

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

type fakeCompletion struct {
	content    string
	err        error
	lastPrompt string
	lastReq    out.CompletionRequest
	calls      int
}

func (f *fakeCompletion) Complete(ctx context.Context, req out.CompletionRequest) (string, error) {
	f.calls++
	f.lastPrompt = req.Prompt
	f.lastReq = req
	return f.content, f.err
}

type fakeKnowledge struct {
	articles  []domain.Article
	err       error
	lastQuery string
	calls     int
}

func (f *fakeKnowledge) Search(ctx context.Context, query string, limit int, minRelevance float64) ([]domain.Article, error) {
	f.calls++
	f.lastQuery = query
	return f.articles, f.err
}

type fakeCalendar struct {
	busy      []out.BusyInterval
	busyErr   error
	createErr error
	eventID   string
	created   []*domain.EventDraft
}

func (f *fakeCalendar) FreeBusy(ctx context.Context, from, to time.Time) ([]out.BusyInterval, error) {
	return f.busy, f.busyErr
}

func (f *fakeCalendar) CreateDraftEvent(ctx context.Context, event *domain.EventDraft) (string, error) {
	f.created = append(f.created, event)
	return f.eventID, f.createErr
}

type fakeHistory struct {
	history *domain.ConversationHistory
	err     error
}

func (f *fakeHistory) Recent(ctx context.Context, sender string, limit int) (*domain.ConversationHistory, error) {
	return f.history, f.err
}

func (f *fakeHistory) Append(ctx context.Context, sender, conversationID, content string, at time.Time) error {
	return nil
}

func testEmail(subject, body string) *domain.NormalizedEmail {
	return &domain.NormalizedEmail{
		InboundMessage: domain.InboundMessage{
			MessageID:  "msg-1",
			Sender:     "jane.doe@example.com",
			Subject:    subject,
			Body:       body,
			ReceivedAt: time.Now().UTC(),
		},
		CleanedBody: body,
	}
}

func TestInquiryResponder(t *testing.T) {
	llm := &fakeCompletion{content: "Our premium plan costs $42 per month."}
	r := NewInquiryResponder(llm, zerolog.Nop())

	draft, err := r.Generate(context.Background(), testEmail("Pricing question", "How much is premium?"), &domain.Classification{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if draft.Type != domain.CategoryInquiry {
		t.Errorf("draft type = %s", draft.Type)
	}
	if llm.lastReq.MaxTokens != inquiryMaxTokens || llm.lastReq.Temperature != inquiryTemperature {
		t.Errorf("generation params = (%d, %v), want (%d, %v)",
			llm.lastReq.MaxTokens, llm.lastReq.Temperature, inquiryMaxTokens, inquiryTemperature)
	}
	if ExtractContent(draft.Body) != llm.content {
		t.Errorf("draft body does not round-trip generated content: %q", draft.Body)
	}
}

func TestSupportResponder(t *testing.T) {
	kb := &fakeKnowledge{articles: []domain.Article{
		{ID: "kb-1", Title: "Login troubleshooting", Content: "Reset your password from the login page.", Relevance: 0.9},
	}}
	llm := &fakeCompletion{content: "1. Open the login page.\n2. Click forgot password."}
	r := NewSupportResponder(llm, kb, nil, zerolog.Nop())

	draft, err := r.Generate(context.Background(), testEmail("Cannot login to account", "I cannot log in to my account."), &domain.Classification{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if kb.calls != 1 {
		t.Errorf("knowledge base calls = %d, want 1", kb.calls)
	}
	if !strings.HasPrefix(draft.TicketID, "TICKET-") {
		t.Errorf("ticket id = %q, want TICKET- prefix", draft.TicketID)
	}
	if !strings.Contains(draft.Body, "Ticket reference: "+draft.TicketID) {
		t.Errorf("draft body missing ticket reference: %q", draft.Body)
	}
	if !strings.Contains(llm.lastPrompt, "Login troubleshooting") {
		t.Error("knowledge base article not included in prompt")
	}
	if !strings.Contains(llm.lastPrompt, "step-by-step") {
		t.Error("prompt does not ask for step-by-step instructions")
	}
}

// A knowledge-base outage degrades to an articleless reply, it never
// fails the response.
func TestSupportResponderDegradesOnKBFailure(t *testing.T) {
	kb := &fakeKnowledge{err: errors.New("mongo: connection refused")}
	llm := &fakeCompletion{content: "Try resetting your password."}
	r := NewSupportResponder(llm, kb, nil, zerolog.Nop())

	draft, err := r.Generate(context.Background(), testEmail("Help", "Broken login"), &domain.Classification{})
	if err != nil {
		t.Fatalf("Generate() error = %v, want degraded success", err)
	}
	if draft.TicketID == "" {
		t.Error("ticket id missing on degraded path")
	}
	if strings.Contains(llm.lastPrompt, "knowledge base articles") {
		t.Error("degraded prompt should not list articles")
	}
}

func TestNewTicketID(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	id := NewTicketID(now)
	if !strings.HasPrefix(id, "TICKET-20260105-090000-") {
		t.Errorf("ticket id = %q", id)
	}
	if id == NewTicketID(now) {
		t.Error("ticket ids for the same second must still differ")
	}
}

func TestMeetingResponderSlots(t *testing.T) {
	day := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	// Two busy intervals on the first candidate day
	calendar := &fakeCalendar{busy: []out.BusyInterval{
		{Start: time.Date(next.Year(), next.Month(), next.Day(), 9, 0, 0, 0, time.UTC),
			End: time.Date(next.Year(), next.Month(), next.Day(), 11, 0, 0, 0, time.UTC)},
		{Start: time.Date(next.Year(), next.Month(), next.Day(), 13, 0, 0, 0, time.UTC),
			End: time.Date(next.Year(), next.Month(), next.Day(), 14, 30, 0, 0, time.UTC)},
	}}
	llm := &fakeCompletion{content: "Happy to meet at any of the listed times."}

	r := NewMeetingResponder(llm, calendar, zerolog.Nop())
	r.now = func() time.Time { return day }

	draft, err := r.Generate(context.Background(), testEmail("Meeting request", "Can we meet this week?"), &domain.Classification{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(draft.Slots) == 0 || len(draft.Slots) > maxProposedSlots {
		t.Fatalf("slots = %d, want 1..%d", len(draft.Slots), maxProposedSlots)
	}
	for _, slot := range draft.Slots {
		if slot.End.Sub(slot.Start) != defaultMeetingDuration {
			t.Errorf("slot %v has wrong duration", slot)
		}
		for _, busy := range calendar.busy {
			if slot.Start.Before(busy.End) && busy.Start.Before(slot.End) {
				t.Errorf("slot %v overlaps busy interval %v", slot, busy)
			}
		}
	}

	if draft.Event == nil {
		t.Fatal("no event draft for earliest slot")
	}
	if !draft.Event.Start.Equal(draft.Slots[0].Start) {
		t.Errorf("event start = %v, want earliest slot %v", draft.Event.Start, draft.Slots[0].Start)
	}
	if len(calendar.created) != 0 {
		t.Error("responder must not create the event, only build its payload")
	}
}

func TestMeetingResponderCalendarUnavailable(t *testing.T) {
	calendar := &fakeCalendar{busyErr: errors.New("calendar api down")}
	llm := &fakeCompletion{content: "irrelevant"}
	r := NewMeetingResponder(llm, calendar, zerolog.Nop())

	_, err := r.Generate(context.Background(), testEmail("Meeting", "When?"), &domain.Classification{})
	if err == nil {
		t.Fatal("Generate() expected error when calendar is unavailable")
	}
	if apperr.CodeOf(err) != apperr.CodeCalendarUnavailable {
		t.Errorf("error code = %s, want %s", apperr.CodeOf(err), apperr.CodeCalendarUnavailable)
	}
	if llm.calls != 0 {
		t.Error("generation must not run without availability data")
	}
}

func TestFreeSlots(t *testing.T) {
	window := domain.TimeSlot{
		Start: time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 6, 17, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name      string
		busy      []out.BusyInterval
		wantCount int
	}{
		{name: "empty calendar fills the window", busy: nil, wantCount: 8},
		{
			name: "fully busy day yields nothing",
			busy: []out.BusyInterval{{Start: window.Start, End: window.End}},
		},
		{
			name: "gap shorter than duration is skipped",
			busy: []out.BusyInterval{
				{Start: time.Date(2026, 1, 6, 9, 30, 0, 0, time.UTC), End: time.Date(2026, 1, 6, 16, 30, 0, 0, time.UTC)},
			},
		},
		{
			name: "unsorted overlapping intervals",
			busy: []out.BusyInterval{
				{Start: time.Date(2026, 1, 6, 14, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 6, 15, 0, 0, 0, time.UTC)},
				{Start: time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)},
				{Start: time.Date(2026, 1, 6, 13, 30, 0, 0, time.UTC), End: time.Date(2026, 1, 6, 14, 30, 0, 0, time.UTC)},
			},
			wantCount: 5, // 10-13 and 15-17
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := FreeSlots(window, tt.busy, time.Hour)
			if len(slots) != tt.wantCount {
				t.Fatalf("FreeSlots() = %d slots, want %d: %v", len(slots), tt.wantCount, slots)
			}
			for _, slot := range slots {
				if slot.Start.Before(window.Start) || slot.End.After(window.End) {
					t.Errorf("slot %v outside window", slot)
				}
				for _, busy := range tt.busy {
					if slot.Start.Before(busy.End) && busy.Start.Before(slot.End) {
						t.Errorf("slot %v overlaps busy %v", slot, busy)
					}
				}
			}
		})
	}
}

func TestFollowUpResponder(t *testing.T) {
	lastWeek := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	history := &fakeHistory{history: &domain.ConversationHistory{
		ConversationID: "conv-42",
		Messages: []domain.HistoryMessage{
			{Content: "We migrated your data.", Timestamp: lastWeek},
		},
	}}
	llm := &fakeCompletion{content: "The migration completed successfully."}

	r := NewFollowUpResponder(llm, history, nil, zerolog.Nop())
	draft, err := r.Generate(context.Background(), testEmail("Re: migration", "Any update on the migration?"), &domain.Classification{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if draft.ConversationID != "conv-42" {
		t.Errorf("conversation id = %q", draft.ConversationID)
	}
	if !strings.Contains(draft.Body, "Regarding our previous conversation on January 2, 2026") {
		t.Errorf("draft body missing conversation reference: %q", draft.Body)
	}
	if !strings.Contains(llm.lastPrompt, "We migrated your data.") {
		t.Error("history context not included in prompt")
	}
}

// History outages degrade to a contextless reply.
func TestFollowUpResponderDegradesOnHistoryFailure(t *testing.T) {
	history := &fakeHistory{err: errors.New("redis: connection refused")}
	llm := &fakeCompletion{content: "Could you share more details?"}

	r := NewFollowUpResponder(llm, history, nil, zerolog.Nop())
	draft, err := r.Generate(context.Background(), testEmail("Re: issue", "Following up on my issue"), &domain.Classification{})
	if err != nil {
		t.Fatalf("Generate() error = %v, want degraded success", err)
	}
	if draft.ConversationID != "" {
		t.Errorf("conversation id = %q, want empty on degraded path", draft.ConversationID)
	}
	if strings.Contains(draft.Body, "Regarding our previous conversation") {
		t.Error("degraded reply must not carry a conversation reference")
	}
}

func TestResponderGenerationError(t *testing.T) {
	llm := &fakeCompletion{err: errors.New("model overloaded")}
	r := NewInquiryResponder(llm, zerolog.Nop())

	_, err := r.Generate(context.Background(), testEmail("Q", "question"), &domain.Classification{})
	if err == nil {
		t.Fatal("Generate() expected error")
	}
	if apperr.CodeOf(err) != apperr.CodeGenerationError {
		t.Errorf("error code = %s, want %s", apperr.CodeOf(err), apperr.CodeGenerationError)
	}
}
