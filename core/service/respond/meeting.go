package respond

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

const (
	meetingMaxTokens   = 600
	meetingTemperature = 0.7

	defaultMeetingDuration = 60 * time.Minute
	candidateDays          = 5
	maxProposedSlots       = 5
	workdayStartHour       = 9
	workdayEndHour         = 17
)

// MeetingResponder proposes available slots from the calendar and
// builds a tentative event payload for the earliest one.
type MeetingResponder struct {
	llm      out.CompletionPort
	calendar out.CalendarPort
	now      func() time.Time
	log      zerolog.Logger
}

func NewMeetingResponder(llm out.CompletionPort, calendar out.CalendarPort, log zerolog.Logger) *MeetingResponder {
	return &MeetingResponder{
		llm:      llm,
		calendar: calendar,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

func (r *MeetingResponder) Category() domain.Category {
	return domain.CategoryMeeting
}

func (r *MeetingResponder) Generate(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification) (*domain.ResponseDraft, error) {
	slots, err := r.proposeSlots(ctx)
	if err != nil {
		return nil, err
	}

	content, err := r.llm.Complete(ctx, out.CompletionRequest{
		Prompt:      r.buildPrompt(email, slots),
		MaxTokens:   meetingMaxTokens,
		Temperature: meetingTemperature,
	})
	if err != nil {
		return nil, apperr.GenerationError(err)
	}

	draft := &domain.ResponseDraft{
		Type:      domain.CategoryMeeting,
		Body:      RenderReply(email.Sender, content, formatSlotsReference(slots)),
		Slots:     slots,
		CreatedAt: time.Now().UTC(),
	}
	if len(slots) > 0 {
		draft.Event = &domain.EventDraft{
			Title:       "Meeting: " + email.Subject,
			Description: "Tentatively scheduled from email thread " + email.MessageID,
			Start:       slots[0].Start,
			End:         slots[0].End,
			Attendees:   []string{email.Sender},
		}
	}
	return draft, nil
}

// proposeSlots scans the next candidateDays working days for free
// default-length windows, capped at maxProposedSlots.
func (r *MeetingResponder) proposeSlots(ctx context.Context) ([]domain.TimeSlot, error) {
	now := r.now().UTC()

	var slots []domain.TimeSlot
	for day := 1; day <= candidateDays && len(slots) < maxProposedSlots; day++ {
		date := now.AddDate(0, 0, day)
		windowStart := time.Date(date.Year(), date.Month(), date.Day(), workdayStartHour, 0, 0, 0, time.UTC)
		windowEnd := time.Date(date.Year(), date.Month(), date.Day(), workdayEndHour, 0, 0, 0, time.UTC)

		busy, err := r.calendar.FreeBusy(ctx, windowStart, windowEnd)
		if err != nil {
			return nil, apperr.CalendarUnavailable(err)
		}

		free := FreeSlots(domain.TimeSlot{Start: windowStart, End: windowEnd}, busy, defaultMeetingDuration)
		for _, slot := range free {
			if len(slots) == maxProposedSlots {
				break
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// FreeSlots carves the window into consecutive duration-length slots
// that do not overlap any busy interval.
func FreeSlots(window domain.TimeSlot, busy []out.BusyInterval, duration time.Duration) []domain.TimeSlot {
	sorted := make([]out.BusyInterval, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var slots []domain.TimeSlot
	cursor := window.Start
	for _, interval := range sorted {
		if !interval.End.After(window.Start) || !interval.Start.Before(window.End) {
			continue
		}
		for !cursor.Add(duration).After(interval.Start) {
			slots = append(slots, domain.TimeSlot{Start: cursor, End: cursor.Add(duration)})
			cursor = cursor.Add(duration)
		}
		if interval.End.After(cursor) {
			cursor = interval.End
		}
	}
	for !cursor.Add(duration).After(window.End) {
		slots = append(slots, domain.TimeSlot{Start: cursor, End: cursor.Add(duration)})
		cursor = cursor.Add(duration)
	}
	return slots
}

func (r *MeetingResponder) buildPrompt(email *domain.NormalizedEmail, slots []domain.TimeSlot) string {
	var sb strings.Builder
	sb.WriteString("You are a scheduling assistant. Write a reply to the meeting request below, offering the listed time slots.\n\n")
	fmt.Fprintf(&sb, "Subject: %s\n\nMessage: %s\n", email.Subject, email.CleanedBody)

	if len(slots) == 0 {
		sb.WriteString("\nNo slots are available in the next few days; apologize and ask for alternatives.")
	} else {
		sb.WriteString("\nAvailable slots (UTC):\n")
		for _, slot := range slots {
			fmt.Fprintf(&sb, "- %s\n", formatSlot(slot))
		}
	}

	sb.WriteString("\nDo not include a greeting or signature.")
	return sb.String()
}

func formatSlotsReference(slots []domain.TimeSlot) string {
	if len(slots) == 0 {
		return ""
	}
	formatted := make([]string, len(slots))
	for i, slot := range slots {
		formatted[i] = formatSlot(slot)
	}
	return "Proposed meeting times: " + strings.Join(formatted, "; ")
}

func formatSlot(slot domain.TimeSlot) string {
	return fmt.Sprintf("%s to %s UTC",
		slot.Start.Format("Mon Jan 2 15:04"),
		slot.End.Format("15:04"))
}
