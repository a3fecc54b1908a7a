package out

import (
	"context"
	"time"

	"github.com/clouderp-code/email-processor/core/domain"
)

// BusyInterval is a window already occupied on the calendar
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// CalendarPort exposes availability lookup and tentative event creation
type CalendarPort interface {
	// FreeBusy returns the busy intervals between from and to
	FreeBusy(ctx context.Context, from, to time.Time) ([]BusyInterval, error)

	// CreateDraftEvent creates a tentative event and returns its id
	CreateDraftEvent(ctx context.Context, event *domain.EventDraft) (string, error)
}
