package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
)

// GoogleConfig carries the OAuth credentials for the Google adapters.
// The refresh token belongs to the single processing account.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CalendarID   string
}

// GoogleCalendarAdapter implements the calendar port on the Google
// Calendar API.
type GoogleCalendarAdapter struct {
	tokenSource oauth2.TokenSource
	calendarID  string
	log         zerolog.Logger
}

func NewGoogleCalendarAdapter(cfg *GoogleConfig, log zerolog.Logger) *GoogleCalendarAdapter {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleCalendarAdapter{
		tokenSource: oauthCfg.TokenSource(context.Background(), token),
		calendarID:  calendarID,
		log:         log,
	}
}

func (a *GoogleCalendarAdapter) service(ctx context.Context) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(a.tokenSource))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// FreeBusy queries busy intervals on the processing account's calendar.
func (a *GoogleCalendarAdapter) FreeBusy(ctx context.Context, from, to time.Time) ([]out.BusyInterval, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: a.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[a.calendarID]
	if !ok {
		return nil, nil
	}

	intervals := make([]out.BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("parse busy start %q: %w", period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("parse busy end %q: %w", period.End, err)
		}
		intervals = append(intervals, out.BusyInterval{Start: start, End: end})
	}
	return intervals, nil
}

// CreateDraftEvent inserts a tentative event and returns its id.
func (a *GoogleCalendarAdapter) CreateDraftEvent(ctx context.Context, event *domain.EventDraft) (string, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return "", err
	}

	attendees := make([]*calendar.EventAttendee, 0, len(event.Attendees))
	for _, email := range event.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := svc.Events.Insert(a.calendarID, &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Status:      "tentative",
		Start:       &calendar.EventDateTime{DateTime: event.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: event.End.Format(time.RFC3339)},
		Attendees:   attendees,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	a.log.Debug().
		Str("event_id", created.Id).
		Time("start", event.Start).
		Msg("[GoogleCalendarAdapter.CreateDraftEvent] tentative event created")
	return created.Id, nil
}
