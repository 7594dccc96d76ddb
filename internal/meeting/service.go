// Package meeting builds calendar events with auto-generated Meet links.
package meeting

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/meetcal/meetsync/internal/apperr"
	"github.com/meetcal/meetsync/internal/config"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

// Meeting is the result of a successful event creation.
type Meeting struct {
	MeetLink string `json:"meetLink"`
	EventID  string `json:"eventId"`
	HTMLLink string `json:"htmlLink,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// EventInserter submits an event to the calendar provider.
type EventInserter interface {
	InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
}

// InserterFactory builds an EventInserter bound to the given credentials.
type InserterFactory func(ctx context.Context, creds *oauth2.Token) (EventInserter, error)

// Service validates meeting requests and turns them into calendar events.
type Service struct {
	cfg         *config.Config
	newInserter InserterFactory
	now         func() time.Time
}

// NewService creates a Service backed by the Google Calendar API.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:         cfg,
		newInserter: googleInserterFactory(cfg),
		now:         time.Now,
	}
}

// CreateMeeting validates req, creates the event with conferencing data and
// returns the Meet join link. Provider errors are wrapped with the
// underlying message preserved; no retries are attempted here.
func (s *Service) CreateMeeting(ctx context.Context, creds *oauth2.Token, req *Request) (*Meeting, error) {
	start, end, err := validate(req)
	if err != nil {
		return nil, err
	}

	if lead := s.cfg.Policy.MinLeadTime; lead > 0 {
		now := s.now()
		earliest := now.Add(lead)
		if start.Before(earliest) {
			return nil, apperr.Newf(apperr.CodeValidation,
				"startTime must be at least %s in the future", lead).
				WithDetail("serverTime", now.Format(time.RFC3339)).
				WithDetail("earliestStart", earliest.Format(time.RFC3339))
		}
	}

	event, err := s.buildEvent(req, start, end)
	if err != nil {
		return nil, err
	}

	inserter, err := s.newInserter(ctx, creds)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProvider, "failed to create calendar client", err)
	}

	created, err := inserter.InsertEvent(ctx, event)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProvider, "event creation failed", err)
	}

	link := extractMeetLink(created)
	if link == "" {
		// The event exists but has no join link; surfaced distinctly so
		// callers can tell this apart from "event was never created".
		return nil, apperr.Newf(apperr.CodeConferenceLinkMissing,
			"event %s created but provider returned no conference link", created.Id)
	}

	log.Printf("📅 Created meeting %s (%s)", created.Id, link)
	return &Meeting{
		MeetLink: link,
		EventID:  created.Id,
		HTMLLink: created.HtmlLink,
		Start:    start.Format(time.RFC3339),
		End:      end.Format(time.RFC3339),
	}, nil
}

func (s *Service) buildEvent(req *Request, start, end time.Time) (*calendar.Event, error) {
	zone := s.cfg.Policy.Timezone
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}

	attendees := make([]*calendar.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.In(loc).Format(time.RFC3339),
			TimeZone: zone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.In(loc).Format(time.RFC3339),
			TimeZone: zone,
		},
		Attendees: attendees,
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				// Fresh ID per call: caller retries are not deduplicated
				// by the provider.
				RequestId: uuid.New().String(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
	}

	if rem := s.cfg.Policy.Reminders; rem.Enabled {
		event.Reminders = &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: rem.EmailMinutes},
				{Method: "popup", Minutes: rem.PopupMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		}
	}

	return event, nil
}

// extractMeetLink pulls the join URL from the created event, preferring
// HangoutLink and falling back to the video entry point.
func extractMeetLink(event *calendar.Event) string {
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData != nil {
		for _, entry := range event.ConferenceData.EntryPoints {
			if entry.EntryPointType == "video" && entry.Uri != "" {
				return entry.Uri
			}
		}
	}
	return ""
}
