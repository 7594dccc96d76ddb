package meeting

import (
	"context"
	"fmt"

	"github.com/meetcal/meetsync/internal/auth/google"
	"github.com/meetcal/meetsync/internal/config"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// googleInserter wraps the Calendar API service for the primary calendar.
type googleInserter struct {
	svc *calendar.Service
}

func (g *googleInserter) InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	return g.svc.Events.Insert("primary", event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
}

// googleInserterFactory builds a Calendar API client per call from the
// credentials passed in; no token is held in shared state.
func googleInserterFactory(cfg *config.Config) InserterFactory {
	return func(ctx context.Context, creds *oauth2.Token) (EventInserter, error) {
		if creds == nil {
			return nil, fmt.Errorf("credentials cannot be nil")
		}

		client := google.GetOAuthConfig(cfg, "").Client(ctx, creds)
		svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("failed to create calendar service: %w", err)
		}
		return &googleInserter{svc: svc}, nil
	}
}
