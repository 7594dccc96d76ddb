// Package google implements the OAuth2 authorization flow against Google,
// from consent redirect through code exchange and token persistence.
package google

import (
	"fmt"
	"net/http"

	"github.com/meetcal/meetsync/internal/config"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// Scopes required for creating calendar events with conferencing data.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar.events",
}

// GetOAuthConfig returns the OAuth2 config for Google authentication.
// redirectURL overrides the configured redirect when non-empty.
func GetOAuthConfig(cfg *config.Config, redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		redirectURL = cfg.RedirectURL
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     googleOAuth.Endpoint,
	}
}

// CallbackURL constructs the redirect URL for the OAuth callback.
// When no redirect is configured it is derived from the inbound request,
// honoring X-Forwarded-Proto behind a proxy.
func CallbackURL(cfg *config.Config, r *http.Request) string {
	if cfg.RedirectURL != "" {
		return cfg.RedirectURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api/oauth2callback", scheme, r.Host)
}
