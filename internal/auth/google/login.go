package google

import (
	"net/http"

	"github.com/meetcal/meetsync/internal/apperr"
	"github.com/meetcal/meetsync/internal/auth/state"
	"github.com/meetcal/meetsync/internal/config"
	"golang.org/x/oauth2"
)

// HandleLogin initiates the OAuth flow by redirecting to Google's consent page.
// A fresh correlation state value is minted per login so the callback can be
// bound to this redirect.
func HandleLogin(cfg *config.Config, states *state.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			apperr.WriteHTTP(w, apperr.New(apperr.CodeProvider,
				"OAuth client not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET"), !cfg.IsRelease())
			return
		}

		oauthCfg := GetOAuthConfig(cfg, CallbackURL(cfg, r))

		// AccessTypeOffline requests a refresh token; ApprovalForce makes
		// Google return one even for repeat consents.
		url := oauthCfg.AuthCodeURL(states.Issue(),
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce,
		)
		http.Redirect(w, r, url, http.StatusFound)
	}
}
