package google

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/meetcal/meetsync/internal/apperr"
	"github.com/meetcal/meetsync/internal/auth/state"
	"github.com/meetcal/meetsync/internal/config"
	"github.com/meetcal/meetsync/internal/db"
	"github.com/meetcal/meetsync/internal/db/models"
)

// HandleCallback processes the OAuth callback: it verifies the correlation
// state, exchanges the authorization code for tokens and persists them as
// the token record for the configured identity.
func HandleCallback(cfg *config.Config, store *db.Store, states *state.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateValue := r.URL.Query().Get("state")
		if stateValue == "" {
			apperr.WriteHTTP(w, apperr.New(apperr.CodeValidation, "missing state parameter"), !cfg.IsRelease())
			return
		}
		if err := states.Consume(stateValue); err != nil {
			msg := "invalid state token"
			if errors.Is(err, state.ErrExpiredState) {
				msg = "state token expired, restart login"
			}
			apperr.WriteHTTP(w, apperr.Wrap(apperr.CodeValidation, msg, err), !cfg.IsRelease())
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			apperr.WriteHTTP(w, apperr.New(apperr.CodeValidation, "missing authorization code"), !cfg.IsRelease())
			return
		}

		oauthCfg := GetOAuthConfig(cfg, CallbackURL(cfg, r))
		token, err := oauthCfg.Exchange(r.Context(), code)
		if err != nil {
			apperr.WriteHTTP(w, apperr.Wrap(apperr.CodeProvider, "token exchange failed", err), !cfg.IsRelease())
			return
		}

		expiry := token.Expiry
		if cfg.Policy.FixedTokenLifetime > 0 {
			expiry = time.Now().Add(cfg.Policy.FixedTokenLifetime)
		}

		record := &models.TokenRecord{
			UserID:       config.DefaultUserIdentity,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       expiry,
		}

		// Preserve bookkeeping and the old refresh token when Google omits
		// a new one on repeat consent.
		if existing, err := store.GetToken(r.Context(), record.UserID); err == nil {
			record.CreatedAt = existing.CreatedAt
			if record.RefreshToken == "" {
				record.RefreshToken = existing.RefreshToken
			}
		}

		if err := store.UpsertToken(r.Context(), record); err != nil {
			apperr.WriteHTTP(w, apperr.Wrap(apperr.CodeStoreUnavailable, "failed to save token", err), !cfg.IsRelease())
			return
		}

		log.Printf("✅ Authorized %s (token expires: %s)", record.UserID, expiry.Format(time.RFC3339))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Authorization Successful</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; }
		.success { color: #16a34a; }
	</style>
</head>
<body>
	<h1 class="success">✅ Authorization Successful</h1>
	<p>Calendar access granted. You can close this window and create meetings via the API.</p>
</body>
</html>`)
	}
}
