package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/meetcal/meetsync/internal/apperr"
	"github.com/meetcal/meetsync/internal/auth/token"
	"github.com/meetcal/meetsync/internal/config"
	"github.com/meetcal/meetsync/internal/db"
)

type tokenStatusResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsExpired       bool   `json:"isExpired"`
	ExpiresAt       string `json:"expiresAt,omitempty"`
	HasRefreshToken bool   `json:"hasRefreshToken"`
	LastUpdated     string `json:"lastUpdated,omitempty"`
}

// TokenStatusHandler inspects the stored token record without touching it.
func TokenStatusHandler(cfg *config.Config, store *db.Store, mgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := store.GetToken(r.Context(), config.DefaultUserIdentity)
		if err != nil {
			if errors.Is(err, db.ErrTokenNotFound) {
				writeJSON(w, http.StatusOK, tokenStatusResponse{IsAuthenticated: false})
				return
			}
			apperr.WriteHTTP(w, apperr.Wrap(apperr.CodeStoreUnavailable, "failed to load token record", err), !cfg.IsRelease())
			return
		}

		writeJSON(w, http.StatusOK, tokenStatusResponse{
			IsAuthenticated: true,
			IsExpired:       mgr.IsStale(record.Expiry),
			ExpiresAt:       record.Expiry.Format(time.RFC3339),
			HasRefreshToken: record.RefreshToken != "",
			LastUpdated:     record.UpdatedAt.Format(time.RFC3339),
		})
	}
}
