package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/meetcal/meetsync/internal/apperr"
	"github.com/meetcal/meetsync/internal/auth/token"
	"github.com/meetcal/meetsync/internal/config"
	"github.com/meetcal/meetsync/internal/logging"
	"github.com/meetcal/meetsync/internal/meeting"
)

// CreateMeetingHandler creates a calendar event with a Meet link using the
// stored credentials for the configured identity.
func CreateMeetingHandler(cfg *config.Config, mgr *token.Manager, svc *meeting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req meeting.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteHTTP(w, apperr.Wrap(apperr.CodeValidation, "invalid JSON body", err), !cfg.IsRelease())
			return
		}

		creds, err := mgr.ObtainValidCredentials(r.Context(), config.DefaultUserIdentity)
		if err != nil {
			apperr.WriteHTTP(w, err, !cfg.IsRelease())
			return
		}

		result, err := svc.CreateMeeting(r.Context(), creds, &req)
		if err != nil {
			log.Printf("❌ [%s] create-meeting failed: %v", logging.GetRequestID(r.Context()), err)
			apperr.WriteHTTP(w, err, !cfg.IsRelease())
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
