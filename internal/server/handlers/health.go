package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/meetcal/meetsync/internal/db"
)

type healthResponse struct {
	Status    string `json:"status"`
	DBStatus  string `json:"dbStatus"`
	Timestamp string `json:"timestamp"`
}

// HealthHandler reports liveness and store connectivity. It always
// answers 200; a broken store shows up in dbStatus, not the status code.
func HealthHandler(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		dbStatus := "connected"
		if err := store.Ping(ctx); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
		}

		writeJSON(w, http.StatusOK, healthResponse{
			Status:    status,
			DBStatus:  dbStatus,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
