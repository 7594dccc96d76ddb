package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/meetcal/meetsync/internal/auth/google"
	"github.com/meetcal/meetsync/internal/auth/state"
	"github.com/meetcal/meetsync/internal/auth/token"
	"github.com/meetcal/meetsync/internal/config"
	"github.com/meetcal/meetsync/internal/db"
	"github.com/meetcal/meetsync/internal/logging"
	"github.com/meetcal/meetsync/internal/meeting"
	"github.com/meetcal/meetsync/internal/server/handlers"
	"github.com/meetcal/meetsync/internal/version"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	policyPath := os.Getenv("MEETSYNC_POLICY")
	if policyPath == "" {
		policyPath = "meetsync.yaml"
	}
	cfg, err := config.Load(policyPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	store := db.NewStore(database)

	states := state.NewStore(cfg.Policy.StateTTL)
	states.StartSweep(cfg.Policy.StateSweepInterval)
	defer states.Stop()

	tokenManager := token.NewManager(store, cfg)
	meetings := meeting.NewService(cfg)

	// Create router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(logging.RequestIDMiddleware)

	// Optional admin auth for the inspection endpoint
	adminPassword := os.Getenv("MEETSYNC_ADMIN_PASSWORD")
	optionalAdminAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminPassword == "" {
				next.ServeHTTP(w, r)
				return
			}
			_, pass, ok := r.BasicAuth()
			if !ok || pass != adminPassword {
				w.Header().Set("WWW-Authenticate", `Basic realm="MeetSync Admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(store))

		// OAuth flow
		r.Get("/login", google.HandleLogin(cfg, states))
		r.Get("/oauth2callback", google.HandleCallback(cfg, store, states))

		// Meeting creation
		r.Post("/create-meeting", handlers.CreateMeetingHandler(cfg, tokenManager, meetings))

		// Token inspection (protected if MEETSYNC_ADMIN_PASSWORD is set)
		r.With(optionalAdminAuth).Get("/token-status", handlers.TokenStatusHandler(cfg, store, tokenManager))
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 MeetSync %s starting on http://%s", version.Version, cfg.Addr())
	log.Printf("🔑 Login: http://%s/api/login", cfg.Addr())
	log.Printf("📅 Create meeting: POST http://%s/api/create-meeting", cfg.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case <-ctx.Done():
		log.Println("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️ Shutdown error: %v", err)
		}
	}
}
