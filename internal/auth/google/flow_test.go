package google

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/meetcal/meetsync/internal/auth/state"
	"github.com/meetcal/meetsync/internal/config"
	"github.com/meetcal/meetsync/internal/db"
	"github.com/meetcal/meetsync/internal/db/models"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.TokenRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db.NewStore(gdb)
}

func testConfig() *config.Config {
	return &config.Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		Policy:             config.DefaultPolicy(),
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var parsed struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("failed to decode error body %s: %v", body, err)
	}
	return parsed.Error.Code
}

func TestHandleLogin_RedirectsToConsentWithState(t *testing.T) {
	cfg := testConfig()
	states := state.NewStore(10 * time.Minute)

	req := httptest.NewRequest("GET", "http://localhost:8080/api/login", nil)
	rec := httptest.NewRecorder()

	HandleLogin(cfg, states)(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("invalid redirect location: %v", err)
	}
	if location.Host != "accounts.google.com" {
		t.Fatalf("expected redirect to Google, got %s", location.Host)
	}

	query := location.Query()
	if query.Get("access_type") != "offline" {
		t.Fatal("expected access_type=offline")
	}
	if !strings.Contains(query.Get("scope"), "calendar.events") {
		t.Fatalf("expected calendar scope, got %q", query.Get("scope"))
	}

	// The embedded state must be consumable exactly once.
	stateValue := query.Get("state")
	if stateValue == "" {
		t.Fatal("expected state parameter in consent URL")
	}
	if err := states.Consume(stateValue); err != nil {
		t.Fatalf("issued state not consumable: %v", err)
	}
}

func TestHandleLogin_MisconfiguredClientIs500(t *testing.T) {
	cfg := &config.Config{Policy: config.DefaultPolicy()}
	states := state.NewStore(10 * time.Minute)

	req := httptest.NewRequest("GET", "http://localhost:8080/api/login", nil)
	rec := httptest.NewRecorder()

	HandleLogin(cfg, states)(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandleCallback_MissingStateIs400(t *testing.T) {
	cfg := testConfig()
	store := newTestStore(t)
	states := state.NewStore(10 * time.Minute)

	req := httptest.NewRequest("GET", "/api/oauth2callback?code=xyz", nil)
	rec := httptest.NewRecorder()

	HandleCallback(cfg, store, states)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "validation_error" {
		t.Fatalf("expected validation_error, got %s", code)
	}
}

func TestHandleCallback_UnknownStateIs400(t *testing.T) {
	cfg := testConfig()
	store := newTestStore(t)
	states := state.NewStore(10 * time.Minute)

	req := httptest.NewRequest("GET", "/api/oauth2callback?code=xyz&state=forged", nil)
	rec := httptest.NewRecorder()

	HandleCallback(cfg, store, states)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for forged state, got %d", rec.Code)
	}
}

func TestHandleCallback_StateIsSingleUse(t *testing.T) {
	cfg := testConfig()
	store := newTestStore(t)
	states := state.NewStore(10 * time.Minute)

	value := states.Issue()

	// First use: state passes, missing code stops the flow afterwards.
	req := httptest.NewRequest("GET", "/api/oauth2callback?state="+value, nil)
	rec := httptest.NewRecorder()
	HandleCallback(cfg, store, states)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing code, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authorization code") {
		t.Fatalf("expected missing-code message, got %s", rec.Body.String())
	}

	// Second use of the same state: rejected as invalid.
	rec = httptest.NewRecorder()
	HandleCallback(cfg, store, states)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for replayed state, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid state") {
		t.Fatalf("expected invalid-state message, got %s", rec.Body.String())
	}
}

func TestCallbackURL_DerivedFromRequest(t *testing.T) {
	cfg := testConfig()

	req := httptest.NewRequest("GET", "http://example.com:9999/api/login", nil)
	if got := CallbackURL(cfg, req); got != "http://example.com:9999/api/oauth2callback" {
		t.Fatalf("unexpected derived callback URL: %s", got)
	}

	req.Header.Set("X-Forwarded-Proto", "https")
	if got := CallbackURL(cfg, req); !strings.HasPrefix(got, "https://") {
		t.Fatalf("expected https behind proxy, got %s", got)
	}

	cfg.RedirectURL = "https://fixed.example.com/cb"
	if got := CallbackURL(cfg, req); got != "https://fixed.example.com/cb" {
		t.Fatalf("configured redirect not honored: %s", got)
	}
}
