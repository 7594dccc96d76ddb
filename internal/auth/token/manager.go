// Package token owns the credential lifecycle: expiry detection, refresh
// and persistence of refreshed tokens.
package token

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/meetcal/meetsync/internal/apperr"
	"github.com/meetcal/meetsync/internal/auth/google"
	"github.com/meetcal/meetsync/internal/config"
	"github.com/meetcal/meetsync/internal/db"
	"github.com/meetcal/meetsync/internal/db/models"
	"golang.org/x/oauth2"
)

// Manager hands out valid credentials, refreshing and persisting them
// when the stored token is stale.
type Manager struct {
	store *db.Store
	cfg   *config.Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now     func() time.Time
	refresh func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// NewManager creates a Manager over the credential store.
func NewManager(store *db.Store, cfg *config.Config) *Manager {
	m := &Manager{
		store: store,
		cfg:   cfg,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
	m.refresh = m.refreshViaProvider
	return m
}

// ObtainValidCredentials returns usable credentials for userID.
//
// A token is treated as stale once now >= expiry - grace, so a token that
// would expire mid-flight during the subsequent calendar call is refreshed
// up front. The stored record is only written on a successful refresh.
func (m *Manager) ObtainValidCredentials(ctx context.Context, userID string) (*oauth2.Token, error) {
	// Serialize refresh-and-persist per identity so concurrent requests
	// observing the same stale token do not race duplicate refreshes.
	lock := m.identityLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := m.store.GetToken(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrTokenNotFound) {
			return nil, apperr.Wrap(apperr.CodeAuthRequired, "not authenticated, visit /api/login", err)
		}
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, "failed to load credentials", err)
	}

	if !m.isStale(record.Expiry) {
		return tokenFromRecord(record), nil
	}

	if record.RefreshToken == "" {
		return nil, apperr.New(apperr.CodeAuthRequired, "token expired and no refresh token available, re-login required")
	}

	newToken, err := m.refresh(ctx, record.RefreshToken)
	if err != nil {
		if isPermanentRefreshError(err) {
			log.Printf("🔒 Refresh rejected for %s, re-login required: %v", userID, err)
		} else {
			log.Printf("❌ Refresh failed for %s: %v", userID, err)
		}
		return nil, apperr.Wrap(apperr.CodeSessionExpired, "session expired, re-login required", err)
	}

	record.AccessToken = newToken.AccessToken
	record.Expiry = newToken.Expiry
	if m.cfg.Policy.FixedTokenLifetime > 0 {
		record.Expiry = m.now().Add(m.cfg.Policy.FixedTokenLifetime)
	}
	// Persist rotated refresh token if provided (RFC 6749 compliance)
	if newToken.RefreshToken != "" && newToken.RefreshToken != record.RefreshToken {
		log.Printf("🔄 Rotating refresh token for: %s", userID)
		record.RefreshToken = newToken.RefreshToken
	}

	if err := m.store.UpsertToken(ctx, record); err != nil {
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, "failed to persist refreshed token", err)
	}

	log.Printf("✅ Refreshed token for %s (expires: %s)", userID, record.Expiry.Format(time.RFC3339))
	return tokenFromRecord(record), nil
}

// IsStale reports whether a token with the given expiry needs a refresh.
func (m *Manager) IsStale(expiry time.Time) bool {
	return m.isStale(expiry)
}

func (m *Manager) isStale(expiry time.Time) bool {
	return !expiry.After(m.now().Add(m.cfg.Policy.GracePeriod))
}

func (m *Manager) identityLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}

func (m *Manager) refreshViaProvider(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	oauthCfg := google.GetOAuthConfig(m.cfg, "")
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return source.Token()
}

func tokenFromRecord(record *models.TokenRecord) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		Expiry:       record.Expiry,
		TokenType:    "Bearer",
	}
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
