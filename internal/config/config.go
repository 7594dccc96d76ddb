// Package config loads service configuration from environment variables and
// an optional YAML policy file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultUserIdentity = "default-user"

	defaultGracePeriod = 5 * time.Minute
	defaultMinLeadTime = 2 * time.Minute
	defaultStateTTL    = 10 * time.Minute
	defaultStateSweep  = 5 * time.Minute
)

// Config is the full runtime configuration for the service.
type Config struct {
	Host               string
	Port               string
	DBPath             string
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	Mode               string // "release" suppresses internal error detail
	Policy             Policy
}

// Policy holds the tunable calendar and token rules. All fields have
// working defaults so the YAML file is optional.
type Policy struct {
	// Timezone is the IANA zone applied to event start/end times.
	Timezone string
	// GracePeriod is subtracted from token expiry when deciding staleness.
	GracePeriod time.Duration
	// MinLeadTime rejects meeting starts closer than this to now. Zero disables.
	MinLeadTime time.Duration
	// FixedTokenLifetime overrides provider expiry at token-issue time.
	// Zero trusts the provider-specified expiry.
	FixedTokenLifetime time.Duration
	StateTTL           time.Duration
	StateSweepInterval time.Duration
	Reminders          Reminders
}

// Reminders configures event reminder overrides.
type Reminders struct {
	Enabled      bool  `yaml:"enabled"`
	EmailMinutes int64 `yaml:"email_minutes"`
	PopupMinutes int64 `yaml:"popup_minutes"`
}

type filePolicy struct {
	Timezone           string     `yaml:"timezone"`
	GracePeriod        string     `yaml:"grace_period"`
	MinLeadTime        string     `yaml:"min_lead_time"`
	FixedTokenLifetime string     `yaml:"fixed_token_lifetime"`
	StateTTL           string     `yaml:"state_ttl"`
	StateSweepInterval string     `yaml:"state_sweep_interval"`
	Reminders          *Reminders `yaml:"reminders"`
}

// DefaultPolicy returns the policy used when no YAML file is present.
func DefaultPolicy() Policy {
	return Policy{
		Timezone:           "UTC",
		GracePeriod:        defaultGracePeriod,
		MinLeadTime:        defaultMinLeadTime,
		StateTTL:           defaultStateTTL,
		StateSweepInterval: defaultStateSweep,
		Reminders: Reminders{
			Enabled:      true,
			EmailMinutes: 30,
			PopupMinutes: 10,
		},
	}
}

// Load builds the configuration from environment variables, merging the
// policy file at policyPath when it exists.
func Load(policyPath string) (*Config, error) {
	cfg := &Config{
		Host:               getenvDefault("HOST", "127.0.0.1"),
		Port:               getenvDefault("PORT", "8080"),
		DBPath:             getenvDefault("MEETSYNC_DB", "meetsync.db"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:        os.Getenv("GOOGLE_REDIRECT_URL"),
		Mode:               os.Getenv("MEETSYNC_MODE"),
		Policy:             DefaultPolicy(),
	}

	if policyPath != "" {
		if _, err := os.Stat(policyPath); err == nil {
			policy, err := LoadPolicy(policyPath)
			if err != nil {
				return nil, err
			}
			cfg.Policy = *policy
		}
	}

	return cfg, nil
}

// LoadPolicy parses a YAML policy file, applying defaults for absent fields.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var raw filePolicy
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	policy := DefaultPolicy()
	if raw.Timezone != "" {
		policy.Timezone = raw.Timezone
	}
	if _, err := time.LoadLocation(policy.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", policy.Timezone, err)
	}
	if raw.Reminders != nil {
		policy.Reminders = *raw.Reminders
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"grace_period", raw.GracePeriod, &policy.GracePeriod},
		{"min_lead_time", raw.MinLeadTime, &policy.MinLeadTime},
		{"fixed_token_lifetime", raw.FixedTokenLifetime, &policy.FixedTokenLifetime},
		{"state_ttl", raw.StateTTL, &policy.StateTTL},
		{"state_sweep_interval", raw.StateSweepInterval, &policy.StateSweepInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}

	return &policy, nil
}

// IsRelease reports whether the service runs in release mode.
func (c *Config) IsRelease() bool {
	return c.Mode == "release"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
