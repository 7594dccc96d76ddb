package models

import "time"

// TokenRecord stores the OAuth credential set for one user identity.
// UserID is the primary key, so the store holds at most one record per
// identity and gorm's Save gives upsert semantics.
type TokenRecord struct {
	UserID       string `gorm:"primaryKey"`
	AccessToken  string
	RefreshToken string // empty means refresh is impossible
	Expiry       time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
