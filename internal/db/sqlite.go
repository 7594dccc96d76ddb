package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/meetcal/meetsync/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrTokenNotFound is returned when no token record exists for an identity.
var ErrTokenNotFound = errors.New("token record not found")

// InitDB initializes the SQLite database connection and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.TokenRecord{}); err != nil {
		return nil, err
	}

	return db, nil
}

// Store wraps the database with token-record operations.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over an initialized database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetToken loads the token record for userID.
// Returns ErrTokenNotFound when no record exists.
func (s *Store) GetToken(ctx context.Context, userID string) (*models.TokenRecord, error) {
	var record models.TokenRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("load token record: %w", err)
	}
	return &record, nil
}

// UpsertToken writes the record, overwriting any existing row for the
// same identity.
func (s *Store) UpsertToken(ctx context.Context, record *models.TokenRecord) error {
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("save token record: %w", err)
	}
	return nil
}

// Ping checks connectivity to the underlying database.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
