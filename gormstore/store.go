// Package gormstore persists users in Postgres through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fintrackhq/authkit"
)

// userModel is the GORM mapping for the users table. Email carries a unique
// index; the database is the final arbiter on duplicates, not the
// application-level check.
type userModel struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

// Store implements authkit.UserStore on a GORM connection.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the users table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing GORM connection, migrating the users table.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gormstore: nil db")
	}
	if err := db.AutoMigrate(&userModel{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Create(ctx context.Context, user authkit.NewUser) (*authkit.User, error) {
	record := userModel{
		ID:           uuid.NewString(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, authkit.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("gormstore: create: %w", err)
	}
	return toUser(&record), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*authkit.User, error) {
	var record userModel
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authkit.ErrUserNotFound
		}
		return nil, fmt.Errorf("gormstore: get by email: %w", err)
	}
	return toUser(&record), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*authkit.User, error) {
	var record userModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authkit.ErrUserNotFound
		}
		return nil, fmt.Errorf("gormstore: get by id: %w", err)
	}
	return toUser(&record), nil
}

func toUser(m *userModel) *authkit.User {
	return &authkit.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// isUniqueViolation matches Postgres unique-constraint failures. GORM wraps
// the driver error, so the check falls back to the SQLSTATE in the message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "duplicate key value")
}
