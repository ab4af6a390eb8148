// Package storage defines persistence contracts for user account state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested user record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// User stores one account with its presence fields.
//
// IsOnline and LastActiveAt are written by the chat presence layer on
// connect/disconnect and on inbound frame activity. They are durable hints
// for clients that are not connected; the in-process presence map stays
// authoritative for the running instance.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	IsActive     bool
	IsVerified   bool
	IsOnline     bool
	LastActiveAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VerificationCode stores one emailed signup verification code.
type VerificationCode struct {
	ID        int64
	UserID    int64
	Code      string
	IsUsed    bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserStore persists account records.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUserProfile(ctx context.Context, id int64, fullName string, phone string) (User, error)
	MarkUserVerified(ctx context.Context, id int64) error

	// SetUserOnline persists an online/offline transition with its timestamp.
	SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error
	// TouchUserActivity advances last_active_at without changing online state.
	TouchUserActivity(ctx context.Context, id int64, at time.Time) error
}

// VerificationCodeStore persists signup verification codes.
type VerificationCodeStore interface {
	CreateVerificationCode(ctx context.Context, code VerificationCode) (VerificationCode, error)
	// ConsumeVerificationCode marks a matching unused, unexpired code as used.
	// It reports ErrNotFound when no such code exists.
	ConsumeVerificationCode(ctx context.Context, userID int64, code string, now time.Time) error
}
