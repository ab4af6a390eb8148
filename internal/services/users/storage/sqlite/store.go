// Package sqlite provides a SQLite-backed user storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/pawtrail/pawtrail/internal/platform/storage/sqlitemigrate"
	"github.com/pawtrail/pawtrail/internal/services/users/storage"
	"github.com/pawtrail/pawtrail/internal/services/users/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists user state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite user store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// OpenDB wraps an existing handle and applies embedded migrations.
// It lets multiple stores share one database file.
func OpenDB(sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateUser inserts one account record.
func (s *Store) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return storage.User{}, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(user.PasswordHash) == "" {
		return storage.User{}, fmt.Errorf("password hash is required")
	}
	now := time.Now().UTC()
	createdAt := user.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (
		   email, password_hash, full_name, phone,
		   is_active, is_verified, is_online, last_active_at,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		email,
		user.PasswordHash,
		strings.TrimSpace(user.FullName),
		strings.TrimSpace(user.Phone),
		boolToInt(user.IsActive),
		boolToInt(user.IsVerified),
		toMillis(createdAt),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.User{}, storage.ErrAlreadyExists
		}
		return storage.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.User{}, fmt.Errorf("create user id: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID returns one account by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash, full_name, phone,
		        is_active, is_verified, is_online, last_active_at,
		        created_at, updated_at
		   FROM users
		  WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

// GetUserByEmail returns one account by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return storage.User{}, fmt.Errorf("email is required")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash, full_name, phone,
		        is_active, is_verified, is_online, last_active_at,
		        created_at, updated_at
		   FROM users
		  WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

// UpdateUserProfile updates the mutable profile fields.
func (s *Store) UpdateUserProfile(ctx context.Context, id int64, fullName string, phone string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET full_name = ?, phone = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(fullName),
		strings.TrimSpace(phone),
		toMillis(time.Now().UTC()),
		id,
	)
	if err != nil {
		return storage.User{}, fmt.Errorf("update user profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.User{}, fmt.Errorf("update user profile: %w", err)
	}
	if affected == 0 {
		return storage.User{}, storage.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

// MarkUserVerified flips the verification flag.
func (s *Store) MarkUserVerified(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET is_verified = 1, updated_at = ? WHERE id = ?`,
		toMillis(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetUserOnline persists an online/offline transition with its timestamp.
func (s *Store) SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET is_online = ?, last_active_at = ?, updated_at = ? WHERE id = ?`,
		boolToInt(online),
		toMillis(at),
		toMillis(at),
		id,
	)
	if err != nil {
		return fmt.Errorf("set user online: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user online: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TouchUserActivity advances last_active_at without changing online state.
func (s *Store) TouchUserActivity(ctx context.Context, id int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET last_active_at = ? WHERE id = ?`,
		toMillis(at),
		id,
	)
	if err != nil {
		return fmt.Errorf("touch user activity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch user activity: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CreateVerificationCode inserts one signup verification code.
func (s *Store) CreateVerificationCode(ctx context.Context, code storage.VerificationCode) (storage.VerificationCode, error) {
	if err := ctx.Err(); err != nil {
		return storage.VerificationCode{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.VerificationCode{}, fmt.Errorf("storage is not configured")
	}
	value := strings.TrimSpace(code.Code)
	if value == "" {
		return storage.VerificationCode{}, fmt.Errorf("code is required")
	}
	if code.ExpiresAt.IsZero() {
		return storage.VerificationCode{}, fmt.Errorf("expiry is required")
	}
	createdAt := code.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO verification_codes (user_id, code, is_used, expires_at, created_at)
		 VALUES (?, ?, 0, ?, ?)`,
		code.UserID,
		value,
		toMillis(code.ExpiresAt),
		toMillis(createdAt),
	)
	if err != nil {
		return storage.VerificationCode{}, fmt.Errorf("create verification code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.VerificationCode{}, fmt.Errorf("create verification code id: %w", err)
	}
	code.ID = id
	code.Code = value
	code.IsUsed = false
	code.CreatedAt = createdAt
	code.ExpiresAt = code.ExpiresAt.UTC()
	return code, nil
}

// ConsumeVerificationCode marks a matching unused, unexpired code as used.
func (s *Store) ConsumeVerificationCode(ctx context.Context, userID int64, code string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return storage.ErrNotFound
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE verification_codes
		    SET is_used = 1
		  WHERE user_id = ? AND code = ? AND is_used = 0 AND expires_at > ?`,
		userID,
		code,
		toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("consume verification code: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume verification code: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (storage.User, error) {
	var user storage.User
	var isActive int
	var isVerified int
	var isOnline int
	var lastActive sql.NullInt64
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Phone,
		&isActive,
		&isVerified,
		&isOnline,
		&lastActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.IsActive = isActive != 0
	user.IsVerified = isVerified != 0
	user.IsOnline = isOnline != 0
	if lastActive.Valid {
		at := fromMillis(lastActive.Int64)
		user.LastActiveAt = &at
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.VerificationCodeStore = (*Store)(nil)
