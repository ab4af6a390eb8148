// Package sqlite provides a SQLite-backed notification storage
// implementation.
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
	"github.com/pawtrail/pawtrail/internal/services/notifications/storage"
	"github.com/pawtrail/pawtrail/internal/services/notifications/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists notification state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite notification store and applies embedded migrations.
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

// CreateNotification inserts one inbox item.
func (s *Store) CreateNotification(ctx context.Context, notification storage.Notification) (storage.Notification, error) {
	if err := ctx.Err(); err != nil {
		return storage.Notification{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Notification{}, fmt.Errorf("storage is not configured")
	}
	notification.Message = strings.TrimSpace(notification.Message)
	if notification.Message == "" {
		return storage.Notification{}, fmt.Errorf("notification message is required")
	}
	if notification.UserID <= 0 {
		return storage.Notification{}, fmt.Errorf("user id is required")
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	var matchID any
	if notification.MatchID != nil {
		matchID = *notification.MatchID
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO notifications (user_id, match_id, message, is_read, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		notification.UserID,
		matchID,
		notification.Message,
		toMillis(notification.CreatedAt),
	)
	if err != nil {
		return storage.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Notification{}, fmt.Errorf("notification insert id: %w", err)
	}
	return s.GetNotification(ctx, id)
}

// GetNotification loads one inbox item by id.
func (s *Store) GetNotification(ctx context.Context, id int64) (storage.Notification, error) {
	if err := ctx.Err(); err != nil {
		return storage.Notification{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Notification{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user_id, match_id, message, is_read, created_at FROM notifications WHERE id = ?`,
		id,
	)
	notification, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Notification{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Notification{}, fmt.Errorf("select notification: %w", err)
	}
	return notification, nil
}

// ListNotificationsByUser returns inbox items newest-first.
func (s *Store) ListNotificationsByUser(ctx context.Context, userID int64, filter storage.ListFilter) ([]storage.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	query := `SELECT id, user_id, match_id, message, is_read, created_at FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if filter.UnreadOnly {
		query += " AND is_read = 0"
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var notifications []storage.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flips is_read for the user's own item. It reports
// false when the item was already read, and ErrNotFound when no such
// item belongs to the user.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ? AND is_read = 0`,
		id,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification rows: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	var exists int
	err = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT 1 FROM notifications WHERE id = ? AND user_id = ?`,
		id,
		userID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, storage.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return false, nil
}

// MarkAllNotificationsRead returns the number of items newly marked.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications rows: %w", err)
	}
	return int(affected), nil
}

// CountUnreadNotifications returns the user's unread item count.
func (s *Store) CountUnreadNotifications(ctx context.Context, userID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (storage.Notification, error) {
	var notification storage.Notification
	var matchID sql.NullInt64
	var isRead int
	var createdAt int64
	err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&matchID,
		&notification.Message,
		&isRead,
		&createdAt,
	)
	if err != nil {
		return storage.Notification{}, err
	}
	if matchID.Valid {
		value := matchID.Int64
		notification.MatchID = &value
	}
	notification.IsRead = isRead != 0
	notification.CreatedAt = fromMillis(createdAt)
	return notification, nil
}

var _ storage.NotificationStore = (*Store)(nil)
