// Package sqlite provides a SQLite-backed chat storage implementation.
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
	"github.com/pawtrail/pawtrail/internal/services/chat/storage"
	"github.com/pawtrail/pawtrail/internal/services/chat/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists conversation and message state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite chat store and applies embedded migrations.
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

// CreateConversation inserts one conversation or returns the existing one for
// the same pair and pet anchor.
func (s *Store) CreateConversation(ctx context.Context, user1ID, user2ID int64, petID *int64) (storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return storage.Conversation{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Conversation{}, fmt.Errorf("storage is not configured")
	}
	if user1ID == 0 || user2ID == 0 {
		return storage.Conversation{}, fmt.Errorf("both participants are required")
	}
	if user1ID == user2ID {
		return storage.Conversation{}, fmt.Errorf("participants must be distinct")
	}

	query := `SELECT id, user1_id, user2_id, pet_id, created_at, updated_at
	            FROM conversations
	           WHERE ((user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?))`
	args := []any{user1ID, user2ID, user2ID, user1ID}
	if petID != nil {
		query += ` AND pet_id = ?`
		args = append(args, *petID)
	} else {
		query += ` AND pet_id IS NULL`
	}
	row := s.sqlDB.QueryRowContext(ctx, query, args...)
	existing, err := scanConversation(row)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.Conversation{}, err
	}

	now := time.Now().UTC()
	var petValue any
	if petID != nil {
		petValue = *petID
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO conversations (user1_id, user2_id, pet_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user1ID,
		user2ID,
		petValue,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		return storage.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Conversation{}, fmt.Errorf("create conversation id: %w", err)
	}
	return s.GetConversation(ctx, id)
}

// GetConversation returns one conversation by id.
func (s *Store) GetConversation(ctx context.Context, id int64) (storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return storage.Conversation{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Conversation{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user1_id, user2_id, pet_id, created_at, updated_at
		   FROM conversations
		  WHERE id = ?`,
		id,
	)
	return scanConversation(row)
}

// ListConversationsByUser returns inbox summaries, most recently updated first.
func (s *Store) ListConversationsByUser(ctx context.Context, userID int64) ([]storage.ConversationSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, user1_id, user2_id, pet_id, created_at, updated_at
		   FROM conversations
		  WHERE user1_id = ? OR user2_id = ?
		  ORDER BY updated_at DESC, id DESC`,
		userID,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []storage.ConversationSummary
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		summaries = append(summaries, storage.ConversationSummary{Conversation: conversation})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	for i := range summaries {
		conversationID := summaries[i].Conversation.ID
		last, err := s.lastMessage(ctx, conversationID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			summaries[i].LastMessage = &last
		}
		unread, err := s.CountUnread(ctx, conversationID, userID)
		if err != nil {
			return nil, err
		}
		summaries[i].UnreadCount = unread
	}
	return summaries, nil
}

// TouchConversation advances updated_at monotonically.
func (s *Store) TouchConversation(ctx context.Context, id int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE conversations SET updated_at = MAX(updated_at, ?) WHERE id = ?`,
		toMillis(at),
		id,
	)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteConversation removes a conversation and cascades to its messages.
func (s *Store) DeleteConversation(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendMessage inserts one message row.
func (s *Store) AppendMessage(ctx context.Context, msg storage.Message) (storage.Message, error) {
	if err := ctx.Err(); err != nil {
		return storage.Message{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Message{}, fmt.Errorf("storage is not configured")
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return storage.Message{}, fmt.Errorf("content is required")
	}
	createdAt := msg.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO chat_messages (conversation_id, sender_id, recipient_id, content, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ConversationID,
		msg.SenderID,
		msg.RecipientID,
		content,
		boolToInt(msg.IsRead),
		toMillis(createdAt),
	)
	if err != nil {
		return storage.Message{}, fmt.Errorf("append message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Message{}, fmt.Errorf("append message id: %w", err)
	}
	msg.ID = id
	msg.Content = content
	msg.CreatedAt = createdAt
	return msg, nil
}

// GetMessage returns one message scoped to a conversation.
func (s *Store) GetMessage(ctx context.Context, conversationID, messageID int64) (storage.Message, error) {
	if err := ctx.Err(); err != nil {
		return storage.Message{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Message{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, conversation_id, sender_id, recipient_id, content, is_read, created_at
		   FROM chat_messages
		  WHERE conversation_id = ? AND id = ?`,
		conversationID,
		messageID,
	)
	return scanMessage(row)
}

// MarkMessageRead flips is_read once; already-read messages report false.
func (s *Store) MarkMessageRead(ctx context.Context, conversationID, messageID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE chat_messages SET is_read = 1
		  WHERE conversation_id = ? AND id = ? AND is_read = 0`,
		conversationID,
		messageID,
	)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	// Distinguish already-read from missing.
	if _, err := s.GetMessage(ctx, conversationID, messageID); err != nil {
		return false, err
	}
	return false, nil
}

// MarkConversationRead marks unread messages for the recipient and returns
// the newly-read ids in creation order.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID, recipientID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id FROM chat_messages
		  WHERE conversation_id = ? AND recipient_id = ? AND is_read = 0
		  ORDER BY created_at ASC, id ASC`,
		conversationID,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("mark conversation read: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`UPDATE chat_messages SET is_read = 1
		  WHERE conversation_id = ? AND recipient_id = ? AND is_read = 0`,
		conversationID,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	return ids, nil
}

// ListMessages returns messages newest-first with offset pagination.
func (s *Store) ListMessages(ctx context.Context, conversationID int64, offset, limit int) ([]storage.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, conversation_id, sender_id, recipient_id, content, is_read, created_at
		   FROM chat_messages
		  WHERE conversation_id = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ? OFFSET ?`,
		conversationID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []storage.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CountUnread counts unread messages addressed to the recipient.
func (s *Store) CountUnread(ctx context.Context, conversationID, recipientID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM chat_messages
		  WHERE conversation_id = ? AND recipient_id = ? AND is_read = 0`,
		conversationID,
		recipientID,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (s *Store) lastMessage(ctx context.Context, conversationID int64) (storage.Message, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, conversation_id, sender_id, recipient_id, content, is_read, created_at
		   FROM chat_messages
		  WHERE conversation_id = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT 1`,
		conversationID,
	)
	return scanMessage(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (storage.Conversation, error) {
	var conversation storage.Conversation
	var petID sql.NullInt64
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&conversation.ID,
		&conversation.User1ID,
		&conversation.User2ID,
		&petID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Conversation{}, storage.ErrNotFound
		}
		return storage.Conversation{}, fmt.Errorf("scan conversation: %w", err)
	}
	if petID.Valid {
		value := petID.Int64
		conversation.PetID = &value
	}
	conversation.CreatedAt = fromMillis(createdAt)
	conversation.UpdatedAt = fromMillis(updatedAt)
	return conversation, nil
}

func scanMessage(row rowScanner) (storage.Message, error) {
	var msg storage.Message
	var isRead int
	var createdAt int64
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&isRead,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Message{}, storage.ErrNotFound
		}
		return storage.Message{}, fmt.Errorf("scan message: %w", err)
	}
	msg.IsRead = isRead != 0
	msg.CreatedAt = fromMillis(createdAt)
	return msg, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var _ storage.ConversationStore = (*Store)(nil)
var _ storage.MessageStore = (*Store)(nil)
