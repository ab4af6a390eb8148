package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pawtrail/pawtrail/internal/services/users/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCreateGetUserRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.CreateUser(context.Background(), storage.User{
		Email:        "Anna@Example.com",
		PasswordHash: "$2a$10$hash",
		FullName:     "Anna K",
		Phone:        "+15550101",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.Email != "anna@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.IsVerified {
		t.Fatal("expected unverified user")
	}

	byEmail, err := store.GetUserByEmail(context.Background(), " ANNA@example.com ")
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("expected id %d, got %d", created.ID, byEmail.ID)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.CreateUser(context.Background(), storage.User{
		Email:        "dup@example.com",
		PasswordHash: "h1",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create first user: %v", err)
	}
	_, err = store.CreateUser(context.Background(), storage.User{
		Email:        "dup@example.com",
		PasswordHash: "h2",
		IsActive:     true,
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected already exists error, got %v", err)
	}
}

func TestGetUserMissing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetUserByID(context.Background(), 404); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetUserOnlineAndTouch(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.CreateUser(context.Background(), storage.User{
		Email:        "online@example.com",
		PasswordHash: "h",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	onlineAt := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	if err := store.SetUserOnline(context.Background(), created.ID, true, onlineAt); err != nil {
		t.Fatalf("set user online: %v", err)
	}
	got, err := store.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.IsOnline {
		t.Fatal("expected user online")
	}
	if got.LastActiveAt == nil || !got.LastActiveAt.Equal(onlineAt) {
		t.Fatalf("expected last active %v, got %v", onlineAt, got.LastActiveAt)
	}

	touchAt := onlineAt.Add(42 * time.Second)
	if err := store.TouchUserActivity(context.Background(), created.ID, touchAt); err != nil {
		t.Fatalf("touch user activity: %v", err)
	}
	got, err = store.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.IsOnline {
		t.Fatal("touch must not change online state")
	}
	if got.LastActiveAt == nil || !got.LastActiveAt.Equal(touchAt) {
		t.Fatalf("expected last active %v, got %v", touchAt, got.LastActiveAt)
	}

	offlineAt := touchAt.Add(time.Minute)
	if err := store.SetUserOnline(context.Background(), created.ID, false, offlineAt); err != nil {
		t.Fatalf("set user offline: %v", err)
	}
	got, err = store.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.IsOnline {
		t.Fatal("expected user offline")
	}
}

func TestSetUserOnlineMissingUser(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.SetUserOnline(context.Background(), 999, true, time.Now().UTC())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerificationCodeLifecycle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	user, err := store.CreateUser(context.Background(), storage.User{
		Email:        "verify@example.com",
		PasswordHash: "h",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Date(2026, time.April, 10, 8, 0, 0, 0, time.UTC)
	_, err = store.CreateVerificationCode(context.Background(), storage.VerificationCode{
		UserID:    user.ID,
		Code:      "482913",
		ExpiresAt: now.Add(15 * time.Minute),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create verification code: %v", err)
	}

	if err := store.ConsumeVerificationCode(context.Background(), user.ID, "000000", now); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for wrong code, got %v", err)
	}
	if err := store.ConsumeVerificationCode(context.Background(), user.ID, "482913", now.Add(time.Hour)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for expired code, got %v", err)
	}
	if err := store.ConsumeVerificationCode(context.Background(), user.ID, "482913", now); err != nil {
		t.Fatalf("consume verification code: %v", err)
	}
	if err := store.ConsumeVerificationCode(context.Background(), user.ID, "482913", now); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for reused code, got %v", err)
	}

	if err := store.MarkUserVerified(context.Background(), user.ID); err != nil {
		t.Fatalf("mark user verified: %v", err)
	}
	got, err := store.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.IsVerified {
		t.Fatal("expected verified user")
	}
}
