package app

import (
	"context"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	"github.com/pawtrail/pawtrail/internal/services/auth/token"
	userssqlite "github.com/pawtrail/pawtrail/internal/services/users/storage/sqlite"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// captureSender records outbound mail so tests can read the codes.
type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) Send(_ context.Context, _, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, body)
	return nil
}

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	code := codePattern.FindString(c.sent[len(c.sent)-1])
	if code == "" {
		t.Fatalf("no code in mail body %q", c.sent[len(c.sent)-1])
	}
	return code
}

func newTestService(t *testing.T) (*Service, *captureSender) {
	t.Helper()

	store, err := userssqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open users store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	issuer, err := token.NewIssuer(token.Config{Secret: []byte("test-secret"), Issuer: "pawtrail", TTL: time.Hour})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	sender := &captureSender{}
	svc, err := New(Config{Users: store, Codes: store, Tokens: issuer, Email: sender})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, sender
}

func TestRegisterVerifyLogin(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "correct horse battery", "Alice", "+15550001")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email = %q, want lowercased", user.Email)
	}
	if user.IsVerified {
		t.Fatal("new account is already verified")
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "correct horse battery"); apperrors.CodeOf(err) != apperrors.CodeAuthVerificationRequired {
		t.Fatalf("login before verify = %v, want %s", err, apperrors.CodeAuthVerificationRequired)
	}

	if err := svc.VerifyEmail(ctx, "alice@example.com", sender.lastCode(t)); err != nil {
		t.Fatalf("verify email: %v", err)
	}

	signed, loggedIn, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("login returned user %d, want %d", loggedIn.ID, user.ID)
	}

	authed, err := svc.Authenticate(ctx, signed)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("authenticate returned user %d, want %d", authed.ID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "Alice", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "ALICE@example.com", "another password", "Impostor", "")
	if apperrors.CodeOf(err) != apperrors.CodeAuthEmailTaken {
		t.Fatalf("duplicate register = %v, want %s", err, apperrors.CodeAuthEmailTaken)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "Alice", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "alice@example.com", sender.lastCode(t)); err != nil {
		t.Fatalf("verify email: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong password"); apperrors.CodeOf(err) != apperrors.CodeAuthInvalidCredentials {
		t.Fatalf("login with wrong password = %v, want %s", err, apperrors.CodeAuthInvalidCredentials)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "whatever password"); apperrors.CodeOf(err) != apperrors.CodeAuthInvalidCredentials {
		t.Fatalf("login with unknown email = %v, want %s", err, apperrors.CodeAuthInvalidCredentials)
	}
}

func TestVerifyEmailRejectsBadCode(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "Alice", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "alice@example.com", "000000"); apperrors.CodeOf(err) != apperrors.CodeAuthCodeInvalid {
		t.Fatalf("verify with bad code = %v, want %s", err, apperrors.CodeAuthCodeInvalid)
	}
	if err := svc.VerifyEmail(ctx, "nobody@example.com", "123456"); apperrors.CodeOf(err) != apperrors.CodeAuthCodeInvalid {
		t.Fatalf("verify unknown email = %v, want %s", err, apperrors.CodeAuthCodeInvalid)
	}
}

func TestResendCode(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "Alice", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.ResendCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "alice@example.com", sender.lastCode(t)); err != nil {
		t.Fatalf("verify with resent code: %v", err)
	}

	// Unknown addresses are indistinguishable from known ones.
	if err := svc.ResendCode(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("resend to unknown email: %v", err)
	}
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	if _, err := svc.Authenticate(context.Background(), "not.a.token"); apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("authenticate garbage = %v, want %s", err, apperrors.CodeAuthTokenInvalid)
	}
}
