// Package app implements account registration, login, and email
// verification on top of the users store.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	"github.com/pawtrail/pawtrail/internal/services/auth/password"
	"github.com/pawtrail/pawtrail/internal/services/auth/token"
	"github.com/pawtrail/pawtrail/internal/services/auth/verification"
	"github.com/pawtrail/pawtrail/internal/services/users/storage"
)

const codeTTL = 15 * time.Minute

// Config carries the dependencies for the auth service.
type Config struct {
	Users  storage.UserStore
	Codes  storage.VerificationCodeStore
	Tokens *token.Issuer
	Email  verification.EmailSender
	Now    func() time.Time
}

// Service implements the account lifecycle: register, verify, login.
type Service struct {
	users  storage.UserStore
	codes  storage.VerificationCodeStore
	tokens *token.Issuer
	email  verification.EmailSender
	now    func() time.Time
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Users == nil {
		return nil, fmt.Errorf("auth service: user store is required")
	}
	if cfg.Codes == nil {
		return nil, fmt.Errorf("auth service: verification code store is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("auth service: token issuer is required")
	}
	if cfg.Email == nil {
		cfg.Email = verification.LogSender{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		users:  cfg.Users,
		codes:  cfg.Codes,
		tokens: cfg.Tokens,
		email:  cfg.Email,
		now:    cfg.Now,
	}, nil
}

// Register creates an unverified account and emails a verification code.
func (s *Service) Register(ctx context.Context, email, plaintext, fullName, phone string) (storage.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return storage.User{}, apperrors.New(apperrors.CodeUserEmptyEmail, "a valid email is required")
	}
	hash, err := password.Hash(plaintext)
	if err != nil {
		return storage.User{}, err
	}
	user, err := s.users.CreateUser(ctx, storage.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Phone:        strings.TrimSpace(phone),
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.User{}, apperrors.New(apperrors.CodeAuthEmailTaken, "email is already registered")
		}
		return storage.User{}, fmt.Errorf("create user: %w", err)
	}
	if err := s.sendCode(ctx, user); err != nil {
		// The account exists; the client can ask for a resend.
		log.Printf("auth: send verification code failed user=%d err=%v", user.ID, err)
	}
	return user, nil
}

// Login checks credentials and returns a signed bearer token. Unverified
// accounts cannot log in.
func (s *Service) Login(ctx context.Context, email, plaintext string) (string, storage.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", storage.User{}, apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid email or password")
		}
		return "", storage.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := password.Compare(user.PasswordHash, plaintext); err != nil {
		return "", storage.User{}, err
	}
	if !user.IsActive {
		return "", storage.User{}, apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid email or password")
	}
	if !user.IsVerified {
		return "", storage.User{}, apperrors.New(apperrors.CodeAuthVerificationRequired, "email is not verified")
	}
	signed, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", storage.User{}, err
	}
	return signed, user, nil
}

// VerifyEmail consumes a verification code and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeAuthCodeInvalid, "verification code is invalid")
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsVerified {
		return nil
	}
	err = s.codes.ConsumeVerificationCode(ctx, user.ID, strings.TrimSpace(code), s.now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeAuthCodeInvalid, "verification code is invalid")
		}
		return fmt.Errorf("consume verification code: %w", err)
	}
	if err := s.users.MarkUserVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	return nil
}

// ResendCode issues a fresh verification code for an unverified account.
// It succeeds silently for unknown emails so the endpoint cannot be used
// to probe which addresses exist.
func (s *Service) ResendCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsVerified {
		return nil
	}
	return s.sendCode(ctx, user)
}

// Authenticate resolves a bearer token to its account. Inactive accounts
// are rejected even when the token is otherwise valid.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (storage.User, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return storage.User{}, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token subject no longer exists")
		}
		return storage.User{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return storage.User{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "account is disabled")
	}
	return user, nil
}

func (s *Service) sendCode(ctx context.Context, user storage.User) error {
	code, err := verification.GenerateCode()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	_, err = s.codes.CreateVerificationCode(ctx, storage.VerificationCode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: now.Add(codeTTL),
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	body := fmt.Sprintf("Your PawTrail verification code is %s. It expires in %d minutes.", code, int(codeTTL.Minutes()))
	if err := s.email.Send(ctx, user.Email, "Verify your PawTrail account", body); err != nil {
		return fmt.Errorf("email verification code: %w", err)
	}
	return nil
}
