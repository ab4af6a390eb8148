// Package token issues and verifies the bearer tokens that authenticate
// API requests and websocket connections.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
)

// tokenEnv holds raw env values before post-parse validation.
type tokenEnv struct {
	Secret string        `env:"PAWTRAIL_AUTH_TOKEN_SECRET"`
	Issuer string        `env:"PAWTRAIL_AUTH_TOKEN_ISSUER" envDefault:"pawtrail"`
	TTL    time.Duration `env:"PAWTRAIL_AUTH_TOKEN_TTL" envDefault:"24h"`
}

// Config defines how bearer tokens are signed and verified.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Claims are the validated claims carried by a bearer token.
type Claims struct {
	UserID    int64
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// LoadConfigFromEnv reads token signing configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw tokenEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse auth token env: %w", err)
	}
	secret := strings.TrimSpace(raw.Secret)
	if secret == "" {
		return Config{}, fmt.Errorf("PAWTRAIL_AUTH_TOKEN_SECRET is required")
	}
	if raw.TTL <= 0 {
		return Config{}, fmt.Errorf("PAWTRAIL_AUTH_TOKEN_TTL must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Secret: []byte(secret),
		Issuer: strings.TrimSpace(raw.Issuer),
		TTL:    raw.TTL,
		Now:    now,
	}, nil
}

// Issuer signs and verifies tokens with a shared HMAC secret.
type Issuer struct {
	cfg Config
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{cfg: cfg}, nil
}

// Issue signs a token for the user.
func (i *Issuer) Issue(userID int64, email string) (string, error) {
	now := i.cfg.Now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns its claims.
func (i *Issuer) Verify(tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token is required")
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		return i.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if i.cfg.Issuer != "" && parsed.Issuer != i.cfg.Issuer {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token issuer mismatch")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token exp is required")
	}
	now := i.cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenExpired, "token is expired")
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(parsed.Subject), 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token subject is invalid")
	}

	claims := Claims{
		UserID:    userID,
		Email:     parsed.Email,
		ExpiresAt: exp,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token alg is invalid")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token is malformed")
	}
	return apperrors.Wrap(apperrors.CodeAuthTokenInvalid, "token is invalid", err)
}
