package verification

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/caarlos0/env/v11"
)

// smtpEnv holds raw env values before post-parse validation.
type smtpEnv struct {
	Host     string `env:"PAWTRAIL_SMTP_HOST"`
	Port     int    `env:"PAWTRAIL_SMTP_PORT" envDefault:"587"`
	Username string `env:"PAWTRAIL_SMTP_USERNAME"`
	Password string `env:"PAWTRAIL_SMTP_PASSWORD"`
	From     string `env:"PAWTRAIL_SMTP_FROM"`
}

// SMTPConfig defines how outbound mail is submitted.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadSMTPConfigFromEnv reads mail submission configuration. An empty
// host means mail delivery is disabled; callers should fall back to
// LogSender.
func LoadSMTPConfigFromEnv() (SMTPConfig, error) {
	var raw smtpEnv
	if err := env.Parse(&raw); err != nil {
		return SMTPConfig{}, fmt.Errorf("parse smtp env: %w", err)
	}
	cfg := SMTPConfig{
		Host:     strings.TrimSpace(raw.Host),
		Port:     raw.Port,
		Username: strings.TrimSpace(raw.Username),
		Password: raw.Password,
		From:     strings.TrimSpace(raw.From),
	}
	if cfg.Host != "" && cfg.From == "" {
		return SMTPConfig{}, fmt.Errorf("PAWTRAIL_SMTP_FROM is required when PAWTRAIL_SMTP_HOST is set")
	}
	return cfg, nil
}

// SMTPSender submits mail over authenticated SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender validates cfg and returns a sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send submits one message. The context only gates the call upfront;
// net/smtp does not support cancellation mid-session.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender writes mail to the process log instead of delivering it.
// Used in development and tests.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("auth: mail suppressed to=%s subject=%q", to, subject)
	return nil
}
