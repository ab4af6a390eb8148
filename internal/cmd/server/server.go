// Package server parses server command flags and composes the backend:
// stores, domain services, the chat socket server, and the JSON API.
package server

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	entrypoint "github.com/pawtrail/pawtrail/internal/platform/cmd"
	"github.com/pawtrail/pawtrail/internal/services/api"
	authapp "github.com/pawtrail/pawtrail/internal/services/auth/app"
	"github.com/pawtrail/pawtrail/internal/services/auth/token"
	"github.com/pawtrail/pawtrail/internal/services/auth/verification"
	chatapp "github.com/pawtrail/pawtrail/internal/services/chat/app"
	chatsqlite "github.com/pawtrail/pawtrail/internal/services/chat/storage/sqlite"
	notifsqlite "github.com/pawtrail/pawtrail/internal/services/notifications/storage/sqlite"
	petsapp "github.com/pawtrail/pawtrail/internal/services/pets/app"
	"github.com/pawtrail/pawtrail/internal/services/pets/match"
	"github.com/pawtrail/pawtrail/internal/services/pets/photo"
	petssqlite "github.com/pawtrail/pawtrail/internal/services/pets/storage/sqlite"
	userssqlite "github.com/pawtrail/pawtrail/internal/services/users/storage/sqlite"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr string `env:"PAWTRAIL_HTTP_ADDR" envDefault:":8080"`
	DataDir  string `env:"PAWTRAIL_DATA_DIR"  envDefault:"data"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for sqlite databases")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the backend and serves it until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(context.Context) error {
		server, cleanup, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve api: %w", err)
		}
		return nil
	})
}

func build(ctx context.Context, cfg Config) (*api.Server, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Printf("server: close store: %v", err)
			}
		}
	}
	fail := func(err error) (*api.Server, func(), error) {
		cleanup()
		return nil, nil, err
	}

	users, err := userssqlite.Open(filepath.Join(cfg.DataDir, "users.db"))
	if err != nil {
		return fail(fmt.Errorf("open users store: %w", err))
	}
	closers = append(closers, users.Close)

	pets, err := petssqlite.Open(filepath.Join(cfg.DataDir, "pets.db"))
	if err != nil {
		return fail(fmt.Errorf("open pets store: %w", err))
	}
	closers = append(closers, pets.Close)

	chats, err := chatsqlite.Open(filepath.Join(cfg.DataDir, "chat.db"))
	if err != nil {
		return fail(fmt.Errorf("open chat store: %w", err))
	}
	closers = append(closers, chats.Close)

	notifications, err := notifsqlite.Open(filepath.Join(cfg.DataDir, "notifications.db"))
	if err != nil {
		return fail(fmt.Errorf("open notifications store: %w", err))
	}
	closers = append(closers, notifications.Close)

	tokenCfg, err := token.LoadConfigFromEnv(time.Now)
	if err != nil {
		return fail(err)
	}
	issuer, err := token.NewIssuer(tokenCfg)
	if err != nil {
		return fail(err)
	}

	auth, err := authapp.New(authapp.Config{
		Users:  users,
		Codes:  users,
		Tokens: issuer,
		Email:  emailSender(),
	})
	if err != nil {
		return fail(err)
	}

	uploads, err := photoProcessor(ctx)
	if err != nil {
		return fail(err)
	}
	matcher, err := petMatcher(pets, notifications)
	if err != nil {
		return fail(err)
	}
	petsSvc, err := petsapp.New(petsapp.Config{
		Pets:    pets,
		Photos:  pets,
		Matches: pets,
		Uploads: uploads,
		Matcher: matcher,
	})
	if err != nil {
		return fail(err)
	}

	conversations, err := chatapp.NewConversations(chats, chats)
	if err != nil {
		return fail(err)
	}
	chatServer, err := chatapp.New(chatapp.Config{
		Auth:          tokenAuthenticator{auth: auth},
		Users:         users,
		Conversations: chats,
		Messages:      chats,
	})
	if err != nil {
		return fail(err)
	}

	server, err := api.NewServer(api.Config{
		HTTPAddr:      cfg.HTTPAddr,
		Auth:          auth,
		Users:         users,
		Pets:          petsSvc,
		Conversations: conversations,
		Notifications: notifications,
		ChatHandler:   chatServer.Handler(),
	})
	if err != nil {
		return fail(fmt.Errorf("new api server: %w", err))
	}
	return server, cleanup, nil
}

// emailSender returns the SMTP sender when mail is configured and the
// log fallback otherwise.
func emailSender() verification.EmailSender {
	cfg, err := verification.LoadSMTPConfigFromEnv()
	if err != nil {
		log.Printf("server: smtp config: %v, falling back to log delivery", err)
		return verification.LogSender{}
	}
	if cfg.Host == "" {
		log.Printf("server: smtp not configured, verification codes go to the log")
		return verification.LogSender{}
	}
	sender, err := verification.NewSMTPSender(cfg)
	if err != nil {
		log.Printf("server: smtp sender: %v, falling back to log delivery", err)
		return verification.LogSender{}
	}
	return sender
}

// photoProcessor wires the S3-backed upload pipeline, or nil when no
// bucket is configured.
func photoProcessor(ctx context.Context) (*photo.Processor, error) {
	cfg, err := photo.LoadS3ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		log.Printf("server: s3 bucket not configured, photo uploads disabled")
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	store, err := photo.NewS3Store(s3.NewFromConfig(awsCfg), cfg)
	if err != nil {
		return nil, err
	}
	return photo.NewProcessor(store)
}

// petMatcher wires the similarity matcher, or nil when no scorer
// endpoint is configured.
func petMatcher(pets *petssqlite.Store, notifications *notifsqlite.Store) (*match.Matcher, error) {
	cfg, err := match.LoadHTTPScorerConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		log.Printf("server: scorer url not configured, matching disabled")
		return nil, nil
	}
	scorer, err := match.NewHTTPScorer(cfg)
	if err != nil {
		return nil, err
	}
	return match.New(match.Config{
		Pets:     pets,
		Photos:   pets,
		Matches:  pets,
		Scorer:   scorer,
		Notifier: matchNotifier{store: notifications},
	})
}
