// Package seed parses seed command flags and loads demo data into the
// sqlite stores: a few accounts, pet reports, and a conversation.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	entrypoint "github.com/pawtrail/pawtrail/internal/platform/cmd"
	"github.com/pawtrail/pawtrail/internal/services/auth/password"
	chatstorage "github.com/pawtrail/pawtrail/internal/services/chat/storage"
	chatsqlite "github.com/pawtrail/pawtrail/internal/services/chat/storage/sqlite"
	petsstorage "github.com/pawtrail/pawtrail/internal/services/pets/storage"
	petssqlite "github.com/pawtrail/pawtrail/internal/services/pets/storage/sqlite"
	usersstorage "github.com/pawtrail/pawtrail/internal/services/users/storage"
	userssqlite "github.com/pawtrail/pawtrail/internal/services/users/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DataDir  string `env:"PAWTRAIL_DATA_DIR" envDefault:"data"`
	Password string `env:"PAWTRAIL_SEED_PASSWORD" envDefault:"password123"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for sqlite databases")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "password assigned to demo accounts")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the demo fixtures.
func Run(ctx context.Context, cfg Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	users, err := userssqlite.Open(filepath.Join(cfg.DataDir, "users.db"))
	if err != nil {
		return fmt.Errorf("open users store: %w", err)
	}
	defer users.Close()

	pets, err := petssqlite.Open(filepath.Join(cfg.DataDir, "pets.db"))
	if err != nil {
		return fmt.Errorf("open pets store: %w", err)
	}
	defer pets.Close()

	chats, err := chatsqlite.Open(filepath.Join(cfg.DataDir, "chat.db"))
	if err != nil {
		return fmt.Errorf("open chat store: %w", err)
	}
	defer chats.Close()

	hash, err := password.Hash(cfg.Password)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	alice, created, err := seedUser(ctx, users, "alice@example.com", "Alice Demo", hash)
	if err != nil {
		return err
	}
	if !created {
		log.Printf("demo data already present, nothing to do")
		return nil
	}
	bob, _, err := seedUser(ctx, users, "bob@example.com", "Bob Demo", hash)
	if err != nil {
		return err
	}

	age := 3
	lostDate := time.Now().UTC().Add(-48 * time.Hour)
	lost, err := pets.CreatePet(ctx, petsstorage.Pet{
		OwnerID:          alice.ID,
		Name:             "Luna",
		Species:          "cat",
		Breed:            "tabby",
		Age:              &age,
		Color:            "grey",
		Gender:           "female",
		Status:           petsstorage.StatusLost,
		LastSeenLocation: "Ravenna Park",
		CoordX:           "47.6762",
		CoordY:           "-122.3079",
		LostDate:         &lostDate,
	})
	if err != nil {
		return fmt.Errorf("seed lost pet: %w", err)
	}
	found, err := pets.CreatePet(ctx, petsstorage.Pet{
		OwnerID: bob.ID,
		Name:    "Unknown cat",
		Species: "cat",
		Color:   "grey",
		Status:  petsstorage.StatusFound,
	})
	if err != nil {
		return fmt.Errorf("seed found pet: %w", err)
	}

	conv, err := chats.CreateConversation(ctx, bob.ID, alice.ID, &lost.ID)
	if err != nil {
		return fmt.Errorf("seed conversation: %w", err)
	}
	if _, err := chats.AppendMessage(ctx, chatstorage.Message{
		ConversationID: conv.ID,
		SenderID:       bob.ID,
		RecipientID:    alice.ID,
		Content:        "I think I found your cat near Ravenna Park.",
	}); err != nil {
		return fmt.Errorf("seed message: %w", err)
	}

	log.Printf("seeded users %d and %d, pets %d and %d, conversation %d",
		alice.ID, bob.ID, lost.ID, found.ID, conv.ID)
	return nil
}

// seedUser creates a verified demo account. The second return reports
// whether the account was newly created.
func seedUser(ctx context.Context, users usersstorage.UserStore, email, fullName, hash string) (usersstorage.User, bool, error) {
	user, err := users.CreateUser(ctx, usersstorage.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		IsActive:     true,
		IsVerified:   true,
	})
	if errors.Is(err, usersstorage.ErrAlreadyExists) {
		existing, err := users.GetUserByEmail(ctx, email)
		return existing, false, err
	}
	if err != nil {
		return usersstorage.User{}, false, fmt.Errorf("seed user %s: %w", email, err)
	}
	return user, true, nil
}
