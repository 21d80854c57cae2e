// Package main is an operator tool that mints an API key without going through the HTTP
// API. It is the bootstrap path for the first admin key: the raw key is printed once and
// only its SHA-256 hash is stored in api_keys.
//
// Usage:
//
//	keygen -name "CI" [-owner <discord id>] [-permissions read,write] [-expires 720h]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sundai/hackathon-api/internal/auth"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/db"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
)

type options struct {
	name        string
	owner       string
	permissions string
	expires     time.Duration
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Error: %v\n", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Error: failed to load config: %v\n", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Error: failed to connect to database: %v\n", err)
	}
	defer database.Close()

	if err := mint(context.Background(), database, cfg.Auth.APIKeys.Prefix, opts, os.Stdout); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.StringVar(&opts.name, "name", "", "key name (required)")
	fs.StringVar(&opts.owner, "owner", "", "Discord id of the owning participant")
	fs.StringVar(&opts.permissions, "permissions", "read", "comma-separated scopes: read, write, admin")
	fs.DurationVar(&opts.expires, "expires", 0, "lifetime, e.g. 720h; 0 never expires")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if strings.TrimSpace(opts.name) == "" {
		return opts, fmt.Errorf("-name is required")
	}
	if opts.expires < 0 {
		return opts, fmt.Errorf("-expires must not be negative")
	}
	return opts, nil
}

// mint creates the key and writes the raw secret to out
func mint(ctx context.Context, database *sql.DB, prefix string, opts options, out io.Writer) error {
	scopes := strings.Split(opts.permissions, ",")
	for i := range scopes {
		scopes[i] = strings.TrimSpace(scopes[i])
	}
	if err := auth.ValidateScopes(scopes); err != nil {
		return err
	}

	key := &models.APIKey{
		Name:        strings.TrimSpace(opts.name),
		Permissions: auth.NormalizeScopes(scopes),
	}
	if opts.expires > 0 {
		exp := time.Now().Add(opts.expires)
		key.ExpiresAt = &exp
	}

	if opts.owner != "" {
		profile, err := repositories.NewProfileRepository(database).GetByDiscordID(ctx, opts.owner)
		if err != nil {
			return fmt.Errorf("failed to look up owner: %w", err)
		}
		if profile == nil {
			return fmt.Errorf("no profile with discord id %s", opts.owner)
		}
		key.CreatedBy = &profile.ID
	}

	raw, hash, displayPrefix, err := auth.GenerateAPIKey(prefix)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	key.KeyHash = hash
	key.KeyPrefix = displayPrefix

	if err := repositories.NewAPIKeyRepository(database).CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	fmt.Fprintf(out, "API key created\n")
	fmt.Fprintf(out, "  id:          %s\n", key.ID)
	fmt.Fprintf(out, "  name:        %s\n", key.Name)
	fmt.Fprintf(out, "  permissions: %s\n", strings.Join(key.Permissions, ","))
	if key.ExpiresAt != nil {
		fmt.Fprintf(out, "  expires:     %s\n", key.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(out, "\n  %s\n\nStore it now; it cannot be shown again.\n", raw)
	return nil
}
