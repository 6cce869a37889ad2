// Command admintoken mints a directory-style access token for local back-office testing.
// With --grant it also records the admin role for the user in DATABASE_URL.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/auth"
	"github.com/yusf-1/zagrosexpress-main/internal/db"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load(".env")

	var (
		userFlag string
		secret   string
		ttl      time.Duration
		grant    bool
	)
	flagSet := pflag.NewFlagSet("admintoken", pflag.ContinueOnError)
	flagSet.StringVar(&userFlag, "user", "", "directory user id (default: a new random id)")
	flagSet.StringVar(&secret, "secret", os.Getenv("ADMIN_JWT_SECRET"), "signing secret (default: $ADMIN_JWT_SECRET)")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flagSet.BoolVar(&grant, "grant", false, "grant the admin role in $DATABASE_URL")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if secret == "" {
		return fmt.Errorf("--secret or ADMIN_JWT_SECRET is required")
	}

	userID := uuid.New()
	if userFlag != "" {
		parsed, err := uuid.Parse(userFlag)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = parsed
	}

	if grant {
		if err := grantAdmin(userID); err != nil {
			return err
		}
	}

	token, err := auth.NewDirectoryTokens(secret).Sign(userID, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "user: %s\n", userID)
	fmt.Println(token)
	return nil
}

func grantAdmin(userID uuid.UUID) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required with --grant")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	database, err := db.Open(ctx, databaseURL, db.DefaultPool, zap.NewNop())
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}
	return repo.NewRoleRepo(database).Grant(ctx, userID, model.RoleAdmin)
}
