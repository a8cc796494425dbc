package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/corvusHold/shopmail/internal/config"
	"github.com/corvusHold/shopmail/internal/mail"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitMigrate = 4
	exitSMTP    = 5
)

var (
	migrateRunner           = realMigrateRunner
	smtpChecker             = realSMTPChecker
	osExit                  = os.Exit
	stdout        io.Writer = os.Stdout
	stderr        io.Writer = os.Stderr
)

// handleCLICommand runs maintenance commands instead of the server.
// It reports false when args ask for the server.
func handleCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "migrate":
		osExit(runMigrate(args[1:]))
	case "check-smtp":
		osExit(runCheckSMTP())
	case "help", "-h", "--help":
		printHelp(stdout)
		osExit(exitOK)
	default:
		return false
	}
	return true
}

var migrateSubcommands = map[string]func(*sql.DB, string) error{
	"up":      func(db *sql.DB, dir string) error { return goose.Up(db, dir) },
	"down":    func(db *sql.DB, dir string) error { return goose.Down(db, dir) },
	"status":  func(db *sql.DB, dir string) error { return goose.Status(db, dir) },
	"version": func(db *sql.DB, dir string) error { return goose.Version(db, dir) },
}

func runMigrate(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "missing migrate subcommand (up|down|status|version)")
		return exitUsage
	}
	subcmd := args[0]
	if _, ok := migrateSubcommands[subcmd]; !ok {
		fmt.Fprintf(stderr, "unknown migrate subcommand: %s\n", subcmd)
		return exitUsage
	}

	// Schema changes touch neither mail nor tokens.
	cfg, err := config.Load()
	if !config.OnlyMissing(err, config.ErrMissingSMTP, config.ErrMissingJWTKey) {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitConfig
	}
	if err := migrateRunner(subcmd, cfg.DatabaseURL); err != nil {
		fmt.Fprintf(stderr, "migrate %s failed: %v\n", subcmd, err)
		return exitMigrate
	}
	return exitOK
}

func realMigrateRunner(subcmd, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}
	run, ok := migrateSubcommands[subcmd]
	if !ok {
		return fmt.Errorf("unsupported migrate subcommand %q", subcmd)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "./migrations"
	}
	return run(db, dir)
}

// runCheckSMTP connects and authenticates against the default account,
// the one every tenant falls back to.
func runCheckSMTP() int {
	cfg, err := config.Load()
	if !config.OnlyMissing(err, config.ErrMissingJWTKey) {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitConfig
	}
	def := mail.DefaultAccount(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SMTPTimeout+5*time.Second)
	defer cancel()
	if err := smtpChecker(ctx, cfg, def); err != nil {
		fmt.Fprintf(stderr, "default smtp account %s: %v\n", def.Addr(), err)
		return exitSMTP
	}
	fmt.Fprintf(stdout, "default smtp account %s ok, sending as %s\n", def.Addr(), def.FromAddressHint)
	return exitOK
}

func realSMTPChecker(ctx context.Context, cfg config.Config, def mdomain.TenantMailConfig) error {
	t, err := mail.TransportFactory(cfg).New(def)
	if err != nil {
		return err
	}
	return t.Verify(ctx)
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `shopmail API: tenant-aware transactional mail for repair shops

Usage:
  shopmail-api                  Start the API server
  shopmail-api migrate up       Apply all pending migrations
  shopmail-api migrate down     Roll back the last migration
  shopmail-api migrate status   Show applied and pending migrations
  shopmail-api migrate version  Print the current schema version
  shopmail-api check-smtp       Verify the default (fallback) SMTP account

Environment:
  SMTP_HOST, SMTP_USERNAME, SMTP_PASSWORD  default account, required to serve
  SMTP_FROM                                sender mailbox; required when SMTP_USERNAME is not an address
  JWT_SIGNING_KEY                          required unless APP_ENV=development
  MAIL_OVERRIDE_KEY                        enables encrypted per-tenant SMTP overrides
  DATABASE_URL, MIGRATIONS_DIR             Postgres and goose migrations
`)
}
