package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/corvusHold/shopmail/internal/config"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	mrepo "github.com/corvusHold/shopmail/internal/mail/repository"
	"github.com/corvusHold/shopmail/internal/platform/secretbox"
	sdomain "github.com/corvusHold/shopmail/internal/settings/domain"
	srepo "github.com/corvusHold/shopmail/internal/settings/repository"
	udomain "github.com/corvusHold/shopmail/internal/users/domain"
	urepo "github.com/corvusHold/shopmail/internal/users/repository"
)

func main() {
	_ = godotenv.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// The seed tool never sends mail or checks tokens.
	cfg, err := config.Load()
	if !config.OnlyMissing(err, config.ErrMissingSMTP, config.ErrMissingJWTKey) {
		fatalf("load config: %v", err)
	}
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		fatalf("invalid DATABASE_URL: %v", err)
	}
	pgPool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		fatalf("pg pool: %v", err)
	}
	defer pgPool.Close()

	switch os.Args[1] {
	case "shop":
		fs := flag.NewFlagSet("shop", flag.ExitOnError)
		idStr := fs.String("id", os.Getenv("TENANT_ID"), "tenant/user UUID (generated when empty)")
		username := fs.String("username", envOr("USERNAME", "Reparaturservice"), "shop owner username")
		email := fs.String("email", os.Getenv("EMAIL"), "shop owner email")
		business := fs.String("business-name", os.Getenv("BUSINESS_NAME"), "business name shown in the From header")
		smtpHost := fs.String("smtp-host", os.Getenv("SHOP_SMTP_HOST"), "shop SMTP host")
		smtpPort := fs.String("smtp-port", os.Getenv("SHOP_SMTP_PORT"), "shop SMTP port")
		smtpUser := fs.String("smtp-user", os.Getenv("SHOP_SMTP_USER"), "shop SMTP username")
		smtpPass := fs.String("smtp-pass", os.Getenv("SHOP_SMTP_PASSWORD"), "shop SMTP password")
		_ = fs.Parse(os.Args[2:])

		id, err := parseOrNewID(*idStr)
		if err != nil {
			fatalf("invalid id: %v", err)
		}
		users := urepo.New(pgPool)
		created, err := ensureUser(ctx, users, udomain.User{ID: id, Username: strings.TrimSpace(*username), Email: strings.TrimSpace(*email)})
		if err != nil {
			fatalf("user create: %v", err)
		}
		row, err := srepo.New(pgPool).Insert(ctx, sdomain.BusinessSettings{
			UserID:       id,
			BusinessName: strings.TrimSpace(*business),
			Email:        strings.TrimSpace(*email),
			SMTPHost:     strings.TrimSpace(*smtpHost),
			SMTPPort:     strings.TrimSpace(*smtpPort),
			SMTPUser:     strings.TrimSpace(*smtpUser),
			SMTPPassword: *smtpPass,
		})
		if err != nil {
			fatalf("business settings insert: %v", err)
		}
		printEnv(map[string]string{
			"TENANT_ID":   id.String(),
			"SETTINGS_ID": row.ID.String(),
			"HAS_SMTP":    strconv.FormatBool(row.HasSMTP()),
		})
		if created {
			stderr("created shop user %s", id)
		} else {
			stderr("existing shop user %s, appended settings row", id)
		}
	case "override":
		fs := flag.NewFlagSet("override", flag.ExitOnError)
		idStr := fs.String("tenant-id", os.Getenv("TENANT_ID"), "tenant UUID")
		host := fs.String("host", os.Getenv("OVERRIDE_SMTP_HOST"), "SMTP host")
		port := fs.Int("port", envOrInt("OVERRIDE_SMTP_PORT", 587), "SMTP port")
		user := fs.String("user", os.Getenv("OVERRIDE_SMTP_USER"), "SMTP username")
		pass := fs.String("pass", os.Getenv("OVERRIDE_SMTP_PASSWORD"), "SMTP password")
		from := fs.String("from", os.Getenv("OVERRIDE_FROM"), "From address for this tenant")
		remove := fs.Bool("delete", false, "delete the tenant's override instead of writing one")
		_ = fs.Parse(os.Args[2:])

		if strings.TrimSpace(*idStr) == "" {
			fatalf("tenant-id is required")
		}
		tenantID, err := uuid.Parse(strings.TrimSpace(*idStr))
		if err != nil {
			fatalf("invalid tenant-id: %v", err)
		}
		if cfg.MailOverrideKey == "" {
			fatalf("MAIL_OVERRIDE_KEY is required to store overrides")
		}
		box, err := secretbox.Parse(cfg.MailOverrideKey)
		if err != nil {
			fatalf("MAIL_OVERRIDE_KEY: %v", err)
		}
		overrides := mrepo.NewOverrides(pgPool, box)
		if *remove {
			if err := overrides.Delete(ctx, tenantID); err != nil {
				fatalf("delete override: %v", err)
			}
			stderr("deleted mail override for tenant %s", tenantID)
			return
		}
		err = overrides.Put(ctx, tenantID, mdomain.TenantMailConfig{
			Host:            *host,
			Port:            *port,
			Username:        *user,
			Password:        *pass,
			FromAddressHint: *from,
		})
		if errors.Is(err, mdomain.ErrConfigIncomplete) {
			fatalf("host, user and pass are required")
		}
		if err != nil {
			fatalf("store override: %v", err)
		}
		printEnv(map[string]string{"TENANT_ID": tenantID.String(), "OVERRIDE_HOST": strings.TrimSpace(*host)})
		stderr("stored mail override for tenant %s (restart or clear the mail cache to apply)", tenantID)
	default:
		usage()
		os.Exit(2)
	}
}

// ensureUser creates u unless a user with the same id already exists.
func ensureUser(ctx context.Context, repo udomain.Repository, u udomain.User) (bool, error) {
	if u.Username == "" {
		return false, fmt.Errorf("username is required")
	}
	if _, err := repo.GetByID(ctx, u.ID); err == nil {
		return false, nil
	}
	if err := repo.Create(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}

func parseOrNewID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  seed shop [--id <uuid>] --username <name> [--email <email>] [--business-name <name>]
            [--smtp-host <host> --smtp-port <port> --smtp-user <user> --smtp-pass <pass>]
  seed override --tenant-id <uuid> --host <host> [--port 587] --user <user> --pass <pass> [--from <email>]
  seed override --tenant-id <uuid> --delete

Environment fallbacks:
  TENANT_ID, USERNAME, EMAIL, BUSINESS_NAME,
  SHOP_SMTP_HOST, SHOP_SMTP_PORT, SHOP_SMTP_USER, SHOP_SMTP_PASSWORD,
  OVERRIDE_SMTP_HOST, OVERRIDE_SMTP_PORT, OVERRIDE_SMTP_USER, OVERRIDE_SMTP_PASSWORD, OVERRIDE_FROM
`)
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envOrInt(k string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return n
	}
	return def
}

// printEnv prints KEY=VALUE lines so callers can tee into a .env file.
func printEnv(kv map[string]string) {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, kv[k])
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func stderr(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
}
