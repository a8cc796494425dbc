package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/corvusHold/shopmail/internal/config"
)

type bootstrapResult struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	UserID    uuid.UUID `json:"user_id"`
	Roles     []string  `json:"roles,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func main() {
	_ = godotenv.Load()
	var (
		tokenTTL = flag.Duration("ttl", 15*time.Minute, "lifetime for the issued token")
		tenant   = flag.String("tenant", os.Getenv("TENANT_ID"), "tenant UUID the token is scoped to")
		user     = flag.String("user", "", "user UUID (defaults to the tenant id, shop owners are their own tenant)")
		roles    = flag.String("roles", "", "comma-separated roles, e.g. admin")
		output   = flag.String("output", "env", "output format: env or json")
	)
	flag.Parse()

	cfg, err := config.Load()
	if !config.OnlyMissing(err, config.ErrMissingSMTP) {
		log.Fatalf("failed to load config: %v", err)
	}

	tenantID, err := uuid.Parse(strings.TrimSpace(*tenant))
	if err != nil {
		log.Fatalf("invalid --tenant: %v", err)
	}
	userID := tenantID
	if strings.TrimSpace(*user) != "" {
		if userID, err = uuid.Parse(strings.TrimSpace(*user)); err != nil {
			log.Fatalf("invalid --user: %v", err)
		}
	}

	now := time.Now()
	res := bootstrapResult{
		TenantID:  tenantID,
		UserID:    userID,
		Roles:     parseRoles(*roles),
		ExpiresAt: now.Add(*tokenTTL).UTC(),
	}
	res.Token, err = mintToken(cfg.JWTSigningKey, res, now)
	if err != nil {
		log.Fatalf("failed to mint token: %v", err)
	}

	switch strings.ToLower(*output) {
	case "json":
		encodeJSON(res)
	case "env":
		printEnv(res)
	default:
		log.Fatalf("unsupported output format: %s", *output)
	}
}

func mintToken(signingKey string, res bootstrapResult, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": res.UserID.String(),
		"ten": res.TenantID.String(),
		"exp": res.ExpiresAt.Unix(),
		"iat": now.Unix(),
	}
	if len(res.Roles) > 0 {
		claims["roles"] = res.Roles
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(signingKey))
}

// parseRoles lowercases, trims and dedupes a comma-separated role list.
func parseRoles(csv string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range strings.Split(csv, ",") {
		r := strings.ToLower(strings.TrimSpace(p))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func encodeJSON(res bootstrapResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("failed to encode JSON: %v", err)
	}
}

func printEnv(res bootstrapResult) {
	vars := map[string]string{
		"SHOPMAIL_API_TOKEN":   res.Token,
		"SHOPMAIL_TENANT_ID":   res.TenantID.String(),
		"BOOTSTRAP_USER_ID":    res.UserID.String(),
		"BOOTSTRAP_EXPIRES_AT": res.ExpiresAt.Format(time.RFC3339),
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, vars[k])
	}
}
