package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	sdomain "github.com/corvusHold/shopmail/internal/settings/domain"
	udomain "github.com/corvusHold/shopmail/internal/users/domain"
)

// SettingsReader is the read side of the business settings repository.
type SettingsReader interface {
	Latest(ctx context.Context, userID uuid.UUID) (sdomain.BusinessSettings, bool, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (udomain.User, error)
}

type OverrideReader interface {
	Get(ctx context.Context, tenantID uuid.UUID) (mdomain.TenantMailConfig, bool, error)
}

// Resolver decides which SMTP account a tenant's mail goes through:
// a complete override, else complete business settings, else the default account.
type Resolver struct {
	settings  SettingsReader
	users     UserReader
	overrides OverrideReader
	def       mdomain.TenantMailConfig
	defName   string
	log       zerolog.Logger
}

// NewResolver builds a Resolver. users and overrides may be nil.
func NewResolver(settings SettingsReader, users UserReader, overrides OverrideReader, def mdomain.TenantMailConfig, defName string, log zerolog.Logger) *Resolver {
	return &Resolver{
		settings:  settings,
		users:     users,
		overrides: overrides,
		def:       def.Normalize(),
		defName:   defName,
		log:       log,
	}
}

// Default returns the process-wide fallback account.
func (r *Resolver) Default() mdomain.TenantMailConfig { return r.def }

func (r *Resolver) defaultResolved() mdomain.ResolvedConfig {
	return mdomain.ResolvedConfig{Config: r.def, Source: mdomain.SourceDefault}
}

// Resolve never fails: read errors and incomplete settings yield the default account.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID) mdomain.ResolvedConfig {
	if r.overrides != nil {
		cfg, ok, err := r.overrides.Get(ctx, tenantID)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("mail override lookup failed")
		case ok && cfg.Complete():
			return mdomain.ResolvedConfig{Config: cfg.Normalize(), Source: mdomain.SourceOverride}
		case ok:
			r.log.Warn().Str("tenant_id", tenantID.String()).Msg("ignoring incomplete mail override")
		}
	}

	if r.settings == nil {
		return r.defaultResolved()
	}
	s, ok, err := r.settings.Latest(ctx, tenantID)
	if err != nil {
		r.log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("business settings lookup failed, using default smtp account")
		return r.defaultResolved()
	}
	if !ok || !s.HasSMTP() {
		return r.defaultResolved()
	}

	user := strings.TrimSpace(s.SMTPUser)
	cfg := mdomain.TenantMailConfig{
		Host:            strings.TrimSpace(s.SMTPHost),
		Port:            mdomain.ParsePort(s.SMTPPort),
		Username:        user,
		Password:        s.SMTPPassword,
		FromAddressHint: user,
	}
	return mdomain.ResolvedConfig{Config: cfg.Normalize(), Source: mdomain.SourceTenant}
}

// Profile looks up the shop name and contact email for the From header.
// Lookup failures are logged and leave fields empty; the shop name falls back
// to the username, then to the default sender name.
func (r *Resolver) Profile(ctx context.Context, tenantID uuid.UUID) mdomain.SenderProfile {
	var p mdomain.SenderProfile
	if r.settings != nil {
		s, ok, err := r.settings.Latest(ctx, tenantID)
		if err != nil {
			r.log.Debug().Err(err).Str("tenant_id", tenantID.String()).Msg("sender profile: settings unavailable")
		} else if ok {
			p.ShopName = strings.TrimSpace(s.BusinessName)
			p.Email = strings.TrimSpace(s.Email)
		}
	}
	if p.ShopName == "" && r.users != nil {
		u, err := r.users.GetByID(ctx, tenantID)
		if err != nil {
			r.log.Debug().Err(err).Str("tenant_id", tenantID.String()).Msg("sender profile: user unavailable")
		} else {
			p.ShopName = strings.TrimSpace(u.Username)
			if p.Email == "" {
				p.Email = strings.TrimSpace(u.Email)
			}
		}
	}
	if p.ShopName == "" {
		p.ShopName = r.defName
	}
	return p
}

// senderAddress picks the mailbox for a synthesized From header: the
// config's address hint or username, then the tenant's settings email,
// then the default account. Non-address usernames (e.g. "apikey") are skipped.
func senderAddress(cfg mdomain.TenantMailConfig, p mdomain.SenderProfile, def mdomain.TenantMailConfig) string {
	for _, candidate := range []string{cfg.FromAddressHint, cfg.Username, p.Email} {
		if mdomain.IsEmail(candidate) {
			return strings.TrimSpace(candidate)
		}
	}
	return defaultAddress(def)
}

func defaultAddress(def mdomain.TenantMailConfig) string {
	if mdomain.IsEmail(def.FromAddressHint) {
		return def.FromAddressHint
	}
	return def.Username
}
