package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"

	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
)

const testEmailSubject = "SMTP-Test"

var testEmailTmpl = template.Must(template.New("smtp-test").Parse(`<!DOCTYPE html>
<html lang="de">
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>SMTP-Test erfolgreich</h2>
  <p>Diese E-Mail bestätigt, dass {{.ShopName}} E-Mails über den konfigurierten SMTP-Server versenden kann.</p>
  <table cellpadding="4">
    <tr><td><strong>Server</strong></td><td>{{.Host}}</td></tr>
    <tr><td><strong>Port</strong></td><td>{{.Port}}</td></tr>
    <tr><td><strong>Verschlüsselung</strong></td><td>{{if .Secure}}SSL/TLS{{else}}STARTTLS (falls angeboten){{end}}</td></tr>
    <tr><td><strong>Benutzername</strong></td><td>{{.Username}}</td></tr>
    <tr><td><strong>Gesendet</strong></td><td>{{.SentAt}}</td></tr>
  </table>
</body>
</html>`))

// diagnosticConfig returns the normalised override, or the resolved tenant config.
func (s *Service) diagnosticConfig(ctx context.Context, tenantID uuid.UUID, override *mdomain.TenantMailConfig) (mdomain.TenantMailConfig, error) {
	if override == nil {
		return s.resolver.Resolve(ctx, tenantID).Config, nil
	}
	cfg := override.Normalize()
	if !cfg.Complete() {
		return cfg, fmt.Errorf("%w: Server, Benutzername und Passwort sind erforderlich", mdomain.ErrConfigIncomplete)
	}
	return cfg, nil
}

// verifyThrowaway builds a transport outside the cache and verifies it.
func (s *Service) verifyThrowaway(ctx context.Context, cfg mdomain.TenantMailConfig) (mdomain.Transport, error) {
	t, err := s.factory.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := t.Verify(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// TestConnection verifies the tenant's (or the supplied) SMTP account.
// It never touches the transport cache.
func (s *Service) TestConnection(ctx context.Context, tenantID uuid.UUID, override *mdomain.TenantMailConfig) mdomain.TestResult {
	log := s.log.With().Str("tenant_id", tenantID.String()).Logger()
	cfg, err := s.diagnosticConfig(ctx, tenantID, override)
	if err == nil {
		_, err = s.verifyThrowaway(ctx, cfg)
	}
	if err != nil {
		log.Info().Err(err).Str("host", cfg.Host).Msg("smtp connection test failed")
		return mdomain.TestResult{Success: false, Message: fmt.Sprintf("SMTP-Verbindung fehlgeschlagen: %v", err)}
	}
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("smtp connection test succeeded")
	return mdomain.TestResult{Success: true, Message: fmt.Sprintf("SMTP-Verbindung zu %s erfolgreich", cfg.Addr())}
}

// SendTestEmail verifies the account like TestConnection and then sends a
// fixed diagnostic message to the given address.
func (s *Service) SendTestEmail(ctx context.Context, tenantID uuid.UUID, to string, override *mdomain.TenantMailConfig) mdomain.TestResult {
	log := s.log.With().Str("tenant_id", tenantID.String()).Logger()
	fail := func(err error) mdomain.TestResult {
		log.Info().Err(err).Msg("test email failed")
		return mdomain.TestResult{Success: false, Message: fmt.Sprintf("Test-E-Mail fehlgeschlagen: %v", err)}
	}

	to = strings.TrimSpace(to)
	if !mdomain.IsEmail(to) {
		return fail(fmt.Errorf("%w: ungültige Empfängeradresse %q", mdomain.ErrTestFailed, to))
	}
	cfg, err := s.diagnosticConfig(ctx, tenantID, override)
	if err != nil {
		return fail(err)
	}
	t, err := s.verifyThrowaway(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	profile := s.resolver.Profile(ctx, tenantID)
	var body bytes.Buffer
	if err := testEmailTmpl.Execute(&body, map[string]any{
		"ShopName": profile.ShopName,
		"Host":     cfg.Host,
		"Port":     cfg.Port,
		"Secure":   cfg.Secure,
		"Username": cfg.Username,
		"SentAt":   s.now().Format("02.01.2006 15:04:05"),
	}); err != nil {
		return fail(err)
	}

	msg := mdomain.OutboundMessage{
		To:      []string{to},
		From:    mdomain.Address{Name: profile.ShopName, Email: senderAddress(cfg, profile, s.resolver.Default())}.String(),
		Subject: testEmailSubject,
		HTML:    body.String(),
		Text:    fmt.Sprintf("SMTP-Test erfolgreich.\nServer: %s\nPort: %d\nBenutzername: %s\n", cfg.Host, cfg.Port, cfg.Username),
	}
	id, err := t.Send(ctx, msg)
	if err != nil {
		return fail(err)
	}
	log.Info().Str("to", to).Str("message_id", id).Msg("test email sent")
	return mdomain.TestResult{Success: true, Message: fmt.Sprintf("Test-E-Mail an %s gesendet", to), MessageID: id}
}
