package domain

import (
	"context"
	"fmt"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPort is used when a configured port is missing or unparsable.
const DefaultPort = 587

// TenantMailConfig is a resolved SMTP submission account.
type TenantMailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Secure   bool   `json:"secure"` // implicit TLS, true iff Port == 465
	Username string `json:"username"`
	Password string `json:"-"`
	// FromAddressHint is the address used to build the visible From header.
	FromAddressHint string `json:"from_address,omitempty"`
}

// Complete reports whether host, username and password are all set.
// Incomplete configs are never used for sending.
func (c TenantMailConfig) Complete() bool {
	return strings.TrimSpace(c.Host) != "" &&
		strings.TrimSpace(c.Username) != "" &&
		c.Password != ""
}

// Normalize trims fields, applies the default port and derives Secure.
func (c TenantMailConfig) Normalize() TenantMailConfig {
	c.Host = strings.TrimSpace(c.Host)
	c.Username = strings.TrimSpace(c.Username)
	c.FromAddressHint = strings.TrimSpace(c.FromAddressHint)
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = DefaultPort
	}
	c.Secure = c.Port == 465
	if c.FromAddressHint == "" {
		c.FromAddressHint = c.Username
	}
	return c
}

func (c TenantMailConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParsePort parses a stored port value, falling back to DefaultPort.
func ParsePort(s string) int {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p <= 0 || p > 65535 {
		return DefaultPort
	}
	return p
}

// ConfigSource tells where a TenantMailConfig came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceTenant   ConfigSource = "tenant"
	SourceOverride ConfigSource = "override"
)

type ResolvedConfig struct {
	Config TenantMailConfig
	Source ConfigSource
}

// SenderProfile carries what is known about a tenant for the From header.
type SenderProfile struct {
	ShopName string
	Email    string
}

// Address is a display name plus mailbox.
type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	name := strings.TrimSpace(strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(a.Name))
	if len(name) == 0 {
		return a.Email
	}
	return fmt.Sprintf("\"%s\" <%s>", name, a.Email)
}

// IsEmail reports whether s parses as a bare mailbox address.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "@") {
		return false
	}
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

type OutboundMessage struct {
	To          []string          `json:"to"`
	From        string            `json:"from,omitempty"`
	ReplyTo     string            `json:"reply_to,omitempty"`
	Subject     string            `json:"subject"`
	HTML        string            `json:"html,omitempty"`
	Text        string            `json:"text,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

// SendResult is the outcome of SendMail. UsedFallback is true whenever the
// message left through the default account: after a failed primary send, or
// because the tenant's cached entry is Degraded (its own SMTP account was
// rejected at build time).
type SendResult struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
	Degraded     bool   `json:"degraded"`
	Error        string `json:"error,omitempty"`
}

// TestResult is returned by the diagnostics operations; Message is shown to admins verbatim.
type TestResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
}

// Transport submits mail through one SMTP account. Implementations must be
// safe for concurrent use.
type Transport interface {
	// Verify connects, negotiates TLS and authenticates without sending.
	Verify(ctx context.Context) error
	// Send delivers msg and returns the Message-ID header value.
	Send(ctx context.Context, msg OutboundMessage) (string, error)
}

type TransportFactory interface {
	New(cfg TenantMailConfig) (Transport, error)
}

// CachedTransport is an entry of the transport cache. Entries are never mutated once stored.
type CachedTransport struct {
	Transport Transport
	Config    TenantMailConfig
	Source    ConfigSource
	Degraded  bool
	Reason    string
	CreatedAt time.Time
}

type CacheStatus struct {
	Cached    bool         `json:"cached"`
	Source    ConfigSource `json:"source,omitempty"`
	Host      string       `json:"host,omitempty"`
	Port      int          `json:"port,omitempty"`
	Username  string       `json:"username,omitempty"`
	Degraded  bool         `json:"degraded"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
}

// OverrideRepository stores explicit per-tenant SMTP accounts that take
// precedence over business settings.
type OverrideRepository interface {
	Get(ctx context.Context, tenantID uuid.UUID) (TenantMailConfig, bool, error)
	Put(ctx context.Context, tenantID uuid.UUID, cfg TenantMailConfig) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
}

// Dispatcher is the API the rest of the application uses to send mail.
// None of its methods return errors; failures are reported in the results.
type Dispatcher interface {
	SendMail(ctx context.Context, tenantID uuid.UUID, msg OutboundMessage) SendResult
	TestConnection(ctx context.Context, tenantID uuid.UUID, override *TenantMailConfig) TestResult
	SendTestEmail(ctx context.Context, tenantID uuid.UUID, to string, override *TenantMailConfig) TestResult
	ClearCache(tenantID *uuid.UUID)
	Status(tenantID uuid.UUID) CacheStatus
}
