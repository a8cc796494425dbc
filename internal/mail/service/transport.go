package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"

	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	"github.com/corvusHold/shopmail/internal/version"
)

// FactoryOptions are process-wide SMTP client settings shared by every tenant.
type FactoryOptions struct {
	Timeout time.Duration
	// InsecureSkipVerify disables certificate checks; many shop mail hosts
	// present certificates for a different name.
	InsecureSkipVerify bool
	HELO               string
}

// GoMailFactory builds transports on top of wneessen/go-mail.
type GoMailFactory struct {
	opts FactoryOptions
}

func NewGoMailFactory(opts FactoryOptions) *GoMailFactory {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &GoMailFactory{opts: opts}
}

func (f *GoMailFactory) New(cfg mdomain.TenantMailConfig) (mdomain.Transport, error) {
	cfg = cfg.Normalize()
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: missing host", mdomain.ErrConfigIncomplete)
	}
	return &goMailTransport{cfg: cfg, opts: f.opts}, nil
}

// goMailTransport dials a new client per operation, so it holds no
// connection state and can be shared between goroutines.
type goMailTransport struct {
	cfg  mdomain.TenantMailConfig
	opts FactoryOptions
}

func (t *goMailTransport) client() (*gomail.Client, error) {
	tlsCfg := &tls.Config{
		ServerName:         t.cfg.Host,
		InsecureSkipVerify: t.opts.InsecureSkipVerify, //nolint:gosec // operator-controlled
	}
	if !t.opts.InsecureSkipVerify {
		tlsCfg.MinVersion = tls.VersionTLS12
	}
	opts := []gomail.Option{
		gomail.WithPort(t.cfg.Port),
		gomail.WithTimeout(t.opts.Timeout),
		gomail.WithTLSConfig(tlsCfg),
	}
	if t.cfg.Secure {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.cfg.Username),
			gomail.WithPassword(t.cfg.Password),
		)
	}
	if t.opts.HELO != "" {
		opts = append(opts, gomail.WithHELO(t.opts.HELO))
	}
	return gomail.NewClient(t.cfg.Host, opts...)
}

func (t *goMailTransport) Verify(ctx context.Context) error {
	c, err := t.client()
	if err != nil {
		return fmt.Errorf("%w: %w", mdomain.ErrVerifyFailed, err)
	}
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", mdomain.ErrVerifyFailed, t.cfg.Addr(), err)
	}
	_ = c.Close()
	return nil
}

func (t *goMailTransport) Send(ctx context.Context, msg mdomain.OutboundMessage) (string, error) {
	m, id, err := t.build(msg)
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", mdomain.ErrSendFailed, mdomain.ErrMessageRejected, err)
	}
	c, err := t.client()
	if err != nil {
		return "", fmt.Errorf("%w: %w", mdomain.ErrSendFailed, err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		if recipientRejected(err) {
			return "", fmt.Errorf("%w: %w: %s: %w", mdomain.ErrSendFailed, mdomain.ErrMessageRejected, t.cfg.Addr(), err)
		}
		return "", fmt.Errorf("%w: %s: %w", mdomain.ErrSendFailed, t.cfg.Addr(), err)
	}
	return id, nil
}

// recipientRejected reports a permanent (5xx) RCPT TO failure.
func recipientRejected(err error) bool {
	var se *gomail.SendError
	if !errors.As(err, &se) || se.Reason != gomail.ErrSMTPRcptTo {
		return false
	}
	return se.ErrorCode() >= 500 && se.ErrorCode() < 600
}

// reservedHeaders are set by build itself; caller headers may not replace them.
var reservedHeaders = map[string]struct{}{
	"from": {}, "sender": {}, "to": {}, "cc": {}, "bcc": {}, "reply-to": {},
	"subject": {}, "date": {}, "message-id": {}, "mime-version": {},
	"content-type": {}, "content-transfer-encoding": {}, "return-path": {},
	"user-agent": {}, "x-mailer": {},
}

func reservedHeader(name string) bool {
	_, ok := reservedHeaders[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (t *goMailTransport) build(msg mdomain.OutboundMessage) (*gomail.Msg, string, error) {
	if len(msg.To) == 0 {
		return nil, "", fmt.Errorf("no recipients")
	}
	m := gomail.NewMsg()
	from := msg.From
	if strings.TrimSpace(from) == "" {
		from = t.cfg.FromAddressHint
	}
	if err := m.From(from); err != nil {
		return nil, "", fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, "", fmt.Errorf("set to: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, "", fmt.Errorf("set reply-to: %w", err)
		}
	}
	m.Subject(strings.NewReplacer("\r", "", "\n", "").Replace(msg.Subject))

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(gomail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	}

	for k, v := range msg.Headers {
		if strings.TrimSpace(k) == "" || reservedHeader(k) {
			continue
		}
		m.SetGenHeader(gomail.Header(k), v)
	}
	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Content), gomail.WithFileContentType(gomail.ContentType(ct))); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	id := uuid.NewString() + "@" + messageIDDomain(from, t.cfg.Host)
	m.SetMessageIDWithValue(id)
	m.SetDate()
	m.SetUserAgent("shopmail/" + version.String())
	return m, "<" + id + ">", nil
}

// messageIDDomain returns the domain part of the sender address, or host.
func messageIDDomain(from, host string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 {
		d := strings.Trim(from[i+1:], "> ")
		if d != "" {
			return d
		}
	}
	return host
}
