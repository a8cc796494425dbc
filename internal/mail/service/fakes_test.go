package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	evdomain "github.com/corvusHold/shopmail/internal/events/domain"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	sdomain "github.com/corvusHold/shopmail/internal/settings/domain"
	udomain "github.com/corvusHold/shopmail/internal/users/domain"
)

// fakeFactory hands out fakeTransports keyed by host. Hosts listed in
// verifyErr or sendErr fail the corresponding operation.
type fakeFactory struct {
	mu        sync.Mutex
	verifyErr map[string]error
	sendErr   map[string]error
	newCalls  atomic.Int64
	built     []*fakeTransport
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{verifyErr: map[string]error{}, sendErr: map[string]error{}}
}

func (f *fakeFactory) New(cfg mdomain.TenantMailConfig) (mdomain.Transport, error) {
	f.newCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTransport{cfg: cfg, verifyErr: f.verifyErr[cfg.Host], sendErr: f.sendErr[cfg.Host]}
	f.built = append(f.built, t)
	return t, nil
}

func (f *fakeFactory) failVerify(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyErr[host] = fmt.Errorf("%w: 535 authentication failed", mdomain.ErrVerifyFailed)
}

func (f *fakeFactory) failSend(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr[host] = fmt.Errorf("%w: 550 rejected", mdomain.ErrSendFailed)
}

func (f *fakeFactory) rejectMessages(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr[host] = fmt.Errorf("%w: %w: 550 5.1.1 mailbox unavailable", mdomain.ErrSendFailed, mdomain.ErrMessageRejected)
}

// sent returns every message delivered by transports for host.
func (f *fakeFactory) sent(host string) []mdomain.OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mdomain.OutboundMessage
	for _, t := range f.built {
		if t.cfg.Host != host {
			continue
		}
		t.mu.Lock()
		out = append(out, t.sent...)
		t.mu.Unlock()
	}
	return out
}

type fakeTransport struct {
	cfg       mdomain.TenantMailConfig
	verifyErr error
	sendErr   error

	mu          sync.Mutex
	verifyCalls int
	sent        []mdomain.OutboundMessage
}

func (t *fakeTransport) Verify(ctx context.Context) error {
	t.mu.Lock()
	t.verifyCalls++
	t.mu.Unlock()
	return t.verifyErr
}

func (t *fakeTransport) Send(ctx context.Context, msg mdomain.OutboundMessage) (string, error) {
	if t.sendErr != nil {
		return "", t.sendErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return fmt.Sprintf("<%d@%s>", len(t.sent), t.cfg.Host), nil
}

type fakeSettings struct {
	rows  map[uuid.UUID]sdomain.BusinessSettings
	err   error
	reads atomic.Int64
}

func (f *fakeSettings) Latest(ctx context.Context, userID uuid.UUID) (sdomain.BusinessSettings, bool, error) {
	f.reads.Add(1)
	if f.err != nil {
		return sdomain.BusinessSettings{}, false, f.err
	}
	s, ok := f.rows[userID]
	return s, ok, nil
}

type fakeUsers struct{ rows map[uuid.UUID]udomain.User }

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (udomain.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return udomain.User{}, errors.New("user not found")
	}
	return u, nil
}

type fakeOverrides struct {
	rows map[uuid.UUID]mdomain.TenantMailConfig
	err  error
}

func (f *fakeOverrides) Get(ctx context.Context, tenantID uuid.UUID) (mdomain.TenantMailConfig, bool, error) {
	if f.err != nil {
		return mdomain.TenantMailConfig{}, false, f.err
	}
	c, ok := f.rows[tenantID]
	return c, ok, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []evdomain.Event
}

func (p *capturePublisher) Publish(ctx context.Context, e evdomain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var defaultAccount = mdomain.TenantMailConfig{
	Host:            "smtp.default.test",
	Port:            587,
	Username:        "noreply@default.test",
	Password:        "default-secret",
	FromAddressHint: "noreply@default.test",
}

// fixture wires a Service with two tenants: A has complete SMTP settings,
// B has only a user row.
type fixture struct {
	tenantA, tenantB uuid.UUID
	settings         *fakeSettings
	users            *fakeUsers
	overrides        *fakeOverrides
	factory          *fakeFactory
	pub              *capturePublisher
	svc              *Service
}

func newFixture() *fixture {
	fx := &fixture{
		tenantA:   uuid.New(),
		tenantB:   uuid.New(),
		factory:   newFakeFactory(),
		pub:       &capturePublisher{},
		overrides: &fakeOverrides{rows: map[uuid.UUID]mdomain.TenantMailConfig{}},
	}
	fx.settings = &fakeSettings{rows: map[uuid.UUID]sdomain.BusinessSettings{
		fx.tenantA: {
			UserID:       fx.tenantA,
			BusinessName: "Handy Klinik",
			Email:        "kontakt@handyklinik.test",
			SMTPHost:     "mail.handyklinik.test",
			SMTPPort:     "465",
			SMTPUser:     "info@handyklinik.test",
			SMTPPassword: "shop-secret",
		},
	}}
	fx.users = &fakeUsers{rows: map[uuid.UUID]udomain.User{
		fx.tenantA: {ID: fx.tenantA, Username: "handyklinik", Email: "owner@handyklinik.test"},
		fx.tenantB: {ID: fx.tenantB, Username: "Laptop Doktor", Email: "owner@laptopdoktor.test"},
	}}
	resolver := NewResolver(fx.settings, fx.users, fx.overrides, defaultAccount, "Reparaturservice", zerolog.Nop())
	fx.svc = New(resolver, fx.factory, fx.pub, zerolog.Nop())
	return fx
}
