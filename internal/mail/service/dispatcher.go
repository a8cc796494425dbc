package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	evdomain "github.com/corvusHold/shopmail/internal/events/domain"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	"github.com/corvusHold/shopmail/internal/metrics"
)

// Ensure Service implements domain.Dispatcher
var _ mdomain.Dispatcher = (*Service)(nil)

// Service sends tenant mail through the tenant's own SMTP account when one is
// configured and working, and through the default account otherwise.
type Service struct {
	resolver *Resolver
	cache    *TransportCache
	factory  mdomain.TransportFactory
	pub      evdomain.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func New(resolver *Resolver, factory mdomain.TransportFactory, pub evdomain.Publisher, log zerolog.Logger) *Service {
	return &Service{
		resolver: resolver,
		cache:    NewTransportCache(resolver, factory, pub, log),
		factory:  factory,
		pub:      pub,
		log:      log,
		now:      time.Now,
	}
}

// Cache exposes the transport cache, mainly for tests and health output.
func (s *Service) Cache() *TransportCache { return s.cache }

// SendMail delivers msg for the tenant. A send failure on the tenant's
// transport is retried exactly once on a fresh default-account transport.
// The cache entry is evicted unless the message itself was rejected.
func (s *Service) SendMail(ctx context.Context, tenantID uuid.UUID, msg mdomain.OutboundMessage) mdomain.SendResult {
	start := s.now()
	log := s.log.With().Str("tenant_id", tenantID.String()).Logger()

	profile := s.resolver.Profile(ctx, tenantID)
	def := s.resolver.Default()

	var (
		primaryErr error
		degraded   bool
	)
	ct, err := s.cache.Get(ctx, tenantID)
	if err != nil {
		primaryErr = err
	} else {
		degraded = ct.Degraded
		out := msg
		if strings.TrimSpace(out.From) == "" {
			out.From = mdomain.Address{Name: profile.ShopName, Email: senderAddress(ct.Config, profile, def)}.String()
		}
		id, err := ct.Transport.Send(ctx, out)
		if err == nil {
			outcome := "primary"
			if degraded {
				outcome = "degraded"
			}
			metrics.ObserveMailSend(outcome, s.now().Sub(start).Seconds())
			log.Debug().Str("message_id", id).Str("source", string(ct.Source)).Msg("mail sent")
			// A degraded entry already routes through the default account.
			return mdomain.SendResult{Success: true, MessageID: id, UsedFallback: degraded, Degraded: degraded}
		}
		primaryErr = err
		// A rejected message says nothing about the account; keep the verified entry.
		if !errors.Is(err, mdomain.ErrMessageRejected) {
			s.cache.Evict(tenantID, ct)
		}
	}

	log.Warn().Err(primaryErr).Str("reason", failureReason(primaryErr)).Msg("mail send failed, retrying with default smtp account")

	id, fbErr := s.sendDefault(ctx, msg, profile, def)
	if fbErr == nil {
		metrics.ObserveMailSend("fallback", s.now().Sub(start).Seconds())
		s.publish(ctx, evdomain.Event{
			Type:     evdomain.TypeSendFallback,
			TenantID: tenantID,
			Meta:     map[string]string{"error": primaryErr.Error(), "reason": failureReason(primaryErr)},
		})
		log.Info().Str("message_id", id).Msg("mail sent via default smtp account")
		return mdomain.SendResult{Success: true, MessageID: id, UsedFallback: true, Degraded: degraded}
	}

	err = fmt.Errorf("%w: primary: %v; fallback: %v", mdomain.ErrSendFailedAfterFallback, primaryErr, fbErr)
	metrics.ObserveMailSend("failed", s.now().Sub(start).Seconds())
	s.publish(ctx, evdomain.Event{
		Type:     evdomain.TypeSendFailed,
		TenantID: tenantID,
		Meta: map[string]string{
			"primary_error":  primaryErr.Error(),
			"fallback_error": fbErr.Error(),
			"reason":         failureReason(primaryErr),
		},
	})
	log.Error().Err(err).Strs("to", msg.To).Msg("mail send failed")
	return mdomain.SendResult{Success: false, Degraded: degraded, Error: err.Error()}
}

// failureReason classifies a primary send error for events.
func failureReason(err error) string {
	switch {
	case errors.Is(err, mdomain.ErrMessageRejected):
		return "message"
	case errors.Is(err, mdomain.ErrVerifyFailed), errors.Is(err, mdomain.ErrConfigIncomplete):
		return "account"
	default:
		return "transport"
	}
}

// sendDefault sends through a freshly built default transport with From
// rewritten to the default account's address.
func (s *Service) sendDefault(ctx context.Context, msg mdomain.OutboundMessage, profile mdomain.SenderProfile, def mdomain.TenantMailConfig) (string, error) {
	t, err := s.factory.New(def)
	if err != nil {
		return "", err
	}
	msg.From = mdomain.Address{Name: profile.ShopName, Email: defaultAddress(def)}.String()
	return t.Send(ctx, msg)
}

// ClearCache evicts one tenant's transport, or all of them when tenantID is nil.
func (s *Service) ClearCache(tenantID *uuid.UUID) {
	s.cache.Clear(tenantID)
	ev := s.log.Info()
	if tenantID != nil {
		ev = ev.Str("tenant_id", tenantID.String())
		s.publish(context.Background(), evdomain.Event{Type: evdomain.TypeCacheCleared, TenantID: *tenantID})
	}
	ev.Msg("mail transport cache cleared")
}

// Profile returns the shop name and contact email used for the tenant's From header.
func (s *Service) Profile(ctx context.Context, tenantID uuid.UUID) mdomain.SenderProfile {
	return s.resolver.Profile(ctx, tenantID)
}

func (s *Service) Status(tenantID uuid.UUID) mdomain.CacheStatus {
	return s.cache.Status(tenantID)
}

func (s *Service) publish(ctx context.Context, e evdomain.Event) {
	if s.pub == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Debug().Err(err).Str("type", e.Type).Msg("publish event failed")
	}
}
