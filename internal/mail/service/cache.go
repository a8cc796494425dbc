package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	evdomain "github.com/corvusHold/shopmail/internal/events/domain"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	"github.com/corvusHold/shopmail/internal/metrics"
)

type configResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID) mdomain.ResolvedConfig
	Default() mdomain.TenantMailConfig
}

// TransportCache maps tenant ids to verified transports for the life of the
// process. There is no expiry; Clear is called when a tenant's SMTP settings change.
type TransportCache struct {
	resolver configResolver
	factory  mdomain.TransportFactory
	pub      evdomain.Publisher
	log      zerolog.Logger
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	gen     uint64
	entries map[uuid.UUID]*mdomain.CachedTransport
}

func NewTransportCache(resolver configResolver, factory mdomain.TransportFactory, pub evdomain.Publisher, log zerolog.Logger) *TransportCache {
	return &TransportCache{
		resolver: resolver,
		factory:  factory,
		pub:      pub,
		log:      log,
		now:      time.Now,
		entries:  map[uuid.UUID]*mdomain.CachedTransport{},
	}
}

// Get returns the tenant's cached transport, building and verifying one on a miss.
// A verify failure is not an error: the default account is cached for the
// tenant instead and the entry is flagged Degraded when a tenant-specific
// account was rejected. Get only fails if the default transport cannot be built.
func (c *TransportCache) Get(ctx context.Context, tenantID uuid.UUID) (*mdomain.CachedTransport, error) {
	c.mu.RLock()
	ct, ok := c.entries[tenantID]
	c.mu.RUnlock()
	metrics.IncMailCache(ok)
	if ok {
		return ct, nil
	}

	// The build is shared by concurrent callers; one caller's cancellation must not fail the others.
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(tenantID.String(), func() (any, error) {
		return c.build(buildCtx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*mdomain.CachedTransport), nil
}

func (c *TransportCache) build(ctx context.Context, tenantID uuid.UUID) (*mdomain.CachedTransport, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	rc := c.resolver.Resolve(ctx, tenantID)
	t, err := c.factory.New(rc.Config)
	if err == nil {
		err = t.Verify(ctx)
	}
	metrics.IncMailVerify(string(rc.Source), err == nil)

	var ct *mdomain.CachedTransport
	if err == nil {
		ct = &mdomain.CachedTransport{Transport: t, Config: rc.Config, Source: rc.Source, CreatedAt: c.now()}
	} else {
		c.log.Warn().Err(err).
			Str("tenant_id", tenantID.String()).
			Str("source", string(rc.Source)).
			Str("host", rc.Config.Host).
			Str("username", rc.Config.Username).
			Msg("smtp verify failed, caching default transport")

		def := c.resolver.Default()
		dt, derr := c.factory.New(def)
		if derr != nil {
			return nil, fmt.Errorf("build default transport: %w", derr)
		}
		ct = &mdomain.CachedTransport{
			Transport: dt,
			Config:    def,
			Source:    mdomain.SourceDefault,
			Degraded:  rc.Source != mdomain.SourceDefault,
			Reason:    err.Error(),
			CreatedAt: c.now(),
		}
		if ct.Degraded {
			c.publish(ctx, evdomain.Event{
				Type:     evdomain.TypeTransportDegraded,
				TenantID: tenantID,
				Meta: map[string]string{
					"source": string(rc.Source),
					"host":   rc.Config.Host,
					"error":  err.Error(),
				},
			})
		}
	}

	c.mu.Lock()
	// A Clear that ran during the build invalidates its result for caching, not for this caller.
	if c.gen == gen {
		c.entries[tenantID] = ct
	}
	n := len(c.entries)
	c.mu.Unlock()
	metrics.SetMailCacheEntries(n)
	return ct, nil
}

// Clear evicts one tenant, or every tenant when tenantID is nil.
// Transports already handed out stay usable.
func (c *TransportCache) Clear(tenantID *uuid.UUID) {
	c.mu.Lock()
	c.gen++
	if tenantID == nil {
		c.entries = map[uuid.UUID]*mdomain.CachedTransport{}
	} else {
		delete(c.entries, *tenantID)
	}
	n := len(c.entries)
	c.mu.Unlock()
	metrics.SetMailCacheEntries(n)
}

// Evict drops the tenant's entry if it is still ct, so the next Get
// re-resolves and re-verifies. A newer entry is left alone.
func (c *TransportCache) Evict(tenantID uuid.UUID, ct *mdomain.CachedTransport) {
	c.mu.Lock()
	if cur, ok := c.entries[tenantID]; ok && cur == ct {
		delete(c.entries, tenantID)
	}
	n := len(c.entries)
	c.mu.Unlock()
	metrics.SetMailCacheEntries(n)
}

// Len returns the number of cached tenants.
func (c *TransportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TransportCache) Status(tenantID uuid.UUID) mdomain.CacheStatus {
	c.mu.RLock()
	ct, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok {
		return mdomain.CacheStatus{}
	}
	created := ct.CreatedAt
	return mdomain.CacheStatus{
		Cached:    true,
		Source:    ct.Source,
		Host:      ct.Config.Host,
		Port:      ct.Config.Port,
		Username:  ct.Config.Username,
		Degraded:  ct.Degraded,
		Reason:    ct.Reason,
		CreatedAt: &created,
	}
}

func (c *TransportCache) publish(ctx context.Context, e evdomain.Event) {
	if c.pub == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = c.now()
	}
	if err := c.pub.Publish(ctx, e); err != nil {
		c.log.Debug().Err(err).Str("type", e.Type).Msg("publish event failed")
	}
}
