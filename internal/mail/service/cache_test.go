package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evdomain "github.com/corvusHold/shopmail/internal/events/domain"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
)

func TestCache_HitReusesTransport(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	c := fx.svc.Cache()

	first, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	second, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), fx.factory.newCalls.Load())
	assert.Equal(t, mdomain.SourceTenant, first.Source)
	assert.False(t, first.Degraded)
	assert.Equal(t, 1, c.Len())
}

func TestCache_VerifyFailureCachesDefault(t *testing.T) {
	fx := newFixture()
	fx.factory.failVerify("mail.handyklinik.test")
	ctx := context.Background()
	c := fx.svc.Cache()

	ct, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	assert.Equal(t, mdomain.SourceDefault, ct.Source)
	assert.Equal(t, defaultAccount.Host, ct.Config.Host)
	assert.True(t, ct.Degraded)
	assert.Contains(t, ct.Reason, "535")

	// The degraded entry is reused; no second verify attempt.
	again, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	assert.Same(t, ct, again)
	assert.Equal(t, int64(2), fx.factory.newCalls.Load())

	assert.Equal(t, []string{evdomain.TypeTransportDegraded}, fx.pub.types())

	st := c.Status(fx.tenantA)
	assert.True(t, st.Cached)
	assert.True(t, st.Degraded)
	assert.Equal(t, mdomain.SourceDefault, st.Source)
	require.NotNil(t, st.CreatedAt)
}

func TestCache_DefaultTenantNotDegraded(t *testing.T) {
	fx := newFixture()
	fx.factory.failVerify(defaultAccount.Host)

	ct, err := fx.svc.Cache().Get(context.Background(), fx.tenantB)
	require.NoError(t, err)
	assert.Equal(t, mdomain.SourceDefault, ct.Source)
	assert.False(t, ct.Degraded)
	assert.NotEmpty(t, ct.Reason)
	assert.Empty(t, fx.pub.types())
}

func TestCache_ClearOne(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	c := fx.svc.Cache()

	_, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	_, err = c.Get(ctx, fx.tenantB)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	c.Clear(&fx.tenantA)
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Status(fx.tenantA).Cached)
	assert.True(t, c.Status(fx.tenantB).Cached)

	_, err = c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fx.factory.newCalls.Load())
}

func TestCache_ClearAll(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	c := fx.svc.Cache()

	_, _ = c.Get(ctx, fx.tenantA)
	_, _ = c.Get(ctx, fx.tenantB)
	c.Clear(nil)
	assert.Equal(t, 0, c.Len())

	_, _ = c.Get(ctx, fx.tenantA)
	_, _ = c.Get(ctx, fx.tenantB)
	assert.Equal(t, int64(4), fx.factory.newCalls.Load())
}

func TestCache_ClearPicksUpNewSettings(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	c := fx.svc.Cache()

	ct, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	require.Equal(t, "mail.handyklinik.test", ct.Config.Host)

	s := fx.settings.rows[fx.tenantA]
	s.SMTPHost = "smtp.neu.test"
	fx.settings.rows[fx.tenantA] = s

	ct, err = c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	assert.Equal(t, "mail.handyklinik.test", ct.Config.Host, "cache has no expiry")

	c.Clear(&fx.tenantA)
	ct, err = c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	assert.Equal(t, "smtp.neu.test", ct.Config.Host)
}

func TestCache_StatusMiss(t *testing.T) {
	fx := newFixture()
	st := fx.svc.Cache().Status(uuid.New())
	assert.False(t, st.Cached)
	assert.Nil(t, st.CreatedAt)
}

func TestCache_ConcurrentGet(t *testing.T) {
	fx := newFixture()
	c := fx.svc.Cache()

	var wg sync.WaitGroup
	results := make([]*mdomain.CachedTransport, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ct, err := c.Get(context.Background(), fx.tenantA)
			if err == nil {
				results[i] = ct
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "mail.handyklinik.test", r.Config.Host)
	}
	assert.Equal(t, 1, c.Len())
}

func TestCache_CanceledCallerStillGetsEntry(t *testing.T) {
	fx := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ct, err := fx.svc.Cache().Get(ctx, fx.tenantA)
	require.NoError(t, err)
	assert.Equal(t, mdomain.SourceTenant, ct.Source)
}

func TestEvict_OnlyDropsMatchingEntry(t *testing.T) {
	fx := newFixture()
	c := fx.svc.Cache()
	ctx := context.Background()

	old, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	tenant := fx.tenantA
	c.Clear(&tenant)
	fresh, err := c.Get(ctx, fx.tenantA)
	require.NoError(t, err)
	require.NotSame(t, old, fresh)

	c.Evict(fx.tenantA, old)
	assert.True(t, c.Status(fx.tenantA).Cached)

	c.Evict(fx.tenantA, fresh)
	assert.False(t, c.Status(fx.tenantA).Cached)
}
