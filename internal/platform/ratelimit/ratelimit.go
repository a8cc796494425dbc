package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/corvusHold/shopmail/internal/metrics"
)

// Policy defines a simple fixed-window rate limit.
// Limit requests within Window per derived key.
type Policy struct {
	// Name is a short identifier for the limited endpoint, used for logging/metrics (e.g. "mail:test-email").
	Name   string
	Window time.Duration
	Limit  int
	// Key builds the bucket key for this request.
	Key func(echo.Context) string
}

// Store abstracts a shared counter store (e.g., Redis) for fixed-window limiting.
type Store interface {
	// Allow increments the counter for the key in the given window and returns whether the request is allowed.
	// If not allowed, retryAfterSec indicates seconds until the window resets.
	Allow(ctx echo.Context, key string, limit int, window time.Duration) (allowed bool, retryAfterSec int, err error)
}

func (p Policy) withDefaults() Policy {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Limit <= 0 {
		p.Limit = 60
	}
	return p
}

func (p Policy) key(c echo.Context) string {
	if p.Key == nil {
		return "global"
	}
	return p.Key(c)
}

// Middleware enforces p with a process-local fixed window.
// For multi-instance deployments, prefer MiddlewareWithStore.
func Middleware(p Policy) echo.MiddlewareFunc {
	return MiddlewareWithStore(p, NewMemoryStore())
}

// MiddlewareWithStore uses a shared Store (e.g., Redis) for distributed rate limiting.
// Store errors fail open.
func MiddlewareWithStore(p Policy, s Store) echo.MiddlewareFunc {
	p = p.withDefaults()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := p.key(c)
			allowed, retryAfter, err := s.Allow(c, key, p.Limit, p.Window)
			if err != nil || allowed {
				return next(c)
			}
			src := "ip"
			if strings.Contains(key, ":ten:") {
				src = "tenant"
			}
			metrics.IncRateLimitExceeded(p.Name, src)
			c.Logger().Warnf("rate limit exceeded: endpoint=%s key=%s limit=%d window=%s retry_after=%ds", p.Name, key, p.Limit, p.Window.String(), retryAfter)
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
	}
}

// KeyTenantParam keys on the named path parameter, falling back to the client IP.
func KeyTenantParam(prefix, param string) func(echo.Context) string {
	return func(c echo.Context) string {
		if ten := c.Param(param); ten != "" {
			return prefix + ":ten:" + ten
		}
		return prefix + ":ip:" + c.RealIP()
	}
}

type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

// NewMemoryStore returns an in-process Store.
func NewMemoryStore() Store {
	return &memoryStore{now: time.Now, buckets: map[string]*bucket{}}
}

func (m *memoryStore) Allow(_ echo.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		m.buckets[key] = &bucket{start: now, count: 1}
		return true, 0, nil
	}
	if b.count < limit {
		b.count++
		return true, 0, nil
	}
	remaining := window - now.Sub(b.start)
	return false, int((remaining + time.Second - 1) / time.Second), nil
}
