// Package cache provides TTL-based caching for Kubernetes discovery
// data. It lives in the providers layer because caching is an
// infrastructure concern; the domain layer (internal/core) only
// defines the ServerVersioner interface.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/version"

	"github.com/otterscale/kubewatch/internal/core"
)

// DefaultTTL is the default TTL for a cached server version.
const DefaultTTL = 10 * time.Minute

// fetchTimeout is the maximum time a cache-miss fetch is allowed to
// run. The fetch is detached from the caller's cancellation so that one
// caller giving up does not fail the other singleflight waiters.
const fetchTimeout = 30 * time.Second

const versionKey = "server"

// VersionCache caches the server version for a TTL. Callers arriving
// while a fetch is in flight share it.
type VersionCache struct {
	discovery core.ServerVersioner
	ttl       time.Duration
	now       func() time.Time

	mu        sync.RWMutex
	info      *version.Info
	expiresAt time.Time
	flights   singleflight.Group
}

// NewVersionCache returns a VersionCache that wraps discovery and
// caches results for DefaultTTL.
func NewVersionCache(discovery core.ServerVersioner) *VersionCache {
	return &VersionCache{
		discovery: discovery,
		ttl:       DefaultTTL,
		now:       time.Now,
	}
}

var _ core.ServerVersioner = (*VersionCache)(nil)

// ServerVersion returns the cached server version, fetching it on a
// miss. Failed fetches are not cached. It returns as soon as ctx is
// done, even if the shared fetch is still running.
func (c *VersionCache) ServerVersion(ctx context.Context) (*version.Info, error) {
	c.mu.RLock()
	info, expiresAt := c.info, c.expiresAt
	c.mu.RUnlock()

	if info != nil && c.now().Before(expiresAt) {
		return info, nil
	}

	ch := c.flights.DoChan(versionKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		info, err := c.discovery.ServerVersion(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.info = info
		c.expiresAt = c.now().Add(c.ttl)
		c.mu.Unlock()

		return info, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*version.Info), nil
	}
}
