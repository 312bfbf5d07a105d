package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/NickRomanek/SasWatch-sub002/internal/directory"
	"github.com/NickRomanek/SasWatch-sub002/internal/status"
	"github.com/NickRomanek/SasWatch-sub002/internal/store"
	pkgsync "github.com/NickRomanek/SasWatch-sub002/internal/sync"
)

const (
	// basePollingInterval is the base interval at which the coordinator
	// walks the tenant list
	basePollingInterval = 2 * time.Minute

	// pollingJitter is the maximum random offset (±30 seconds) applied
	// to the polling interval
	pollingJitter = 30 * time.Second

	// defaultMaxRetries bounds throttle retries within one tick
	defaultMaxRetries = 3
)

// Coordinator schedules unattended background syncs across all tenants.
type Coordinator interface {
	// Start begins background sync coordination. Blocks until the
	// context is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator.
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator.
type defaultCoordinator struct {
	manager pkgsync.Manager
	store   store.SignInStore

	interval   time.Duration
	jitter     time.Duration
	maxRetries uint

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator.
type Option func(*defaultCoordinator)

// WithInterval overrides the base polling interval.
func WithInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.interval = d
	}
}

// WithJitter overrides the polling jitter bound.
func WithJitter(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.jitter = d
	}
}

// WithMaxRetries overrides how often a throttled sync is retried within
// one tick.
func WithMaxRetries(n uint) Option {
	return func(c *defaultCoordinator) {
		c.maxRetries = n
	}
}

// New creates a coordinator with injected dependencies.
func New(manager pkgsync.Manager, st store.SignInStore, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:    manager,
		store:      st,
		interval:   basePollingInterval,
		jitter:     pollingJitter,
		maxRetries: defaultMaxRetries,
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// pollingInterval returns the base interval with a random jitter applied
// to prevent all instances from hitting the directory simultaneously.
func (c *defaultCoordinator) pollingInterval() time.Duration {
	if c.jitter <= 0 {
		return c.interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	offset := time.Duration(rand.Int64N(int64(2*c.jitter))) - c.jitter
	return c.interval + offset
}

// Start begins background sync coordination for all tenants.
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting background sync coordinator",
		"base_interval", c.interval)

	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	ticker := time.NewTicker(c.pollingInterval())
	defer ticker.Stop()

	// Initial pass before the first tick.
	c.syncAllTenants(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.syncAllTenants(coordCtx)
			ticker.Reset(c.pollingInterval())
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator.
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		slog.Info("Stopping sync coordinator")
		c.cancelFunc()
		<-c.done
	}
	return nil
}

// syncAllTenants runs one unattended sync pass over every tenant. The
// manager's freshness policy and at-most-one admission decide per tenant
// whether any work happens.
func (c *defaultCoordinator) syncAllTenants(ctx context.Context) {
	tenants, err := c.store.ListTenants(ctx)
	if err != nil {
		slog.Error("Failed to list tenants for sync pass", "error", err)
		return
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return
		}
		c.syncTenant(ctx, tenant)
	}
}

// syncTenant runs one tenant's unattended sync, retrying throttled
// failures with exponential backoff and honoring the directory's
// Retry-After delay when given. All other failures are logged and left
// for the next scheduled pass; the cursor stays untouched so the retry
// resumes from the same watermark.
func (c *defaultCoordinator) syncTenant(ctx context.Context, tenant store.Tenant) {
	operation := func() (*pkgsync.Result, error) {
		result, err := c.manager.Sync(ctx, tenant.ID, pkgsync.Options{})
		if err == nil {
			return result, nil
		}

		var syncErr *pkgsync.Error
		if errors.As(err, &syncErr) && syncErr.Class == status.ErrorClassThrottled {
			var dirErr *directory.Error
			if errors.As(err, &dirErr) && dirErr.RetryAfter > 0 {
				return nil, &backoff.RetryAfterError{Duration: dirErr.RetryAfter}
			}
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxRetries),
	)
	if err != nil {
		slog.Error("Background sync failed",
			"tenant", tenant.ID,
			"error", err)
		return
	}

	if result.Skipped {
		slog.Debug("Background sync skipped",
			"tenant", tenant.ID,
			"reason", result.Reason)
		return
	}

	slog.Info("Background sync completed",
		"tenant", tenant.ID,
		"records", result.Count,
		"pages", result.Pages)
}
