package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// shardCount is the number of map shards. Keeping status updates for
	// unrelated tenants on separate locks avoids cross-tenant contention.
	shardCount = 32

	// DefaultRetention is how long terminal entries are kept so a final
	// poll can observe the outcome before the entry is swept.
	DefaultRetention = 30 * time.Second

	// DefaultSweepInterval is how often the background sweeper runs.
	DefaultSweepInterval = 15 * time.Second
)

// Tracker is a process-wide table of one sync status entry per tenant.
// It is safe for concurrent use; the table is partitioned by tenant key
// rather than guarded by a single global lock.
type Tracker struct {
	shards [shardCount]trackerShard

	retention time.Duration

	// now is overridable in tests
	now func() time.Time
}

type trackerShard struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Entry
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithRetention sets how long terminal entries survive before Sweep
// removes them.
func WithRetention(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.retention = d
	}
}

// WithClock overrides the tracker's time source for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		retention: DefaultRetention,
		now:       time.Now,
	}
	for i := range t.shards {
		t.shards[i].entries = make(map[uuid.UUID]Entry)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) shard(tenantID uuid.UUID) *trackerShard {
	// First byte of the UUID is effectively random for v4 IDs.
	return &t.shards[tenantID[0]%shardCount]
}

// Get returns the entry for the tenant, or a default idle entry if none
// exists.
func (t *Tracker) Get(tenantID uuid.UUID) Entry {
	s := t.shard(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[tenantID]
	if !ok {
		return Entry{}
	}
	return entry
}

// Set replaces the entry for the tenant.
func (t *Tracker) Set(tenantID uuid.UUID, entry Entry) {
	entry.LastUpdateAt = t.now()

	s := t.shard(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tenantID] = entry
}

// Update applies fn to the tenant's entry as a single atomic action.
// fn receives the current entry (a default idle entry if none exists)
// and its mutations are stored back under the shard lock.
func (t *Tracker) Update(tenantID uuid.UUID, fn func(entry *Entry)) Entry {
	s := t.shard(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[tenantID]
	fn(&entry)
	entry.LastUpdateAt = t.now()
	s.entries[tenantID] = entry
	return entry
}

// TryBegin atomically registers an active entry for the tenant. It
// returns false without modifying the table if a sync is already active,
// which is the at-most-one-concurrent-sync guarantee.
func (t *Tracker) TryBegin(tenantID uuid.UUID, message string) bool {
	s := t.shard(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[tenantID]; ok && existing.Active {
		return false
	}

	now := t.now()
	s.entries[tenantID] = Entry{
		Active:       true,
		Message:      message,
		Progress:     5,
		StartedAt:    now,
		LastUpdateAt: now,
	}
	return true
}

// RequestCancel sets the cancellation flag on an active sync. It returns
// true if a sync was active and the flag was set, false if there was
// nothing to cancel. Cancellation is cooperative: the orchestrator
// checks the flag between page fetches only.
func (t *Tracker) RequestCancel(tenantID uuid.UUID) bool {
	s := t.shard(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[tenantID]
	if !ok || !entry.Active {
		return false
	}

	entry.CancelRequested = true
	entry.LastUpdateAt = t.now()
	s.entries[tenantID] = entry
	return true
}

// CancelRequested reports whether cancellation has been requested for
// the tenant's active sync.
func (t *Tracker) CancelRequested(tenantID uuid.UUID) bool {
	s := t.shard(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[tenantID]
	return ok && entry.CancelRequested
}

// Sweep removes terminal entries whose last update is older than the
// retention window, so memory does not grow unbounded across many
// tenants over time. It returns the number of entries removed.
func (t *Tracker) Sweep() int {
	cutoff := t.now().Add(-t.retention)

	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for tenantID, entry := range s.entries {
			if !entry.Active && entry.LastUpdateAt.Before(cutoff) {
				delete(s.entries, tenantID)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// RunSweeper periodically sweeps terminal entries until the context is
// cancelled. Intended to be run as a background goroutine from serve.
func (t *Tracker) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := t.Sweep(); removed > 0 {
				slog.Debug("Swept terminal sync status entries", "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
