package status

import (
	gosync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerGetReturnsIdleEntryForUnknownTenant(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	entry := tracker.Get(uuid.New())

	assert.False(t, entry.Active)
	assert.Zero(t, entry.Progress)
	assert.Nil(t, entry.Result)
	assert.Nil(t, entry.Error)
}

func TestTrackerTryBegin(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tenantID := uuid.New()

	require.True(t, tracker.TryBegin(tenantID, "starting"))

	entry := tracker.Get(tenantID)
	assert.True(t, entry.Active)
	assert.Equal(t, "starting", entry.Message)
	assert.Equal(t, 5, entry.Progress)
	assert.False(t, entry.StartedAt.IsZero())

	// Second admission while active must fail.
	assert.False(t, tracker.TryBegin(tenantID, "again"))

	// After the entry goes terminal, admission succeeds again.
	tracker.Update(tenantID, func(e *Entry) {
		e.Active = false
		e.Result = &Result{Count: 3}
	})
	assert.True(t, tracker.TryBegin(tenantID, "restarting"))
}

func TestTrackerUpdate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(WithClock(func() time.Time { return now }))
	tenantID := uuid.New()

	entry := tracker.Update(tenantID, func(e *Entry) {
		e.Active = true
		e.Progress = 42
		e.Message = "fetching"
	})

	assert.True(t, entry.Active)
	assert.Equal(t, 42, entry.Progress)
	assert.Equal(t, now, entry.LastUpdateAt)
	assert.Equal(t, entry, tracker.Get(tenantID))
}

func TestTrackerRequestCancel(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tenantID := uuid.New()

	// Nothing to cancel yet.
	assert.False(t, tracker.RequestCancel(tenantID))
	assert.False(t, tracker.CancelRequested(tenantID))

	require.True(t, tracker.TryBegin(tenantID, "starting"))
	assert.True(t, tracker.RequestCancel(tenantID))
	assert.True(t, tracker.CancelRequested(tenantID))

	// A terminal entry cannot be cancelled.
	tracker.Update(tenantID, func(e *Entry) {
		e.Active = false
		e.Result = &Result{Cancelled: true}
	})
	assert.False(t, tracker.RequestCancel(tenantID))
}

func TestTrackerSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	clock := &now
	tracker := NewTracker(
		WithRetention(30*time.Second),
		WithClock(func() time.Time { return *clock }),
	)

	activeTenant := uuid.New()
	terminalTenant := uuid.New()
	recentTenant := uuid.New()

	require.True(t, tracker.TryBegin(activeTenant, "running"))
	tracker.Set(terminalTenant, Entry{Result: &Result{Count: 1}})

	// Advance past retention; the recent terminal entry is written at the
	// new time and must survive.
	later := now.Add(time.Minute)
	clock = &later
	tracker.Set(recentTenant, Entry{Result: &Result{Count: 2}})

	removed := tracker.Sweep()
	assert.Equal(t, 1, removed)

	assert.True(t, tracker.Get(activeTenant).Active)
	assert.Nil(t, tracker.Get(terminalTenant).Result)
	assert.NotNil(t, tracker.Get(recentTenant).Result)
}

func TestTrackerConcurrentAccess(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tenants := make([]uuid.UUID, 16)
	for i := range tenants {
		tenants[i] = uuid.New()
	}

	var wg gosync.WaitGroup
	for _, tenantID := range tenants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tracker.TryBegin(tenantID, "running")
				tracker.Update(tenantID, func(e *Entry) {
					e.Progress = i
				})
				tracker.RequestCancel(tenantID)
				tracker.Update(tenantID, func(e *Entry) {
					e.Active = false
					e.Result = &Result{Count: i}
				})
				tracker.Get(tenantID)
			}
		}()
	}
	wg.Wait()

	for _, tenantID := range tenants {
		entry := tracker.Get(tenantID)
		assert.False(t, entry.Active)
		assert.NotNil(t, entry.Result)
	}
}

func TestEntryTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{name: "idle", entry: Entry{}, want: false},
		{name: "active", entry: Entry{Active: true}, want: false},
		{name: "completed", entry: Entry{Result: &Result{Count: 1}}, want: true},
		{name: "failed", entry: Entry{Error: &Failure{Class: ErrorClassTransient}}, want: true},
		{
			name: "timeout stamped but still running",
			entry: Entry{
				Active: true,
				Error:  &Failure{Class: ErrorClassTimeout},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.entry.Terminal())
		})
	}
}
