package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NickRomanek/SasWatch-sub002/internal/directory"
	"github.com/NickRomanek/SasWatch-sub002/internal/status"
	"github.com/NickRomanek/SasWatch-sub002/internal/store"
	"github.com/NickRomanek/SasWatch-sub002/internal/telemetry"
)

// Skip reason constants
const (
	// ReasonAlreadyActive means a sync for the tenant is already running
	ReasonAlreadyActive = "already-active"

	// ReasonRecentlySynced means the tenant completed a sync within the
	// freshness window and Force was not set
	ReasonRecentlySynced = "recently-synced"
)

// Option bounds. A single invocation stays bounded in cost even when a
// large backlog exists remotely.
const (
	MinBackfillWindow = time.Hour
	MaxBackfillWindow = 7 * 24 * time.Hour

	MinPages = 1
	MaxPages = 10

	MinPageSize = 1
	MaxPageSize = 100

	// DefaultFreshness is how recently a tenant must have synced for a
	// non-forced sync to be skipped
	DefaultFreshness = 10 * time.Minute
)

// Options controls a single sync invocation.
type Options struct {
	// Force ignores the "synced recently" shortcut and runs regardless.
	// It never bypasses the at-most-one-active-sync guarantee.
	Force bool

	// BackfillWindow is how far back to request records for a
	// cursor-less tenant. Clamped to [1h, 7d].
	BackfillWindow time.Duration

	// MaxPages caps the number of pages fetched in one invocation.
	// Clamped to [1, 10].
	MaxPages int

	// PageSize is the number of records requested per page. Clamped to
	// [1, 100].
	PageSize int

	// OnProgress, if set, is invoked after each page.
	OnProgress func(Progress)
}

// Progress describes per-page sync progress for callers.
type Progress struct {
	Page    int
	Records int
	Message string
}

// Result is the outcome of a sync invocation.
type Result struct {
	// Skipped is true when no sync was performed; Reason says why
	Skipped bool
	Reason  string

	// Cancelled is true when a cancellation request halted the sync
	Cancelled bool

	// Count is the number of records processed
	Count int

	// Pages is the number of pages fetched
	Pages int

	// LastSync is the completion timestamp of a successful sync
	LastSync time.Time
}

// Manager coordinates sign-in synchronization for tenants: it decides
// whether a tenant needs syncing, drives the directory client in bounded
// pages, persists records idempotently, advances the cursor, and reports
// progress to the status tracker.
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/NickRomanek/SasWatch-sub002/internal/sync Manager
type Manager interface {
	// Sync runs one sync invocation for the tenant. Failures are
	// returned as *Error carrying a classification, except a missing
	// tenant which is reported as store.ErrTenantNotFound.
	Sync(ctx context.Context, tenantID uuid.UUID, opts Options) (*Result, error)
}

// defaultManager is the default implementation of Manager.
type defaultManager struct {
	client  directory.Client
	store   store.SignInStore
	tracker *status.Tracker

	defaults  Defaults
	freshness time.Duration
	metrics   *telemetry.SyncMetrics

	// now is overridable in tests
	now func() time.Time
}

// Defaults are the per-invocation option defaults applied when the
// caller leaves a field zero.
type Defaults struct {
	BackfillWindow time.Duration
	MaxPages       int
	PageSize       int
}

// ManagerOption configures the default manager.
type ManagerOption func(*defaultManager)

// WithDefaults sets the option defaults applied to each invocation.
func WithDefaults(d Defaults) ManagerOption {
	return func(m *defaultManager) {
		m.defaults = d
	}
}

// WithFreshness sets the window within which a previously successful
// sync short-circuits a non-forced invocation.
func WithFreshness(d time.Duration) ManagerOption {
	return func(m *defaultManager) {
		m.freshness = d
	}
}

// WithSyncMetrics sets the metrics instruments for the manager.
func WithSyncMetrics(metrics *telemetry.SyncMetrics) ManagerOption {
	return func(m *defaultManager) {
		m.metrics = metrics
	}
}

// WithClock overrides the manager's time source for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *defaultManager) {
		m.now = now
	}
}

// NewManager creates a Manager with the given collaborators.
func NewManager(client directory.Client, st store.SignInStore, tracker *status.Tracker, opts ...ManagerOption) Manager {
	m := &defaultManager{
		client:  client,
		store:   st,
		tracker: tracker,
		defaults: Defaults{
			BackfillWindow: 24 * time.Hour,
			MaxPages:       5,
			PageSize:       50,
		},
		freshness: DefaultFreshness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// withDefaults fills zero fields from the manager defaults and clamps
// everything into the documented bounds.
func (m *defaultManager) withDefaults(opts Options) Options {
	if opts.BackfillWindow == 0 {
		opts.BackfillWindow = m.defaults.BackfillWindow
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = m.defaults.MaxPages
	}
	if opts.PageSize == 0 {
		opts.PageSize = m.defaults.PageSize
	}

	opts.BackfillWindow = min(max(opts.BackfillWindow, MinBackfillWindow), MaxBackfillWindow)
	opts.MaxPages = min(max(opts.MaxPages, MinPages), MaxPages)
	opts.PageSize = min(max(opts.PageSize, MinPageSize), MaxPageSize)
	return opts
}

// Sync runs one bounded fetch-and-store cycle for the tenant.
func (m *defaultManager) Sync(ctx context.Context, tenantID uuid.UUID, opts Options) (*Result, error) {
	opts = m.withDefaults(opts)
	logger := slog.With("tenant", tenantID)

	// Fast path: a sync for this tenant is already running.
	if entry := m.tracker.Get(tenantID); entry.Active {
		logger.Debug("Sync already in progress, skipping")
		return &Result{Skipped: true, Reason: ReasonAlreadyActive}, nil
	}

	tenant, err := m.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, err
		}
		return nil, classify(err, "failed to load tenant")
	}

	if !opts.Force && tenant.LastSyncAt != nil && m.now().Sub(*tenant.LastSyncAt) < m.freshness {
		logger.Debug("Tenant synced recently, skipping", "last_sync", *tenant.LastSyncAt)
		return &Result{Skipped: true, Reason: ReasonRecentlySynced}, nil
	}

	// Atomic admission: exactly one sync task may be active per tenant.
	if !m.tracker.TryBegin(tenantID, "connecting to directory service") {
		return &Result{Skipped: true, Reason: ReasonAlreadyActive}, nil
	}

	m.metrics.AddActiveSyncs(ctx, 1)
	defer m.metrics.AddActiveSyncs(ctx, -1)

	startTime := m.now()
	result, syncErr := m.runPageLoop(ctx, tenantID, tenant, opts, logger)
	m.metrics.RecordSyncDuration(ctx, tenantID.String(), m.now().Sub(startTime), syncErr == nil)

	if syncErr != nil {
		// Finalize with the classification and leave the stored cursor
		// untouched so the next attempt retries from the same watermark.
		m.tracker.Update(tenantID, func(e *status.Entry) {
			e.Active = false
			e.Result = nil
			e.Error = syncErr.Failure()
			e.Message = syncErr.Message
		})
		logger.Error("Sync failed", "classification", syncErr.Class, "error", syncErr.Message)
		return nil, syncErr
	}

	m.tracker.Update(tenantID, func(e *status.Entry) {
		e.Active = false
		e.Error = nil
		e.Result = &status.Result{
			Count:     result.Count,
			LastSync:  result.LastSync,
			Cancelled: result.Cancelled,
		}
		e.Progress = 100
		if result.Cancelled {
			e.Message = "sync cancelled"
		} else {
			e.Message = "sync completed"
		}
	})

	if result.Cancelled {
		logger.Info("Sync cancelled", "records", result.Count, "pages", result.Pages)
	} else {
		logger.Info("Sync completed", "records", result.Count, "pages", result.Pages)
	}
	return result, nil
}

// runPageLoop drives up to MaxPages fetch-and-store cycles and persists
// the advanced cursor on success. The cursor is only written after every
// record from this invocation is durably stored.
func (m *defaultManager) runPageLoop(
	ctx context.Context,
	tenantID uuid.UUID,
	tenant *store.Tenant,
	opts Options,
	logger *slog.Logger,
) (*Result, *Error) {
	since, pageToken, priorWatermark := m.startingWatermark(tenant, opts.BackfillWindow)

	result := &Result{}
	var latestSeen time.Time

	for page := 1; page <= opts.MaxPages; page++ {
		// Cooperative cancellation, checked between page fetches only.
		if m.tracker.CancelRequested(tenantID) {
			result.Cancelled = true
			break
		}

		fetched, err := m.client.FetchPage(ctx, tenantID, since, opts.PageSize, pageToken)
		if err != nil {
			return nil, classify(err, "failed to fetch sign-in page")
		}

		inserted, err := m.store.UpsertSignIns(ctx, tenantID, fetched.Records)
		if err != nil {
			return nil, classify(err, "failed to store sign-in records")
		}

		result.Count += len(fetched.Records)
		result.Pages = page
		if fetched.NextSince.After(latestSeen) {
			latestSeen = fetched.NextSince
		}
		m.metrics.RecordRecordsIngested(ctx, tenantID.String(), int64(inserted))

		message := fmt.Sprintf("fetched page %d (%d records)", page, result.Count)
		progress := min(90, 10+80*page/opts.MaxPages)
		m.tracker.Update(tenantID, func(e *status.Entry) {
			e.Progress = progress
			e.Message = message
		})
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Page: page, Records: result.Count, Message: message})
		}

		logger.Debug("Stored sign-in page",
			"page", page, "records", len(fetched.Records), "inserted", inserted)

		pageToken = fetched.NextLink
		if !fetched.HasMore {
			break
		}
		// A MaxPages cutoff with data remaining is a normal partial
		// sync; the cursor below still advances to the latest record
		// seen so the next invocation continues from here.
	}

	if result.Cancelled {
		// Records upserted so far remain stored (idempotent), but the
		// cursor is not advanced: a future sync safely reprocesses the
		// same window.
		return result, nil
	}

	now := m.now()
	watermark := priorWatermark
	if !latestSeen.IsZero() {
		watermark = latestSeen.UTC().Format(time.RFC3339)
	} else if watermark == "" {
		watermark = since.UTC().Format(time.RFC3339)
	}

	if err := m.store.SetCursor(ctx, tenantID, watermark, now); err != nil {
		return nil, classify(err, "failed to persist sync cursor")
	}

	result.LastSync = now
	return result, nil
}

// startingWatermark determines where the sync begins: the stored cursor
// when present, otherwise now minus the backfill window. A stored cursor
// that is not a timestamp is treated as a continuation token and passed
// back to the directory service verbatim.
func (m *defaultManager) startingWatermark(
	tenant *store.Tenant, backfill time.Duration,
) (since time.Time, pageToken, priorWatermark string) {
	if tenant.Cursor == nil || *tenant.Cursor == "" {
		return m.now().Add(-backfill), "", ""
	}

	priorWatermark = *tenant.Cursor
	if ts, err := time.Parse(time.RFC3339, priorWatermark); err == nil {
		return ts, "", priorWatermark
	}
	return time.Time{}, priorWatermark, priorWatermark
}
