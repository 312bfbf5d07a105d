// Package v1 provides the REST API handlers for tenant sign-in sync.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NickRomanek/SasWatch-sub002/internal/status"
	"github.com/NickRomanek/SasWatch-sub002/internal/store"
	"github.com/NickRomanek/SasWatch-sub002/internal/sync"
	"github.com/NickRomanek/SasWatch-sub002/internal/versions"
)

// SyncRequest is the body of a sync trigger request. All fields are
// optional; zero values fall back to the server-side defaults.
type SyncRequest struct {
	// Force runs the sync even if the tenant synced recently
	Force bool `json:"force,omitempty"`

	// BackfillWindow is a Go duration string (e.g. "24h") bounding how
	// far back a first sync reaches
	BackfillWindow string `json:"backfillWindow,omitempty"`

	// MaxPages caps pages fetched in this invocation
	MaxPages int `json:"maxPages,omitempty"`

	// PageSize is the per-page record count
	PageSize int `json:"pageSize,omitempty"`

	// Background returns 202 immediately instead of waiting for the
	// sync to finish or the deadline to elapse
	Background bool `json:"background,omitempty"`
}

// SyncResponse is the outcome of an attended sync trigger.
type SyncResponse struct {
	Skipped   bool       `json:"skipped,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Cancelled bool       `json:"cancelled,omitempty"`
	Count     int        `json:"count"`
	Pages     int        `json:"pages"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
}

// StatusResponse is the tenant's live sync status plus stored totals.
type StatusResponse struct {
	status.Entry

	// StoredRecords is the total number of sign-in records persisted for
	// the tenant
	StoredRecords int64 `json:"storedRecords"`
}

// CancelResponse reports whether a cancellation request found an active
// sync to flag.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// TenantResponse is one tenant in a listing.
type TenantResponse struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName string     `json:"displayName"`
	Cursor      *string    `json:"cursor,omitempty"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error          string            `json:"error"`
	Classification status.ErrorClass `json:"classification,omitempty"`
	Hint           string            `json:"hint,omitempty"`
}

// Routes defines the routes for the sync API with dependency injection
type Routes struct {
	manager  sync.Manager
	tracker  *status.Tracker
	store    store.SignInStore
	deadline time.Duration
}

// NewRoutes creates a new Routes instance with the provided collaborators
func NewRoutes(manager sync.Manager, tracker *status.Tracker, st store.SignInStore, deadline time.Duration) *Routes {
	return &Routes{
		manager:  manager,
		tracker:  tracker,
		store:    st,
		deadline: deadline,
	}
}

// Router creates a new router for the sync API
func Router(manager sync.Manager, tracker *status.Tracker, st store.SignInStore, deadline time.Duration) http.Handler {
	routes := NewRoutes(manager, tracker, st, deadline)

	r := chi.NewRouter()

	r.Get("/tenants", routes.listTenants)
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/sync", routes.triggerSync)
		r.Get("/sync/status", routes.getSyncStatus)
		r.Post("/sync/cancel", routes.cancelSync)
	})

	return r
}

// listTenants handles GET /api/v1/tenants
func (rr *Routes) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := rr.store.ListTenants(r.Context())
	if err != nil {
		slog.Error("Failed to list tenants", "error", err)
		rr.writeErrorResponse(w, "Failed to list tenants", http.StatusInternalServerError)
		return
	}

	resp := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, TenantResponse{
			ID:          t.ID,
			DisplayName: t.DisplayName,
			Cursor:      t.Cursor,
			LastSyncAt:  t.LastSyncAt,
		})
	}
	rr.writeJSONResponse(w, http.StatusOK, resp)
}

// triggerSync handles POST /api/v1/tenants/{tenantID}/sync
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := rr.tenantID(w, r)
	if !ok {
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		rr.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	opts := sync.Options{
		Force:    req.Force,
		MaxPages: req.MaxPages,
		PageSize: req.PageSize,
	}
	if req.BackfillWindow != "" {
		window, err := time.ParseDuration(req.BackfillWindow)
		if err != nil {
			rr.writeErrorResponse(w, fmt.Sprintf("Invalid backfillWindow: %v", err), http.StatusBadRequest)
			return
		}
		opts.BackfillWindow = window
	}

	// The sync must survive the HTTP request: a deadline or a dropped
	// connection is an observation boundary, not a cancellation.
	ctx := context.WithoutCancel(r.Context())

	if req.Background {
		go func() {
			if _, err := rr.manager.Sync(ctx, tenantID, opts); err != nil {
				slog.Error("Background sync failed", "tenant", tenantID, "error", err)
			}
		}()
		rr.writeJSONResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	result, err := sync.WithDeadline(rr.tracker, tenantID, rr.deadline, func() (*sync.Result, error) {
		return rr.manager.Sync(ctx, tenantID, opts)
	})
	if err != nil {
		rr.writeSyncError(w, tenantID, err)
		return
	}

	resp := SyncResponse{
		Skipped:   result.Skipped,
		Reason:    result.Reason,
		Cancelled: result.Cancelled,
		Count:     result.Count,
		Pages:     result.Pages,
	}
	if !result.LastSync.IsZero() {
		resp.LastSync = &result.LastSync
	}
	rr.writeJSONResponse(w, http.StatusOK, resp)
}

// getSyncStatus handles GET /api/v1/tenants/{tenantID}/sync/status
func (rr *Routes) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := rr.tenantID(w, r)
	if !ok {
		return
	}

	if _, err := rr.store.GetTenant(r.Context(), tenantID); err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			rr.writeErrorResponse(w, "Tenant not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load tenant", "tenant", tenantID, "error", err)
		rr.writeErrorResponse(w, "Failed to load tenant", http.StatusInternalServerError)
		return
	}

	stored, err := rr.store.CountSignIns(r.Context(), tenantID)
	if err != nil {
		slog.Error("Failed to count sign-ins", "tenant", tenantID, "error", err)
		rr.writeErrorResponse(w, "Failed to count sign-in records", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, http.StatusOK, StatusResponse{
		Entry:         rr.tracker.Get(tenantID),
		StoredRecords: stored,
	})
}

// cancelSync handles POST /api/v1/tenants/{tenantID}/sync/cancel
func (rr *Routes) cancelSync(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := rr.tenantID(w, r)
	if !ok {
		return
	}

	cancelled := rr.tracker.RequestCancel(tenantID)
	rr.writeJSONResponse(w, http.StatusOK, CancelResponse{Cancelled: cancelled})
}

// tenantID parses the tenantID URL parameter, writing a 400 on failure.
func (rr *Routes) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		rr.writeErrorResponse(w, "Invalid tenant ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return tenantID, true
}

// writeSyncError maps a sync failure to an HTTP response. The timeout
// classification is a 202: the sync keeps running in the background and
// the caller should poll the status endpoint.
func (rr *Routes) writeSyncError(w http.ResponseWriter, tenantID uuid.UUID, err error) {
	if errors.Is(err, store.ErrTenantNotFound) {
		rr.writeErrorResponse(w, "Tenant not found", http.StatusNotFound)
		return
	}

	var syncErr *sync.Error
	if !errors.As(err, &syncErr) {
		slog.Error("Sync failed", "tenant", tenantID, "error", err)
		rr.writeErrorResponse(w, "Sync failed", http.StatusInternalServerError)
		return
	}

	code := http.StatusBadGateway
	switch syncErr.Class {
	case status.ErrorClassThrottled:
		code = http.StatusTooManyRequests
	case status.ErrorClassForbidden:
		code = http.StatusForbidden
	case status.ErrorClassTimeout:
		code = http.StatusAccepted
	case status.ErrorClassCancelled:
		code = http.StatusConflict
	case status.ErrorClassTransient:
		code = http.StatusBadGateway
	}

	rr.writeJSONResponse(w, code, ErrorResponse{
		Error:          syncErr.Message,
		Classification: syncErr.Class,
		Hint:           syncErr.Hint,
	})
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(readiness func(context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(readiness))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler handles readiness check requests
func readinessHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{
					Error: "Service not ready: " + err.Error(),
				}); encodeErr != nil {
					slog.Error("Failed to encode readiness error response", "error", encodeErr)
				}
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(info); err != nil {
		slog.Error("Failed to encode version info", "error", err)
	}
}

// writeJSONResponse writes a JSON response with the given status and data
func (*Routes) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
