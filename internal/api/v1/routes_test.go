package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NickRomanek/SasWatch-sub002/internal/status"
	"github.com/NickRomanek/SasWatch-sub002/internal/store"
	storemocks "github.com/NickRomanek/SasWatch-sub002/internal/store/mocks"
	"github.com/NickRomanek/SasWatch-sub002/internal/sync"
	syncmocks "github.com/NickRomanek/SasWatch-sub002/internal/sync/mocks"
)

type routerFixture struct {
	manager *syncmocks.MockManager
	store   *storemocks.MockSignInStore
	tracker *status.Tracker
	handler http.Handler
}

func newRouterFixture(t *testing.T, deadline time.Duration) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &routerFixture{
		manager: syncmocks.NewMockManager(ctrl),
		store:   storemocks.NewMockSignInStore(ctrl),
		tracker: status.NewTracker(),
	}
	f.handler = Router(f.manager, f.tracker, f.store, deadline)
	return f
}

func (f *routerFixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestTriggerSyncSuccess(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	tenantID := uuid.New()
	lastSync := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	f.manager.EXPECT().
		Sync(gomock.Any(), tenantID, sync.Options{Force: true, MaxPages: 3}).
		Return(&sync.Result{Count: 10, Pages: 3, LastSync: lastSync}, nil)

	rec := f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync",
		SyncRequest{Force: true, MaxPages: 3})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.Count)
	assert.Equal(t, 3, resp.Pages)
	require.NotNil(t, resp.LastSync)
	assert.Equal(t, lastSync, resp.LastSync.UTC())
}

func TestTriggerSyncSkipped(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	tenantID := uuid.New()

	f.manager.EXPECT().
		Sync(gomock.Any(), tenantID, gomock.Any()).
		Return(&sync.Result{Skipped: true, Reason: sync.ReasonRecentlySynced}, nil)

	rec := f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Skipped)
	assert.Equal(t, sync.ReasonRecentlySynced, resp.Reason)
	assert.Nil(t, resp.LastSync)
}

func TestTriggerSyncInvalidTenantID(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	rec := f.request(t, http.MethodPost, "/tenants/not-a-uuid/sync", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerSyncInvalidBackfillWindow(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	rec := f.request(t, http.MethodPost, "/tenants/"+uuid.NewString()+"/sync",
		SyncRequest{BackfillWindow: "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerSyncTenantNotFound(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	tenantID := uuid.New()

	f.manager.EXPECT().
		Sync(gomock.Any(), tenantID, gomock.Any()).
		Return(nil, store.ErrTenantNotFound)

	rec := f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerSyncErrorClassificationMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *sync.Error
		wantCode int
	}{
		{
			name:     "throttled",
			err:      &sync.Error{Class: status.ErrorClassThrottled, Message: "rate limited"},
			wantCode: http.StatusTooManyRequests,
		},
		{
			name:     "forbidden",
			err:      &sync.Error{Class: status.ErrorClassForbidden, Message: "denied", Hint: "grant consent"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "transient",
			err:      &sync.Error{Class: status.ErrorClassTransient, Message: "flaky network"},
			wantCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newRouterFixture(t, time.Minute)
			tenantID := uuid.New()

			f.manager.EXPECT().
				Sync(gomock.Any(), tenantID, gomock.Any()).
				Return(nil, tt.err)

			rec := f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync", nil)
			require.Equal(t, tt.wantCode, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.err.Class, resp.Classification)
			assert.Equal(t, tt.err.Message, resp.Error)
			assert.Equal(t, tt.err.Hint, resp.Hint)
		})
	}
}

func TestTriggerSyncDeadlineReturnsAccepted(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 20*time.Millisecond)
	tenantID := uuid.New()
	done := make(chan struct{})

	f.manager.EXPECT().
		Sync(gomock.Any(), tenantID, gomock.Any()).
		DoAndReturn(func(any, any, any) (*sync.Result, error) {
			defer close(done)
			time.Sleep(150 * time.Millisecond)
			return &sync.Result{Count: 1}, nil
		})

	rec := f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, status.ErrorClassTimeout, resp.Classification)

	// Let the background sync settle before the mock controller verifies.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background sync did not finish")
	}
}

func TestTriggerSyncBackground(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	tenantID := uuid.New()
	done := make(chan struct{})

	f.manager.EXPECT().
		Sync(gomock.Any(), tenantID, gomock.Any()).
		DoAndReturn(func(any, any, any) (*sync.Result, error) {
			defer close(done)
			return &sync.Result{Count: 1}, nil
		})

	rec := f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync",
		SyncRequest{Background: true})
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background sync was not started")
	}
}

func TestGetSyncStatus(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	tenantID := uuid.New()

	f.store.EXPECT().GetTenant(gomock.Any(), tenantID).
		Return(&store.Tenant{ID: tenantID, DisplayName: "Acme"}, nil)
	f.store.EXPECT().CountSignIns(gomock.Any(), tenantID).Return(int64(321), nil)

	require.True(t, f.tracker.TryBegin(tenantID, "fetching page 2"))
	f.tracker.Update(tenantID, func(e *status.Entry) {
		e.Progress = 40
	})

	rec := f.request(t, http.MethodGet, "/tenants/"+tenantID.String()+"/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Active)
	assert.Equal(t, 40, resp.Progress)
	assert.Equal(t, int64(321), resp.StoredRecords)
}

func TestGetSyncStatusTenantNotFound(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	tenantID := uuid.New()

	f.store.EXPECT().GetTenant(gomock.Any(), tenantID).
		Return(nil, store.ErrTenantNotFound)

	rec := f.request(t, http.MethodGet, "/tenants/"+tenantID.String()+"/sync/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSync(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	tenantID := uuid.New()

	// Nothing active: cancelled=false.
	rec := f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Cancelled)

	// Active sync: cancelled=true and the flag is observable.
	require.True(t, f.tracker.TryBegin(tenantID, "running"))
	rec = f.request(t, http.MethodPost, "/tenants/"+tenantID.String()+"/sync/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Cancelled)
	assert.True(t, f.tracker.CancelRequested(tenantID))
}

func TestListTenants(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, time.Minute)
	cursor := "2026-08-24T10:00:00Z"
	lastSync := time.Date(2026, 8, 24, 10, 0, 5, 0, time.UTC)

	f.store.EXPECT().ListTenants(gomock.Any()).Return([]store.Tenant{
		{ID: uuid.New(), DisplayName: "Acme", Cursor: &cursor, LastSyncAt: &lastSync},
		{ID: uuid.New(), DisplayName: "Globex"},
	}, nil)

	rec := f.request(t, http.MethodGet, "/tenants", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []TenantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "Acme", resp[0].DisplayName)
	require.NotNil(t, resp[0].Cursor)
	assert.Equal(t, cursor, *resp[0].Cursor)
	assert.Nil(t, resp[1].Cursor)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	handler := HealthRouter(nil)

	for _, path := range []string{"/health", "/readiness", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestReadinessFailure(t *testing.T) {
	t.Parallel()

	handler := HealthRouter(func(context.Context) error {
		return errors.New("database unreachable")
	})

	req := httptest.NewRequest(http.MethodGet, "/readiness", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
