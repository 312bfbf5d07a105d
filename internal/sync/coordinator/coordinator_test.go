package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NickRomanek/SasWatch-sub002/internal/directory"
	"github.com/NickRomanek/SasWatch-sub002/internal/status"
	"github.com/NickRomanek/SasWatch-sub002/internal/store"
	pkgsync "github.com/NickRomanek/SasWatch-sub002/internal/sync"
	syncmocks "github.com/NickRomanek/SasWatch-sub002/internal/sync/mocks"
	storemocks "github.com/NickRomanek/SasWatch-sub002/internal/store/mocks"
)

func TestSyncAllTenantsSyncsEachTenant(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	st := storemocks.NewMockSignInStore(ctrl)

	tenants := []store.Tenant{
		{ID: uuid.New(), DisplayName: "Acme"},
		{ID: uuid.New(), DisplayName: "Globex"},
	}
	st.EXPECT().ListTenants(gomock.Any()).Return(tenants, nil)
	for _, tenant := range tenants {
		manager.EXPECT().
			Sync(gomock.Any(), tenant.ID, pkgsync.Options{}).
			Return(&pkgsync.Result{Count: 1, Pages: 1}, nil)
	}

	c := New(manager, st).(*defaultCoordinator)
	c.syncAllTenants(context.Background())
}

func TestSyncAllTenantsListFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	st := storemocks.NewMockSignInStore(ctrl)

	st.EXPECT().ListTenants(gomock.Any()).Return(nil, errors.New("db down"))
	// No Sync calls expected.

	c := New(manager, st).(*defaultCoordinator)
	c.syncAllTenants(context.Background())
}

func TestSyncTenantRetriesThrottledWithRetryAfter(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	st := storemocks.NewMockSignInStore(ctrl)

	tenant := store.Tenant{ID: uuid.New(), DisplayName: "Acme"}
	throttled := &pkgsync.Error{
		Class:   status.ErrorClassThrottled,
		Message: "rate limited",
		Err: &directory.Error{
			Class:      status.ErrorClassThrottled,
			StatusCode: 429,
			Message:    "rate limited",
			RetryAfter: 5 * time.Millisecond,
		},
	}

	gomock.InOrder(
		manager.EXPECT().
			Sync(gomock.Any(), tenant.ID, pkgsync.Options{}).
			Return(nil, throttled),
		manager.EXPECT().
			Sync(gomock.Any(), tenant.ID, pkgsync.Options{}).
			Return(&pkgsync.Result{Count: 2, Pages: 1}, nil),
	)

	c := New(manager, st).(*defaultCoordinator)
	c.syncTenant(context.Background(), tenant)
}

func TestSyncTenantDoesNotRetryNonThrottledFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{
			name: "forbidden",
			err:  &pkgsync.Error{Class: status.ErrorClassForbidden, Message: "access denied"},
		},
		{
			name: "transient",
			err:  &pkgsync.Error{Class: status.ErrorClassTransient, Message: "connection reset"},
		},
		{
			name: "tenant missing",
			err:  store.ErrTenantNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			manager := syncmocks.NewMockManager(ctrl)
			st := storemocks.NewMockSignInStore(ctrl)

			tenant := store.Tenant{ID: uuid.New()}
			manager.EXPECT().
				Sync(gomock.Any(), tenant.ID, pkgsync.Options{}).
				Return(nil, tt.err).
				Times(1)

			c := New(manager, st).(*defaultCoordinator)
			c.syncTenant(context.Background(), tenant)
		})
	}
}

func TestCoordinatorStartStop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	st := storemocks.NewMockSignInStore(ctrl)

	// The initial pass runs before the first tick; subsequent ticks may or
	// may not fire before Stop.
	st.EXPECT().ListTenants(gomock.Any()).Return(nil, nil).MinTimes(1)

	c := New(manager, st,
		WithInterval(time.Hour),
		WithJitter(0),
	)

	started := make(chan struct{})
	go func() {
		close(started)
		assert.NoError(t, c.Start(context.Background()))
	}()
	<-started

	// Give the initial pass a moment to run before stopping.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Stop())
}

func TestPollingIntervalJitterStaysInBounds(t *testing.T) {
	t.Parallel()

	c := &defaultCoordinator{
		interval: time.Minute,
		jitter:   10 * time.Second,
	}

	for i := 0; i < 100; i++ {
		got := c.pollingInterval()
		assert.GreaterOrEqual(t, got, 50*time.Second)
		assert.LessOrEqual(t, got, 70*time.Second)
	}

	c.jitter = 0
	assert.Equal(t, time.Minute, c.pollingInterval())
}
