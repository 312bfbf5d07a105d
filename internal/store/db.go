package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NickRomanek/SasWatch-sub002/internal/directory"
)

// dbSignInStore is a SignInStore backed by a pgx connection pool.
type dbSignInStore struct {
	pool *pgxpool.Pool
}

// NewDBSignInStore creates a SignInStore using the given pool. The
// caller is responsible for closing the pool when done.
func NewDBSignInStore(pool *pgxpool.Pool) (SignInStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbSignInStore{pool: pool}, nil
}

const getTenantQuery = `
SELECT id, display_name, sync_cursor, last_sync_at
FROM tenants
WHERE id = $1`

func (d *dbSignInStore) GetTenant(ctx context.Context, tenantID uuid.UUID) (*Tenant, error) {
	var t Tenant
	err := d.pool.QueryRow(ctx, getTenantQuery, tenantID).
		Scan(&t.ID, &t.DisplayName, &t.Cursor, &t.LastSyncAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

const listTenantsQuery = `
SELECT id, display_name, sync_cursor, last_sync_at
FROM tenants
ORDER BY display_name`

func (d *dbSignInStore) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := d.pool.Query(ctx, listTenantsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.DisplayName, &t.Cursor, &t.LastSyncAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (d *dbSignInStore) GetCursor(ctx context.Context, tenantID uuid.UUID) (*Cursor, error) {
	tenant, err := d.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Cursor == nil {
		return nil, nil
	}

	cursor := &Cursor{Watermark: *tenant.Cursor}
	if tenant.LastSyncAt != nil {
		cursor.SyncedAt = *tenant.LastSyncAt
	}
	return cursor, nil
}

const setCursorQuery = `
UPDATE tenants
SET sync_cursor = $2, last_sync_at = $3, updated_at = now()
WHERE id = $1`

func (d *dbSignInStore) SetCursor(ctx context.Context, tenantID uuid.UUID, watermark string, syncedAt time.Time) error {
	tag, err := d.pool.Exec(ctx, setCursorQuery, tenantID, watermark, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

const upsertSignInQuery = `
INSERT INTO signin_events (
	tenant_id, event_id, occurred_at,
	user_principal, user_display_name, app_display_name,
	client_ip, client_app, error_code, risk_level, payload, ingested_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (tenant_id, event_id) DO NOTHING`

// UpsertSignIns stores one page of records inside a single transaction
// using a pgx batch. Rows whose (tenant_id, event_id) already exist are
// skipped by ON CONFLICT DO NOTHING, which keeps re-ingestion after
// retries and overlapping windows idempotent.
func (d *dbSignInStore) UpsertSignIns(
	ctx context.Context, tenantID uuid.UUID, records []directory.SignInRecord,
) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			_ = rollbackErr
		}
	}()

	now := time.Now()
	batch := &pgx.Batch{}
	for _, rec := range records {
		var errorCode *int
		if rec.Status.ErrorCode != 0 {
			code := rec.Status.ErrorCode
			errorCode = &code
		}
		batch.Queue(upsertSignInQuery,
			tenantID,
			rec.ID,
			rec.CreatedDateTime,
			rec.UserPrincipalName,
			rec.UserDisplayName,
			rec.AppDisplayName,
			rec.IPAddress,
			rec.ClientAppUsed,
			errorCode,
			rec.RiskLevelAggregated,
			[]byte(rec.Raw),
			now,
		)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to upsert sign-in record: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

const countSignInsQuery = `
SELECT count(*) FROM signin_events WHERE tenant_id = $1`

func (d *dbSignInStore) CountSignIns(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := d.pool.QueryRow(ctx, countSignInsQuery, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sign-in records: %w", err)
	}
	return count, nil
}
