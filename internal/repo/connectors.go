package repo

import (
	"context"
	"fmt"
	"time"

	"evcpms/internal/db"
	"evcpms/internal/models"
)

type ConnectorsRepo struct {
	db  db.Conn
	now func() time.Time
}

func NewConnectorsRepo(conn db.Conn) *ConnectorsRepo {
	return &ConnectorsRepo{db: conn, now: utcNow}
}

// InsertStatus appends one status row, creating the connector on its first
// event. Both writes commit together or not at all. created reports whether
// this call inserted the connector.
func (r *ConnectorsRepo) InsertStatus(ctx context.Context, ev models.StatusEvent) (created bool, err error) {
	ts := r.now()
	if ev.Timestamp != nil {
		ts = *ev.Timestamp
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	created, err = ensureConnector(ctx, tx, ev.ChargeBoxId, ev.ConnectorId)
	if err != nil {
		return false, err
	}
	pk, err := connectorPk(ctx, tx, ev.ChargeBoxId, ev.ConnectorId)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `
		insert into connector_status (connector_pk, statusTimestamp, status, errorCode, errorInfo, vendorId, vendorErrorCode)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, pk, ts, ev.Status, ev.ErrorCode, ev.ErrorInfo, ev.VendorId, ev.VendorErrorCode)
	if err != nil {
		return false, fmt.Errorf("insert connector_status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// EnsureConnector registers the connector on its own, outside any status
// event. Repeated calls leave exactly one row.
func (r *ConnectorsRepo) EnsureConnector(ctx context.Context, chargeBoxId string, connectorId int) (bool, error) {
	return ensureConnector(ctx, r.db, chargeBoxId, connectorId)
}
