package repo

import (
	"context"
	"fmt"
	"time"

	"evcpms/internal/db"
	"evcpms/internal/models"
)

type ChargeBoxRepo struct {
	db  db.Conn
	now func() time.Time
}

func NewChargeBoxRepo(conn db.Conn) *ChargeBoxRepo {
	return &ChargeBoxRepo{db: conn, now: utcNow}
}

// UpdateRegistration stores the boot attributes of a pre-registered charge
// box. It reports false, without error, when no row matched.
func (r *ChargeBoxRepo) UpdateRegistration(ctx context.Context, chargeBoxId string, reg models.ChargeBoxRegistration, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		update chargebox set
		  endpointAddress=$2,
		  ocppVersion=$3,
		  chargePointVendor=$4,
		  chargePointModel=$5,
		  chargePointSerialNumber=$6,
		  chargeBoxSerialNumber=$7,
		  fwVersion=$8,
		  iccid=$9,
		  imsi=$10,
		  meterType=$11,
		  meterSerialNumber=$12,
		  lastHeartbeatTimestamp=$13
		where chargeBoxId=$1
	`, chargeBoxId, reg.EndpointAddress, string(reg.OcppVersion), reg.ChargePointVendor, reg.ChargePointModel,
		reg.ChargePointSerialNumber, reg.ChargeBoxSerialNumber, reg.FwVersion, reg.Iccid, reg.Imsi,
		reg.MeterType, reg.MeterSerialNumber, now)
	if err != nil {
		return false, fmt.Errorf("update chargebox registration: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ChargeBoxRepo) UpdateFirmwareStatus(ctx context.Context, chargeBoxId, status string) error {
	tag, err := r.db.Exec(ctx, `
		update chargebox set fwUpdateStatus=$2, fwUpdateTimestamp=$3 where chargeBoxId=$1
	`, chargeBoxId, status, r.now())
	if err != nil {
		return fmt.Errorf("update chargebox firmware status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChargeBoxNotFound
	}
	return nil
}

func (r *ChargeBoxRepo) UpdateDiagnosticsStatus(ctx context.Context, chargeBoxId, status string) error {
	tag, err := r.db.Exec(ctx, `
		update chargebox set diagnosticsStatus=$2, diagnosticsTimestamp=$3 where chargeBoxId=$1
	`, chargeBoxId, status, r.now())
	if err != nil {
		return fmt.Errorf("update chargebox diagnostics status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChargeBoxNotFound
	}
	return nil
}

func (r *ChargeBoxRepo) UpdateHeartbeat(ctx context.Context, chargeBoxId string, ts time.Time) error {
	tag, err := r.db.Exec(ctx, `
		update chargebox set lastHeartbeatTimestamp=$2 where chargeBoxId=$1
	`, chargeBoxId, ts)
	if err != nil {
		return fmt.Errorf("update chargebox heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChargeBoxNotFound
	}
	return nil
}

// Register creates the charge box row. Registration belongs to operator
// tooling; the event path only ever updates existing rows.
func (r *ChargeBoxRepo) Register(ctx context.Context, chargeBoxId string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		insert into chargebox (chargeBoxId) values ($1)
		on conflict (chargeBoxId) do nothing
	`, chargeBoxId)
	if err != nil {
		return false, fmt.Errorf("insert chargebox: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
