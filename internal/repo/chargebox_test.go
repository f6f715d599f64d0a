package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"evcpms/internal/models"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bootReg = models.ChargeBoxRegistration{
	EndpointAddress:         "http://10.0.0.5:8080/ocpp",
	OcppVersion:             models.Ocpp15,
	ChargePointVendor:       "ABB",
	ChargePointModel:        "Terra54",
	ChargePointSerialNumber: "PS-1",
	ChargeBoxSerialNumber:   "BS-1",
	FwVersion:               "1.0.3",
	MeterType:               "DC",
}

func TestUpdateRegistration(t *testing.T) {
	mock := newMock(t)
	r := NewChargeBoxRepo(mock)

	mock.ExpectExec("update chargebox set").
		WithArgs("CP1", bootReg.EndpointAddress, "1.5", "ABB", "Terra54", "PS-1", "BS-1", "1.0.3", "", "", "DC", "", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("update chargebox set").
		WithArgs("CP-unregistered", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := r.UpdateRegistration(context.Background(), "CP1", bootReg, fixedNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.UpdateRegistration(context.Background(), "CP-unregistered", bootReg, fixedNow)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRegistration_DatabaseError(t *testing.T) {
	mock := newMock(t)
	r := NewChargeBoxRepo(mock)

	mock.ExpectExec("update chargebox set").
		WithArgs("CP1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), fixedNow).
		WillReturnError(errors.New("connection refused"))

	ok, err := r.UpdateRegistration(context.Background(), "CP1", bootReg, fixedNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusUpdatesUseTimeOfReceipt(t *testing.T) {
	mock := newMock(t)
	r := NewChargeBoxRepo(mock)
	r.now = func() time.Time { return fixedNow }

	mock.ExpectExec("update chargebox set fwUpdateStatus").
		WithArgs("CP1", "Installed", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("update chargebox set diagnosticsStatus").
		WithArgs("CP1", "Uploaded", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, r.UpdateFirmwareStatus(context.Background(), "CP1", "Installed"))
	require.NoError(t, r.UpdateDiagnosticsStatus(context.Background(), "CP1", "Uploaded"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateHeartbeat_UnknownChargeBox(t *testing.T) {
	mock := newMock(t)
	r := NewChargeBoxRepo(mock)

	mock.ExpectExec("update chargebox set lastHeartbeatTimestamp").
		WithArgs("CP-x", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := r.UpdateHeartbeat(context.Background(), "CP-x", fixedNow)
	require.ErrorIs(t, err, ErrChargeBoxNotFound)
}
