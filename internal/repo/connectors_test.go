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

func TestInsertStatus_NewConnector(t *testing.T) {
	mock := newMock(t)
	r := NewConnectorsRepo(mock)
	r.now = func() time.Time { return fixedNow }

	mock.ExpectBegin()
	expectConnectorEnsured(mock, "CP1", 1, 1, 7)
	mock.ExpectExec("insert into connector_status").
		WithArgs(int64(7), fixedNow, "Available", "NoError", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	created, err := r.InsertStatus(context.Background(), models.StatusEvent{
		ChargeBoxId: "CP1",
		ConnectorId: 1,
		Status:      "Available",
		ErrorCode:   "NoError",
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStatus_KnownConnectorKeepsDeviceTimestamp(t *testing.T) {
	mock := newMock(t)
	r := NewConnectorsRepo(mock)
	r.now = func() time.Time { return fixedNow }
	reported := fixedNow.Add(-time.Hour)

	mock.ExpectBegin()
	expectConnectorEnsured(mock, "CP1", 2, 0, 9)
	mock.ExpectExec("insert into connector_status").
		WithArgs(int64(9), reported, "Faulted", "GroundFailure", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	created, err := r.InsertStatus(context.Background(), models.StatusEvent{
		ChargeBoxId:     "CP1",
		ConnectorId:     2,
		Status:          "Faulted",
		ErrorCode:       "GroundFailure",
		VendorErrorCode: models.Optional("E42"),
		Timestamp:       &reported,
	})
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStatus_StatusInsertFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	r := NewConnectorsRepo(mock)
	r.now = func() time.Time { return fixedNow }

	mock.ExpectBegin()
	expectConnectorEnsured(mock, "CP1", 1, 1, 7)
	mock.ExpectExec("insert into connector_status").
		WithArgs(int64(7), fixedNow, "Available", "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, err := r.InsertStatus(context.Background(), models.StatusEvent{ChargeBoxId: "CP1", ConnectorId: 1, Status: "Available"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert connector_status")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStatus_ConnectorInsertFailureStopsEarly(t *testing.T) {
	mock := newMock(t)
	r := NewConnectorsRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("insert into connector ").
		WithArgs("CP-unknown", 1).
		WillReturnError(errors.New(`violates foreign key constraint "connector_chargeboxid_fkey"`))
	mock.ExpectRollback()

	_, err := r.InsertStatus(context.Background(), models.StatusEvent{ChargeBoxId: "CP-unknown", ConnectorId: 1, Status: "Available"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStatus_BeginFailure(t *testing.T) {
	mock := newMock(t)
	r := NewConnectorsRepo(mock)

	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	_, err := r.InsertStatus(context.Background(), models.StatusEvent{ChargeBoxId: "CP1", ConnectorId: 1})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureConnector_Idempotent(t *testing.T) {
	mock := newMock(t)
	r := NewConnectorsRepo(mock)

	mock.ExpectExec("insert into connector ").WithArgs("CP1", 1).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("insert into connector ").WithArgs("CP1", 1).WillReturnResult(pgxmock.NewResult("INSERT", 0))

	first, err := r.EnsureConnector(context.Background(), "CP1", 1)
	require.NoError(t, err)
	second, err := r.EnsureConnector(context.Background(), "CP1", 1)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	require.NoError(t, mock.ExpectationsWereMet())
}
