package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"evcpms/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertLegacy_SingleCopy(t *testing.T) {
	mock := newMock(t)
	r := NewMeterValuesRepo(mock)

	mock.ExpectBegin()
	expectConnectorEnsured(mock, "CP1", 1, 0, 7)
	mock.ExpectCopyFrom(pgx.Identifier{"connector_metervalue"}, meterValueColumns).WillReturnResult(2)
	mock.ExpectCommit()

	n, err := r.InsertLegacy(context.Background(), "CP1", 1, []models.LegacyMeterValue{
		{Timestamp: fixedNow, Value: 100},
		{Timestamp: fixedNow.Add(time.Minute), Value: 112},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_CopyFailureRollsBackWholeBatch(t *testing.T) {
	mock := newMock(t)
	r := NewMeterValuesRepo(mock)

	mock.ExpectBegin()
	expectConnectorEnsured(mock, "CP1", 1, 0, 7)
	mock.ExpectCopyFrom(pgx.Identifier{"connector_metervalue"}, meterValueColumns).
		WillReturnError(errors.New(`invalid input syntax for type timestamp`))
	mock.ExpectRollback()

	n, err := r.Insert(context.Background(), "CP1", 1, nil, []models.MeterValue{
		{Timestamp: fixedNow, Values: []models.SampledValue{{Value: "1"}, {Value: "2"}, {Value: "3"}}},
	})
	require.Error(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ShortCopyIsFailure(t *testing.T) {
	mock := newMock(t)
	r := NewMeterValuesRepo(mock)

	mock.ExpectBegin()
	expectConnectorEnsured(mock, "CP1", 1, 0, 7)
	mock.ExpectCopyFrom(pgx.Identifier{"connector_metervalue"}, meterValueColumns).WillReturnResult(1)
	mock.ExpectRollback()

	_, err := r.Insert(context.Background(), "CP1", 1, nil, []models.MeterValue{
		{Timestamp: fixedNow, Values: []models.SampledValue{{Value: "1"}, {Value: "2"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrote 1 of 2 rows")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertForTransaction_ResolvesConnectorFromSession(t *testing.T) {
	mock := newMock(t)
	r := NewMeterValuesRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("select connector_pk from transaction where").
		WithArgs(int64(55)).
		WillReturnRows(pgxmock.NewRows([]string{"connector_pk"}).AddRow(int64(7)))
	mock.ExpectCopyFrom(pgx.Identifier{"connector_metervalue"}, meterValueColumns).WillReturnResult(3)
	mock.ExpectCommit()

	n, err := r.InsertForTransaction(context.Background(), 55, []models.MeterValue{
		{Timestamp: fixedNow, Values: []models.SampledValue{
			{Value: "1200", Measurand: models.Optional(models.MeasurandEnergyActiveImportRegister), Unit: models.Optional(models.UnitWh)},
			{Value: "7.2", Measurand: models.Optional(models.MeasurandPowerActiveImport), Unit: models.Optional(models.UnitKW)},
		}},
		{Timestamp: fixedNow.Add(time.Minute), Values: []models.SampledValue{
			{Value: "1320", Context: models.Optional(models.ContextSamplePeriodic)},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertForTransaction_UnknownSession(t *testing.T) {
	mock := newMock(t)
	r := NewMeterValuesRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("select connector_pk from transaction where").
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows([]string{"connector_pk"}))
	mock.ExpectRollback()

	_, err := r.InsertForTransaction(context.Background(), 404, []models.MeterValue{
		{Timestamp: fixedNow, Values: []models.SampledValue{{Value: "1"}}},
	})
	require.ErrorIs(t, err, ErrTransactionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_EmptyEventTouchesNothing(t *testing.T) {
	mock := newMock(t)
	r := NewMeterValuesRepo(mock)

	n, err := r.Insert(context.Background(), "CP1", 1, nil, []models.MeterValue{{Timestamp: fixedNow}})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.InsertLegacy(context.Background(), "CP1", 1, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSampledRows_NullForAbsentAttributes(t *testing.T) {
	txId := int64(3)
	rows := sampledRows(0, &txId, []models.MeterValue{
		{Timestamp: fixedNow, Values: []models.SampledValue{
			{Value: "10"},
			{Value: "11", Format: models.Optional(models.FormatRaw), Location: models.Optional(models.LocationOutlet)},
		}},
	})
	setConnectorPk(rows, 7)

	require.Len(t, rows, 2)
	assert.Equal(t, int64(7), rows[0][0])
	assert.Equal(t, &txId, rows[0][1])
	for _, col := range rows[0][4:] {
		assert.Nil(t, col)
	}
	assert.Equal(t, "Raw", *rows[1][5].(*string))
	assert.Equal(t, "Outlet", *rows[1][7].(*string))
	assert.Nil(t, rows[1][6])
}
