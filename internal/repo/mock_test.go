package repo

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func expectConnectorEnsured(mock pgxmock.PgxPoolIface, chargeBoxId string, connectorId int, inserted int64, pk int64) {
	mock.ExpectExec("insert into connector ").
		WithArgs(chargeBoxId, connectorId).
		WillReturnResult(pgxmock.NewResult("INSERT", inserted))
	mock.ExpectQuery("select connector_pk from connector where").
		WithArgs(chargeBoxId, connectorId).
		WillReturnRows(pgxmock.NewRows([]string{"connector_pk"}).AddRow(pk))
}
