package repo

import (
	"context"
	"fmt"
	"strconv"

	"evcpms/internal/db"
	"evcpms/internal/models"

	"github.com/jackc/pgx/v5"
)

// Column names are lower case because the schema uses unquoted identifiers
// and CopyFrom quotes whatever it is given.
var meterValueColumns = []string{
	"connector_pk", "transaction_pk", "valuetimestamp", "value",
	"readingcontext", "format", "measurand", "location", "unit",
}

type MeterValuesRepo struct{ db db.Conn }

func NewMeterValuesRepo(conn db.Conn) *MeterValuesRepo { return &MeterValuesRepo{db: conn} }

// InsertLegacy stores OCPP 1.2 readings for a connector. It returns the number
// of rows written.
func (r *MeterValuesRepo) InsertLegacy(ctx context.Context, chargeBoxId string, connectorId int, values []models.LegacyMeterValue) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := ensureConnector(ctx, tx, chargeBoxId, connectorId); err != nil {
		return 0, err
	}
	pk, err := connectorPk(ctx, tx, chargeBoxId, connectorId)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(values))
	for _, v := range values {
		rows = append(rows, []any{pk, nil, v.Timestamp, strconv.Itoa(v.Value), nil, nil, nil, nil, nil})
	}
	if err := copyMeterValues(ctx, tx, rows); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

// Insert stores readings reported for a connector, optionally tied to the
// session they were sampled in.
func (r *MeterValuesRepo) Insert(ctx context.Context, chargeBoxId string, connectorId int, transactionId *int64, values []models.MeterValue) (int, error) {
	rows := sampledRows(0, transactionId, values)
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := ensureConnector(ctx, tx, chargeBoxId, connectorId); err != nil {
		return 0, err
	}
	pk, err := connectorPk(ctx, tx, chargeBoxId, connectorId)
	if err != nil {
		return 0, err
	}
	setConnectorPk(rows, pk)

	if err := copyMeterValues(ctx, tx, rows); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

// InsertForTransaction stores readings of an active session. The connector is
// taken from the session row rather than from the event.
func (r *MeterValuesRepo) InsertForTransaction(ctx context.Context, transactionId int64, values []models.MeterValue) (int, error) {
	rows := sampledRows(0, &transactionId, values)
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	pk, err := connectorPkOfTransaction(ctx, tx, transactionId)
	if err != nil {
		return 0, err
	}
	setConnectorPk(rows, pk)

	if err := copyMeterValues(ctx, tx, rows); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

func sampledRows(pk int64, transactionId *int64, values []models.MeterValue) [][]any {
	var rows [][]any
	for _, mv := range values {
		for _, sv := range mv.Values {
			rows = append(rows, []any{
				pk,
				transactionId,
				mv.Timestamp,
				sv.Value,
				models.NullableString(sv.Context),
				models.NullableString(sv.Format),
				models.NullableString(sv.Measurand),
				models.NullableString(sv.Location),
				models.NullableString(sv.Unit),
			})
		}
	}
	return rows
}

func setConnectorPk(rows [][]any, pk int64) {
	for _, row := range rows {
		row[0] = pk
	}
}

// copyMeterValues writes the whole batch with a single COPY. A short count is
// treated as a failure so the caller's transaction rolls back.
func copyMeterValues(ctx context.Context, tx pgx.Tx, rows [][]any) error {
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"connector_metervalue"}, meterValueColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy connector_metervalue: %w", err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy connector_metervalue: wrote %d of %d rows", n, len(rows))
	}
	return nil
}
