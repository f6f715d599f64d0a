package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrChargeBoxNotFound   = errors.New("charge box not found")
	ErrConnectorNotFound   = errors.New("connector not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// querier is satisfied by pgx.Tx; the helpers below only run inside one.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func utcNow() time.Time { return time.Now().UTC() }

// ensureConnector inserts the (chargeBoxId, connectorId) pair unless it is
// already known. The unique constraint makes concurrent first events safe.
func ensureConnector(ctx context.Context, q querier, chargeBoxId string, connectorId int) (bool, error) {
	tag, err := q.Exec(ctx, `
		insert into connector (chargeBoxId, connectorId) values ($1,$2)
		on conflict (chargeBoxId, connectorId) do nothing
	`, chargeBoxId, connectorId)
	if err != nil {
		return false, fmt.Errorf("insert connector: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func connectorPk(ctx context.Context, q querier, chargeBoxId string, connectorId int) (int64, error) {
	var pk int64
	err := q.QueryRow(ctx, `
		select connector_pk from connector where chargeBoxId=$1 and connectorId=$2
	`, chargeBoxId, connectorId).Scan(&pk)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrConnectorNotFound
		}
		return 0, fmt.Errorf("select connector_pk: %w", err)
	}
	return pk, nil
}

func connectorPkOfTransaction(ctx context.Context, q querier, transactionPk int64) (int64, error) {
	var pk int64
	err := q.QueryRow(ctx, `
		select connector_pk from transaction where transaction_pk=$1
	`, transactionPk).Scan(&pk)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrTransactionNotFound
		}
		return 0, fmt.Errorf("select transaction connector_pk: %w", err)
	}
	return pk, nil
}

func deleteReservation(ctx context.Context, q querier, reservationPk int64) error {
	tag, err := q.Exec(ctx, `delete from reservation where reservation_pk=$1`, reservationPk)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrReservationNotFound
	}
	return nil
}
