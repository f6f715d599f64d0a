package repo

import (
	"context"
	"fmt"

	"evcpms/internal/db"
	"evcpms/internal/models"
)

type TransactionsRepo struct{ db db.Conn }

func NewTransactionsRepo(conn db.Conn) *TransactionsRepo { return &TransactionsRepo{db: conn} }

// Start opens a session on an existing connector and returns its key. A
// referenced reservation is deleted in the same transaction; if it cannot be
// deleted the session insert is rolled back as well.
func (r *TransactionsRepo) Start(ctx context.Context, s models.StartTransaction) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	pk, err := connectorPk(ctx, tx, s.ChargeBoxId, s.ConnectorId)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRow(ctx, `
		insert into transaction (connector_pk, idTag, startTimestamp, startValue)
		values ($1,$2,$3,$4)
		returning transaction_pk
	`, pk, s.IdTag, s.StartTimestamp, s.StartValue).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	if s.ReservationId != nil {
		if err := deleteReservation(ctx, tx, *s.ReservationId); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Stop sets the stop fields. Prior stop state is not checked.
func (r *TransactionsRepo) Stop(ctx context.Context, s models.StopTransaction) error {
	tag, err := r.db.Exec(ctx, `
		update transaction set stopTimestamp=$2, stopValue=$3 where transaction_pk=$1
	`, s.TransactionId, s.StopTimestamp, s.StopValue)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
