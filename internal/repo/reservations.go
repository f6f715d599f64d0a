package repo

import (
	"context"
	"fmt"

	"evcpms/internal/db"
	"evcpms/internal/models"
)

// ReservationsRepo only creates reservations, for operator tooling. They are
// consumed by TransactionsRepo.Start.
type ReservationsRepo struct{ db db.Conn }

func NewReservationsRepo(conn db.Conn) *ReservationsRepo { return &ReservationsRepo{db: conn} }

func (r *ReservationsRepo) Create(ctx context.Context, res models.Reservation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		insert into reservation (idTag, chargeBoxId, expiryDatetime)
		values ($1,$2,$3)
		returning reservation_pk
	`, res.IdTag, res.ChargeBoxId, res.ExpiryDatetime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reservation: %w", err)
	}
	return id, nil
}
