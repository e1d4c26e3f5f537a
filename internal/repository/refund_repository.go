package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefundRepository struct {
	*base.Repository
}

func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{Repository: base.NewRepository(pool)}
}

// Create записывает возврат. Второй возврат по тому же заказу не вставляется,
// тогда возвращается false.
func (r *RefundRepository) Create(ctx context.Context, rf *model.Refund) (bool, error) {
	query := `
		INSERT INTO refunds (order_id, amount, status, reason, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, rf.OrderID, rf.Amount, rf.Status, rf.Reason, rf.CompletedAt).
		Scan(&rf.ID, &rf.CreatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("create refund: %w", err)
	}

	return true, nil
}

// ExistsByOrderID есть ли возврат по заказу
func (r *RefundRepository) ExistsByOrderID(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := r.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM refunds WHERE order_id = $1)`, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check refund exists: %w", err)
	}
	return exists, nil
}

// GetByOrderID возврат по заказу или nil
func (r *RefundRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.Refund, error) {
	query := `
		SELECT id, order_id, amount, status, reason, created_at, completed_at
		FROM refunds
		WHERE order_id = $1
	`

	var rf model.Refund
	err := r.QueryRow(ctx, query, orderID).Scan(
		&rf.ID,
		&rf.OrderID,
		&rf.Amount,
		&rf.Status,
		&rf.Reason,
		&rf.CreatedAt,
		&rf.CompletedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get refund: %w", err)
	}

	return &rf, nil
}
