package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, client_id, consultant_id, bundle_count, unit_price, total_price, status, created_at, updated_at`

type OrderRepository struct {
	*base.Repository
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт заказ
func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	query := `
		INSERT INTO orders (client_id, consultant_id, bundle_count, unit_price, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		o.ClientID,
		o.ConsultantID,
		o.BundleCount,
		o.UnitPrice,
		o.TotalPrice,
		o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

// GetByID получает заказ по ID
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

// GetByClientID заказы клиента, новые первыми
func (r *OrderRepository) GetByClientID(ctx context.Context, clientID int64) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE client_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("get orders by client: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// UpdateStatus меняет статус заказа
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update order status: order %d not found", id)
	}

	return nil
}

// LinkAppointment привязывает запись к заказу
func (r *OrderRepository) LinkAppointment(ctx context.Context, orderID, appointmentID int64) error {
	query := `INSERT INTO order_appointments (order_id, appointment_id) VALUES ($1, $2)`

	if _, err := r.ExecAffected(ctx, query, orderID, appointmentID); err != nil {
		return fmt.Errorf("link appointment to order: %w", err)
	}

	return nil
}

// CancelCreatedByAppointment отменяет неоплаченные заказы, в которые входит запись
func (r *OrderRepository) CancelCreatedByAppointment(ctx context.Context, appointmentID int64) ([]int64, error) {
	query := `
		UPDATE orders o
		SET status = 'CANCELLED', updated_at = now()
		FROM order_appointments oa
		WHERE oa.order_id = o.id
		  AND oa.appointment_id = $1
		  AND o.status = 'CREATED'
		RETURNING o.id
	`

	rows, err := r.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("cancel orders by appointment: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.ClientID,
		&o.ConsultantID,
		&o.BundleCount,
		&o.UnitPrice,
		&o.TotalPrice,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
