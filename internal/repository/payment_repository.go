package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, order_id, merchant_uid, imp_uid, status, amount, currency, method,
	pg_provider, pay_method, receipt_url, card_brand, card_last4, paid_at, version, created_at, updated_at`

type PaymentRepository struct {
	*base.Repository
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт платёж в статусе PENDING
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	query := `
		INSERT INTO payments (order_id, merchant_uid, status, amount, currency, method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		p.OrderID,
		p.MerchantUID,
		p.Status,
		p.Amount,
		p.Currency,
		p.Method,
	).Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

// GetByMerchantUIDForUpdate блокирует платёж по merchant_uid
func (r *PaymentRepository) GetByMerchantUIDForUpdate(ctx context.Context, merchantUID string) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE merchant_uid = $1 FOR UPDATE`, merchantUID)
}

// GetByOrderIDForUpdate блокирует платёж заказа
func (r *PaymentRepository) GetByOrderIDForUpdate(ctx context.Context, orderID int64) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID)
}

// GetByOrderID платёж заказа без блокировки
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, args ...any) (*model.Payment, error) {
	p, err := scanPayment(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// Update сохраняет статус и данные шлюза. merchant_uid не меняется никогда.
func (r *PaymentRepository) Update(ctx context.Context, p *model.Payment) error {
	query := `
		UPDATE payments
		SET imp_uid = $1, status = $2, pg_provider = $3, pay_method = $4, receipt_url = $5,
		    card_brand = $6, card_last4 = $7, paid_at = $8,
		    version = version + 1, updated_at = now()
		WHERE id = $9 AND version = $10
		RETURNING version, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		p.ImpUID,
		p.Status,
		p.PGProvider,
		p.PayMethod,
		p.ReceiptURL,
		p.CardBrand,
		p.CardLast4,
		p.PaidAt,
		p.ID,
		p.Version,
	).Scan(&p.Version, &p.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update payment %d: %w", p.ID, ErrStaleVersion)
		}
		return fmt.Errorf("update payment: %w", err)
	}

	return nil
}

func scanPayment(row rowScanner) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.MerchantUID,
		&p.ImpUID,
		&p.Status,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.PGProvider,
		&p.PayMethod,
		&p.ReceiptURL,
		&p.CardBrand,
		&p.CardLast4,
		&p.PaidAt,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
