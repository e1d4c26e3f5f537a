package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusRefunded || s == PaymentStatusFailed
}

// CanTransitionTo PENDING -> {PAID, FAILED, REFUNDED}, PAID -> {REFUNDED, FAILED}
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid || next == PaymentStatusFailed || next == PaymentStatusRefunded
	case PaymentStatusPaid:
		return next == PaymentStatusRefunded || next == PaymentStatusFailed
	}
	return false
}

type Payment struct {
	ID          int64         `json:"id"`
	OrderID     int64         `json:"order_id"`
	MerchantUID string        `json:"merchant_uid"` // ключ идемпотентности, не меняется
	ImpUID      *string       `json:"imp_uid"`      // id транзакции у шлюза
	Status      PaymentStatus `json:"status"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Method      string        `json:"method"`

	// Заполняется только из ответа шлюза
	PGProvider *string    `json:"pg_provider"`
	PayMethod  *string    `json:"pay_method"`
	ReceiptURL *string    `json:"receipt_url"`
	CardBrand  *string    `json:"card_brand"`
	CardLast4  *string    `json:"card_last4"`
	PaidAt     *time.Time `json:"paid_at"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
