package model

import "time"

// OrderView заказ для страниц аккаунта
type OrderView struct {
	ID           int64       `json:"id"`
	ConsultantID int64       `json:"consultant_id"`
	BundleCount  int         `json:"bundle_count"`
	UnitPrice    int64       `json:"unit_price"`
	TotalPrice   int64       `json:"total_price"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`

	MerchantUID   string        `json:"merchant_uid,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty"`
	PaymentMethod *string       `json:"payment_method"`
	PGProvider    *string       `json:"pg_provider"`
	CardBrand     *string       `json:"card_brand"`
	CardLast4     *string       `json:"card_last4"`
	PaidAt        *time.Time    `json:"paid_at"`

	RefundStatus string `json:"refund_status"` // NONE или статус возврата
	Cancellable  bool   `json:"cancellable"`

	Appointments []*AppointmentView `json:"appointments"`
}

// Quote цена одной сессии у консультанта
type Quote struct {
	ConsultantID int64          `json:"consultant_id"`
	Tier         ConsultantTier `json:"tier"`
	UnitPrice    int64          `json:"unit_price"`
}
