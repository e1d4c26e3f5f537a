package model

import "time"

type RefundStatus string

const RefundStatusCompleted RefundStatus = "COMPLETED"

const (
	RefundReasonWebhook         = "PORTONE_WEBHOOK"
	RefundReasonSlotUnavailable = "SLOT_UNAVAILABLE"
)

// Refund не больше одного на заказ
type Refund struct {
	ID          int64        `json:"id"`
	OrderID     int64        `json:"order_id"`
	Amount      int64        `json:"amount"`
	Status      RefundStatus `json:"status"`
	Reason      string       `json:"reason"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at"`
}
