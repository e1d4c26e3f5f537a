package model

import "time"

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
	OrderStatusCancelled OrderStatus = "CANCELLED" // холд истёк или оплата брошена
)

type Order struct {
	ID           int64       `json:"id"`
	ClientID     int64       `json:"client_id"`
	ConsultantID int64       `json:"consultant_id"`
	BundleCount  int         `json:"bundle_count"`
	UnitPrice    int64       `json:"unit_price"`
	TotalPrice   int64       `json:"total_price"` // считается один раз при создании
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
