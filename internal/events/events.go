// Package events доменные события, которые публикуются после коммита транзакции.
package events

import (
	"context"
	"errors"
	"time"
)

// Ключи маршрутизации
const (
	AppointmentRequested   = "appointment.requested"
	AppointmentApproved    = "appointment.approved"
	AppointmentRescheduled = "appointment.rescheduled"
	AppointmentExpired     = "appointment.expired"
	PaymentPaid            = "payment.paid"
	PaymentFailed          = "payment.failed"
	PaymentRefunded        = "payment.refunded"
)

// Event одно событие. Поля, не относящиеся к событию, остаются нулевыми.
type Event struct {
	Key           string     `json:"key"`
	OccurredAt    time.Time  `json:"occurred_at"`
	AppointmentID int64      `json:"appointment_id,omitempty"`
	OrderID       int64      `json:"order_id,omitempty"`
	ConsultantID  int64      `json:"consultant_id,omitempty"`
	ClientID      int64      `json:"client_id,omitempty"`
	StartAt       *time.Time `json:"start_at,omitempty"`
	EndAt         *time.Time `json:"end_at,omitempty"`
	MeetingURL    string     `json:"meeting_url,omitempty"`
	Amount        int64      `json:"amount,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop ничего не публикует
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi рассылает событие всем получателям; ошибки объединяются
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
