package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/model"
)

// TxManager открывает транзакцию и передаёт её через контекст
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MeetingLinkBuilder строит ссылку на комнату встречи
type MeetingLinkBuilder interface {
	Build(appointmentID int64) string
}

// MeetingLinks ссылки вида {base}/Meeting?apt={id}
type MeetingLinks struct {
	Base string
}

func (l MeetingLinks) Build(appointmentID int64) string {
	return fmt.Sprintf("%s/Meeting?apt=%d", strings.TrimRight(l.Base, "/"), appointmentID)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	LockByID(ctx context.Context, id int64) (*model.User, error)
}

type RuleRepository interface {
	Create(ctx context.Context, rule *model.AvailabilityRule) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilityRule, error)
	GetByConsultantID(ctx context.Context, consultantID int64) ([]*model.AvailabilityRule, error)
	Delete(ctx context.Context, id int64) error
}

type SlotRepository interface {
	Create(ctx context.Context, slot *model.AvailableSlot) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error)
	ListInRange(ctx context.Context, consultantID int64, from, to time.Time) ([]*model.AvailableSlot, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, consultantID int64, start, end time.Time) (bool, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Appointment, error)
	LockStaleRequested(ctx context.Context, id int64, cutoff time.Time) (*model.Appointment, error)
	GetByOrderID(ctx context.Context, orderID int64) ([]*model.Appointment, error)
	GetByOrderIDForUpdate(ctx context.Context, orderID int64) ([]*model.Appointment, error)
	GetByClientID(ctx context.Context, clientID int64) ([]*model.Appointment, error)
	GetByConsultantID(ctx context.Context, consultantID int64) ([]*model.Appointment, error)
	GetStaleRequestedIDs(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
	ExistsActiveOverlap(ctx context.Context, consultantID int64, start, end time.Time, excludeID int64) (bool, error)
	Update(ctx context.Context, a *model.Appointment) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByClientID(ctx context.Context, clientID int64) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error
	LinkAppointment(ctx context.Context, orderID, appointmentID int64) error
	CancelCreatedByAppointment(ctx context.Context, appointmentID int64) ([]int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByMerchantUIDForUpdate(ctx context.Context, merchantUID string) (*model.Payment, error)
	GetByOrderIDForUpdate(ctx context.Context, orderID int64) (*model.Payment, error)
	GetByOrderID(ctx context.Context, orderID int64) (*model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
}

type RefundRepository interface {
	Create(ctx context.Context, r *model.Refund) (bool, error)
	ExistsByOrderID(ctx context.Context, orderID int64) (bool, error)
	GetByOrderID(ctx context.Context, orderID int64) (*model.Refund, error)
}
