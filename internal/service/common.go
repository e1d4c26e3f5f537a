package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/events"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"go.uber.org/zap"
)

// requireConsultant возвращает пользователя, если он существует и является консультантом
func requireConsultant(ctx context.Context, users UserRepository, id int64) (*model.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get consultant: %w", err)
	}
	if !user.IsConsultant() {
		return nil, apperr.NotFound("CONSULTANT_NOT_FOUND", "consultant %d not found", id)
	}
	return user, nil
}

// requireActingConsultant действующий пользователь должен быть консультантом
func requireActingConsultant(ctx context.Context, users UserRepository, actorID int64) (*model.User, error) {
	user, err := users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsConsultant() {
		return nil, apperr.Authorization("CONSULTANT_ONLY", "only consultants can manage their calendar")
	}
	return user, nil
}

// publishAll отправляет события после коммита. Ошибка доставки не отменяет операцию.
func publishAll(ctx context.Context, pub events.Publisher, logger *zap.Logger, evs ...events.Event) {
	if pub == nil {
		return
	}
	for _, e := range evs {
		if err := pub.Publish(ctx, e); err != nil {
			logger.Warn("Failed to publish event",
				zap.String("event", e.Key),
				zap.Int64("appointment_id", e.AppointmentID),
				zap.Int64("order_id", e.OrderID),
				zap.Error(err),
			)
		}
	}
}

func appointmentEvent(key string, a *model.Appointment, clock Clock) events.Event {
	start, end := a.StartAt, a.EndAt
	e := events.Event{
		Key:           key,
		OccurredAt:    clock.Now(),
		AppointmentID: a.ID,
		ConsultantID:  a.ConsultantID,
		ClientID:      a.ClientID,
		StartAt:       &start,
		EndAt:         &end,
	}
	if a.MeetingURL != nil {
		e.MeetingURL = *a.MeetingURL
	}
	return e
}

func orderEvent(key string, o *model.Order, amount int64, reason string, clock Clock) events.Event {
	return events.Event{
		Key:          key,
		OccurredAt:   clock.Now(),
		OrderID:      o.ID,
		ConsultantID: o.ConsultantID,
		ClientID:     o.ClientID,
		Amount:       amount,
		Reason:       reason,
	}
}
