package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/availability"
	"github.com/Freeeeeet/consult_booking/internal/events"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/Freeeeeet/consult_booking/internal/repository"
	"github.com/Freeeeeet/consult_booking/internal/repository/base"
	"go.uber.org/zap"
)

const (
	DefaultHoldTTL = 15 * time.Minute

	// за один проход очистки
	expiryBatchSize = 500
)

// AppointmentDeps зависимости AppointmentService
type AppointmentDeps struct {
	Tx           TxManager
	Users        UserRepository
	Rules        RuleRepository
	Appointments AppointmentRepository
	Orders       OrderRepository
	Engine       *availability.Engine
	Links        MeetingLinkBuilder
	Clock        Clock
	Events       events.Publisher
	HoldTTL      time.Duration
	Logger       *zap.Logger
}

// AppointmentService журнал записей: создание, перенос, одобрение, снятие просроченных холдов.
// Все изменения календаря консультанта идут под блокировкой его строки в users.
type AppointmentService struct {
	tx           TxManager
	users        UserRepository
	rules        RuleRepository
	appointments AppointmentRepository
	orders       OrderRepository
	engine       *availability.Engine
	links        MeetingLinkBuilder
	clock        Clock
	events       events.Publisher
	holdTTL      time.Duration
	logger       *zap.Logger
}

func NewAppointmentService(d AppointmentDeps) *AppointmentService {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.HoldTTL <= 0 {
		d.HoldTTL = DefaultHoldTTL
	}
	return &AppointmentService{
		tx:           d.Tx,
		users:        d.Users,
		rules:        d.Rules,
		appointments: d.Appointments,
		orders:       d.Orders,
		engine:       d.Engine,
		links:        d.Links,
		clock:        d.Clock,
		events:       d.Events,
		holdTTL:      d.HoldTTL,
		logger:       d.Logger,
	}
}

// Create создаёт холд REQUESTED
func (s *AppointmentService) Create(ctx context.Context, consultantID, clientID int64, start, end time.Time) (*model.Appointment, error) {
	var created *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.createInTx(ctx, consultantID, clientID, start, end)
		created = a
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment requested",
		zap.Int64("appointment_id", created.ID),
		zap.Int64("consultant_id", consultantID),
		zap.Int64("client_id", clientID),
		zap.Time("start_at", created.StartAt),
	)

	publishAll(ctx, s.events, s.logger, appointmentEvent(events.AppointmentRequested, created, s.clock))

	return created, nil
}

// createInTx выполняется внутри уже открытой транзакции
func (s *AppointmentService) createInTx(ctx context.Context, consultantID, clientID int64, start, end time.Time) (*model.Appointment, error) {
	if !start.Before(end) {
		return nil, apperr.Validation(availability.ErrInvalidInterval.Code, "start must be before end")
	}
	if !start.After(s.clock.Now()) {
		return nil, apperr.Validation("START_IN_PAST", "appointment must start in the future")
	}

	consultant, err := s.users.LockByID(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("lock consultant: %w", err)
	}
	if !consultant.IsConsultant() {
		return nil, apperr.NotFound("CONSULTANT_NOT_FOUND", "consultant %d not found", consultantID)
	}

	if err := s.validateAgainstRules(ctx, consultantID, start, end); err != nil {
		return nil, err
	}

	if err := s.ensureFree(ctx, consultantID, start, end, 0); err != nil {
		return nil, err
	}

	a := &model.Appointment{
		ConsultantID: consultantID,
		ClientID:     clientID,
		StartAt:      start,
		EndAt:        end,
		Status:       model.AppointmentStatusRequested,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		if base.IsExclusionViolation(err) {
			return nil, slotTaken()
		}
		return nil, err
	}

	return a, nil
}

// Reschedule переносит REQUESTED или APPROVED запись клиента
func (s *AppointmentService) Reschedule(ctx context.Context, id, requesterID int64, newStart, newEnd time.Time) (*model.Appointment, error) {
	var updated *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperr.NotFound("APPOINTMENT_NOT_FOUND", "appointment %d not found", id)
		}

		// консультант первым, потом запись
		if _, err := s.users.LockByID(ctx, current.ConsultantID); err != nil {
			return fmt.Errorf("lock consultant: %w", err)
		}
		a, err := s.appointments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.NotFound("APPOINTMENT_NOT_FOUND", "appointment %d not found", id)
		}

		if a.ClientID != requesterID {
			return apperr.Authorization("NOT_APPOINTMENT_CLIENT", "only the client can reschedule")
		}
		if !a.Status.IsBlocking() {
			return apperr.State("APPOINTMENT_NOT_ACTIVE", "appointment is %s", a.Status)
		}
		if !newStart.Before(newEnd) {
			return apperr.Validation(availability.ErrInvalidInterval.Code, "start must be before end")
		}
		if !newStart.After(s.clock.Now()) {
			return apperr.Validation("START_IN_PAST", "appointment must start in the future")
		}
		if err := s.validateAgainstRules(ctx, a.ConsultantID, newStart, newEnd); err != nil {
			return err
		}
		if err := s.ensureFree(ctx, a.ConsultantID, newStart, newEnd, a.ID); err != nil {
			return err
		}

		a.StartAt = newStart
		a.EndAt = newEnd
		if err := s.save(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment rescheduled",
		zap.Int64("appointment_id", updated.ID),
		zap.Time("start_at", updated.StartAt),
		zap.Int64("version", updated.Version),
	)

	publishAll(ctx, s.events, s.logger, appointmentEvent(events.AppointmentRescheduled, updated, s.clock))

	return updated, nil
}

// Approve одобряет заявку и выдаёт ссылку на встречу
func (s *AppointmentService) Approve(ctx context.Context, id, consultantID int64) (*model.Appointment, error) {
	var approved *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.NotFound("APPOINTMENT_NOT_FOUND", "appointment %d not found", id)
		}
		if a.ConsultantID != consultantID {
			return apperr.Authorization("NOT_APPOINTMENT_CONSULTANT", "only the consultant can approve")
		}
		if a.Status != model.AppointmentStatusRequested {
			return apperr.State("APPOINTMENT_NOT_REQUESTED", "appointment is %s", a.Status)
		}

		s.markApproved(a)
		if err := s.save(ctx, a); err != nil {
			return err
		}
		approved = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment approved",
		zap.Int64("appointment_id", approved.ID),
		zap.Int64("consultant_id", consultantID),
	)

	publishAll(ctx, s.events, s.logger, appointmentEvent(events.AppointmentApproved, approved, s.clock))

	return approved, nil
}

// ExpireStaleHolds снимает холды старше holdTTL. Каждая запись в своей транзакции;
// строки, которые сейчас держит другая транзакция, пропускаются до следующего прохода.
func (s *AppointmentService) ExpireStaleHolds(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.holdTTL)

	ids, err := s.appointments.GetStaleRequestedIDs(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	var (
		expired int
		errs    []error
	)
	for _, id := range ids {
		var cancelled *model.Appointment
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			a, err := s.appointments.LockStaleRequested(ctx, id, cutoff)
			if err != nil {
				return err
			}
			if a == nil {
				return nil
			}

			a.Status = model.AppointmentStatusCancelled
			if err := s.save(ctx, a); err != nil {
				return err
			}

			orderIDs, err := s.orders.CancelCreatedByAppointment(ctx, a.ID)
			if err != nil {
				return err
			}
			if len(orderIDs) > 0 {
				s.logger.Debug("Unpaid orders cancelled",
					zap.Int64("appointment_id", a.ID),
					zap.Int64s("order_ids", orderIDs),
				)
			}

			cancelled = a
			return nil
		})
		if err != nil {
			s.logger.Error("Failed to expire hold", zap.Int64("appointment_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("expire appointment %d: %w", id, err))
			continue
		}
		if cancelled == nil {
			continue
		}

		expired++
		publishAll(ctx, s.events, s.logger, appointmentEvent(events.AppointmentExpired, cancelled, s.clock))
	}

	if expired > 0 {
		s.logger.Info("Stale holds expired", zap.Int("count", expired), zap.Time("cutoff", cutoff))
	}

	return expired, errors.Join(errs...)
}

// Get запись видна только её клиенту и консультанту
func (s *AppointmentService) Get(ctx context.Context, actorID, id int64) (*model.AppointmentView, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("APPOINTMENT_NOT_FOUND", "appointment %d not found", id)
	}
	if a.ClientID != actorID && a.ConsultantID != actorID {
		return nil, apperr.Authorization("NOT_APPOINTMENT_PARTY", "appointment belongs to someone else")
	}
	return a.View(), nil
}

func (s *AppointmentService) ListForClient(ctx context.Context, clientID int64) ([]*model.AppointmentView, error) {
	list, err := s.appointments.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return views(list), nil
}

func (s *AppointmentService) ListForConsultant(ctx context.Context, consultantID int64) ([]*model.AppointmentView, error) {
	list, err := s.appointments.GetByConsultantID(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	return views(list), nil
}

// ensureFree единственная проверка пересечения для всех путей записи.
// excludeID = 0 означает, что исключать некого.
func (s *AppointmentService) ensureFree(ctx context.Context, consultantID int64, start, end time.Time, excludeID int64) error {
	busy, err := s.appointments.ExistsActiveOverlap(ctx, consultantID, start, end, excludeID)
	if err != nil {
		return err
	}
	if busy {
		return slotTaken()
	}
	return nil
}

func (s *AppointmentService) validateAgainstRules(ctx context.Context, consultantID int64, start, end time.Time) error {
	rules, err := s.rules.GetByConsultantID(ctx, consultantID)
	if err != nil {
		return fmt.Errorf("get rules: %w", err)
	}
	return s.engine.Validate(rules, start, end)
}

func (s *AppointmentService) markApproved(a *model.Appointment) {
	link := s.links.Build(a.ID)
	a.MeetingURL = &link
	a.Status = model.AppointmentStatusApproved
}

func (s *AppointmentService) save(ctx context.Context, a *model.Appointment) error {
	return saveAppointment(ctx, s.appointments, a)
}

func saveAppointment(ctx context.Context, repo AppointmentRepository, a *model.Appointment) error {
	if err := repo.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return apperr.Conflict("STALE_APPOINTMENT", "appointment %d was modified concurrently", a.ID)
		}
		return err
	}
	return nil
}

func slotTaken() error {
	return apperr.Conflict("SLOT_TAKEN", "the consultant is already booked for this time")
}

func views(list []*model.Appointment) []*model.AppointmentView {
	out := make([]*model.AppointmentView, 0, len(list))
	for _, a := range list {
		out = append(out, a.View())
	}
	return out
}
