package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/availability"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"go.uber.org/zap"
)

// SlotInput опубликованный консультантом конкретный интервал
type SlotInput struct {
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
}

// SlotService явные слоты, которые консультант публикует поверх правил
type SlotService struct {
	tx     TxManager
	users  UserRepository
	rules  RuleRepository
	slots  SlotRepository
	zones  *availability.Zones
	logger *zap.Logger
}

func NewSlotService(
	tx TxManager,
	users UserRepository,
	rules RuleRepository,
	slots SlotRepository,
	zones *availability.Zones,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		tx:     tx,
		users:  users,
		rules:  rules,
		slots:  slots,
		zones:  zones,
		logger: logger,
	}
}

// AddSlots публикует слоты в собственный календарь. Повторы пропускаются.
// Возвращает количество реально добавленных.
func (s *SlotService) AddSlots(ctx context.Context, actorID int64, in []SlotInput) (int, error) {
	if _, err := requireActingConsultant(ctx, s.users, actorID); err != nil {
		return 0, err
	}

	if len(in) == 0 {
		return 0, apperr.Validation("NO_SLOTS", "at least one slot is required")
	}
	for i := range in {
		if !in[i].StartAt.Before(in[i].EndAt) {
			return 0, apperr.Validation(availability.ErrInvalidInterval.Code, "slot %d: end_at must be after start_at", i)
		}
		if err := validateInput(in[i]); err != nil {
			return 0, err
		}
	}

	added := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, item := range in {
			created, err := s.slots.Create(ctx, &model.AvailableSlot{
				ConsultantID: actorID,
				StartAt:      item.StartAt,
				EndAt:        item.EndAt,
			})
			if err != nil {
				return err
			}
			if created {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("add slots: %w", err)
	}

	s.logger.Info("Slots published",
		zap.Int64("consultant_id", actorID),
		zap.Int("requested", len(in)),
		zap.Int("added", added),
	)

	return added, nil
}

// RemoveSlot удаляет слот; чужой слот удалить нельзя
func (s *SlotService) RemoveSlot(ctx context.Context, actorID, slotID int64) error {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return apperr.NotFound("SLOT_NOT_FOUND", "slot %d not found", slotID)
	}
	if slot.ConsultantID != actorID {
		return apperr.Authorization("NOT_SLOT_OWNER", "only the owner can remove this slot")
	}

	return s.slots.Delete(ctx, slotID)
}

// ListSlots слоты консультанта на дни from..to включительно в его зоне
func (s *SlotService) ListSlots(ctx context.Context, consultantID int64, from, to time.Time) ([]*model.AvailableSlot, error) {
	if _, err := requireConsultant(ctx, s.users, consultantID); err != nil {
		return nil, err
	}

	rules, err := s.rules.GetByConsultantID(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}
	loc := s.zones.ForConsultant(rules)

	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	lower := time.Date(fy, fm, fd, 0, 0, 0, 0, loc)
	upper := time.Date(ty, tm, td, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	if !lower.Before(upper) {
		return nil, apperr.Validation(availability.ErrInvalidRange.Code, "`to` must be the same or after `from`")
	}

	return s.slots.ListInRange(ctx, consultantID, lower, upper)
}

// Exists точное совпадение с опубликованным слотом
func (s *SlotService) Exists(ctx context.Context, consultantID int64, start, end time.Time) (bool, error) {
	return s.slots.Exists(ctx, consultantID, start, end)
}
