package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/availability"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"go.uber.org/zap"
)

// RuleInput новое еженедельное правило
type RuleInput struct {
	Weekday     int    `json:"weekday" validate:"required,min=1,max=7"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	EndTime     string `json:"end_time" validate:"required,hhmm"`
	SlotMinutes int    `json:"slot_minutes" validate:"required,gt=0,lte=1440"`
	ZoneID      string `json:"zone_id" validate:"omitempty,timezone"`
}

type AvailabilityService struct {
	users  UserRepository
	rules  RuleRepository
	engine *availability.Engine
	logger *zap.Logger
}

func NewAvailabilityService(
	users UserRepository,
	rules RuleRepository,
	engine *availability.Engine,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		users:  users,
		rules:  rules,
		engine: engine,
		logger: logger,
	}
}

// CreateRule добавляет правило в собственный календарь консультанта
func (s *AvailabilityService) CreateRule(ctx context.Context, actorID int64, in RuleInput) (*model.AvailabilityRule, error) {
	if _, err := requireActingConsultant(ctx, s.users, actorID); err != nil {
		return nil, err
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}

	start, _ := model.ParseTimeOfDay(in.StartTime)
	end, _ := model.ParseTimeOfDay(in.EndTime)
	if start >= end {
		return nil, apperr.Validation("INVALID_INTERVAL", "start_time must be before end_time")
	}
	if int(end-start) < in.SlotMinutes {
		return nil, apperr.Validation("SLOT_TOO_LONG", "slot_minutes exceeds the rule window")
	}

	rule := &model.AvailabilityRule{
		ConsultantID: actorID,
		Weekday:      in.Weekday,
		StartTime:    start,
		EndTime:      end,
		SlotMinutes:  in.SlotMinutes,
		ZoneID:       in.ZoneID,
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	s.logger.Info("Availability rule created",
		zap.Int64("rule_id", rule.ID),
		zap.Int64("consultant_id", actorID),
		zap.Int("weekday", rule.Weekday),
		zap.String("start", rule.StartTime.String()),
		zap.String("end", rule.EndTime.String()),
	)

	return rule, nil
}

// DeleteRule удаляет правило; чужое правило удалить нельзя
func (s *AvailabilityService) DeleteRule(ctx context.Context, actorID, ruleID int64) error {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("get rule: %w", err)
	}
	if rule == nil {
		return apperr.NotFound("RULE_NOT_FOUND", "rule %d not found", ruleID)
	}
	if rule.ConsultantID != actorID {
		return apperr.Authorization("NOT_RULE_OWNER", "only the owner can delete this rule")
	}

	return s.rules.Delete(ctx, ruleID)
}

// ListRules правила консультанта
func (s *AvailabilityService) ListRules(ctx context.Context, consultantID int64) ([]*model.AvailabilityRule, error) {
	if _, err := requireConsultant(ctx, s.users, consultantID); err != nil {
		return nil, err
	}
	return s.rules.GetByConsultantID(ctx, consultantID)
}

// Validate проверяет интервал по правилам консультанта
func (s *AvailabilityService) Validate(ctx context.Context, consultantID int64, start, end time.Time) error {
	rules, err := s.rules.GetByConsultantID(ctx, consultantID)
	if err != nil {
		return fmt.Errorf("get rules: %w", err)
	}
	return s.engine.Validate(rules, start, end)
}

// GenerateSlots кандидаты в слоты на дни from..to включительно
func (s *AvailabilityService) GenerateSlots(ctx context.Context, consultantID int64, from, to time.Time) ([]availability.Window, error) {
	if _, err := requireConsultant(ctx, s.users, consultantID); err != nil {
		return nil, err
	}

	rules, err := s.rules.GetByConsultantID(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}

	seq, err := s.engine.GenerateSlots(rules, from, to)
	if err != nil {
		return nil, err
	}

	return slices.Collect(seq), nil
}

// ConsultantZone зона, в которой живёт календарь консультанта
func (s *AvailabilityService) ConsultantZone(ctx context.Context, consultantID int64) (*time.Location, error) {
	rules, err := s.rules.GetByConsultantID(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}
	return s.engine.Zones().ForConsultant(rules), nil
}
