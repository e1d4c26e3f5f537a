// Package availability проверяет интервалы на соответствие еженедельным правилам
// консультанта и генерирует из правил кандидатов в слоты.
//
// Пакет не ходит в хранилище: правила передаются вызывающей стороной.
package availability

import (
	"iter"
	"slices"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/model"
)

// MaxRangeDays максимальная ширина диапазона генерации, включительно
const MaxRangeDays = 60

var (
	// ErrNoRules у консультанта нет ни одного правила (ошибка конфигурации)
	ErrNoRules = &apperr.Error{Kind: apperr.KindValidation, Code: "NO_AVAILABILITY_FOR_CONSULTANT"}
	// ErrSlotMismatch интервал не попадает ни в одно правило
	ErrSlotMismatch = &apperr.Error{Kind: apperr.KindValidation, Code: "NOT_IN_AVAILABILITY_OR_SLOT_MISMATCH"}
	// ErrInvalidInterval start >= end
	ErrInvalidInterval = &apperr.Error{Kind: apperr.KindValidation, Code: "INVALID_INTERVAL"}
	// ErrInvalidRange to < from или диапазон шире MaxRangeDays
	ErrInvalidRange = &apperr.Error{Kind: apperr.KindValidation, Code: "INVALID_RANGE"}
)

// Window конкретный интервал [Start, End)
type Window struct {
	Start time.Time `json:"start_at"`
	End   time.Time `json:"end_at"`
}

// Engine не хранит состояния между вызовами
type Engine struct {
	zones *Zones
}

func NewEngine(zones *Zones) *Engine {
	return &Engine{zones: zones}
}

// Zones резолвер зон, которым пользуется движок
func (e *Engine) Zones() *Zones {
	return e.zones
}

// Fits проверяет, что интервал ровно ложится в сетку правила
func (e *Engine) Fits(rule *model.AvailabilityRule, start, end time.Time) bool {
	if rule.SlotMinutes <= 0 || rule.StartTime >= rule.EndTime {
		return false
	}

	loc := e.zones.ForRule(rule)
	s := start.In(loc)
	en := end.In(loc)

	sy, sm, sd := s.Date()
	ey, em, ed := en.Date()
	if sy != ey || sm != em || sd != ed {
		return false
	}
	if model.ISOWeekday(s.Weekday()) != rule.Weekday {
		return false
	}

	ruleStart := atTimeOfDay(sy, sm, sd, rule.StartTime, loc)
	ruleEnd := atTimeOfDay(sy, sm, sd, rule.EndTime, loc)

	if s.Before(ruleStart) || en.After(ruleEnd) {
		return false
	}

	slot := time.Duration(rule.SlotMinutes) * time.Minute
	length := en.Sub(s)
	if length <= 0 || length%slot != 0 {
		return false
	}

	return s.Sub(ruleStart)%slot == 0 && en.Sub(ruleStart)%slot == 0
}

// Validate достаточно, чтобы интервал подошёл хотя бы к одному правилу
func (e *Engine) Validate(rules []*model.AvailabilityRule, start, end time.Time) error {
	if !start.Before(end) {
		return apperr.Validation(ErrInvalidInterval.Code, "start must be before end")
	}
	if len(rules) == 0 {
		return apperr.Validation(ErrNoRules.Code, "consultant has no availability rules")
	}
	for _, r := range rules {
		if e.Fits(r, start, end) {
			return nil
		}
	}
	return apperr.Validation(ErrSlotMismatch.Code, "interval does not match consultant availability")
}

// GenerateSlots возвращает конечную детерминированную последовательность окон
// для дней from..to включительно. Последовательность можно обходить повторно.
func (e *Engine) GenerateSlots(rules []*model.AvailabilityRule, from, to time.Time) (iter.Seq[Window], error) {
	fromDay := civilDay(from)
	toDay := civilDay(to)
	if toDay.Before(fromDay) {
		return nil, apperr.Validation(ErrInvalidRange.Code, "`to` must be the same or after `from`")
	}
	days := int(toDay.Sub(fromDay).Hours()/24) + 1
	if days > MaxRangeDays {
		return nil, apperr.Validation(ErrInvalidRange.Code, "date range is too wide (max %d days)", MaxRangeDays)
	}

	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b *model.AvailabilityRule) int {
		if a.StartTime != b.StartTime {
			return int(a.StartTime) - int(b.StartTime)
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	return func(yield func(Window) bool) {
		for i := 0; i < days; i++ {
			day := fromDay.AddDate(0, 0, i)
			weekday := model.ISOWeekday(day.Weekday())

			for _, rule := range ordered {
				if rule.Weekday != weekday || rule.SlotMinutes <= 0 {
					continue
				}
				loc := e.zones.ForRule(rule)
				slot := time.Duration(rule.SlotMinutes) * time.Minute

				y, m, d := day.Date()
				ruleStart := atTimeOfDay(y, m, d, rule.StartTime, loc)
				ruleEnd := atTimeOfDay(y, m, d, rule.EndTime, loc)

				for start := ruleStart; !start.Add(slot).After(ruleEnd); start = start.Add(slot) {
					if !yield(Window{Start: start, End: start.Add(slot)}) {
						return
					}
				}
			}
		}
	}, nil
}

func atTimeOfDay(y int, m time.Month, d int, tod model.TimeOfDay, loc *time.Location) time.Time {
	return time.Date(y, m, d, int(tod)/60, int(tod)%60, 0, 0, loc)
}

// civilDay отбрасывает время и зону, оставляя календарную дату
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
