package availability

import (
	"time"

	"github.com/Freeeeeet/consult_booking/internal/model"
)

// Zones определяет, в какой зоне интерпретировать правила.
//
// Порядок один для всех путей чтения и записи:
// зона правила -> зона по умолчанию из конфига -> time.Local.
type Zones struct {
	fallback *time.Location
}

// NewZones принимает имя зоны по умолчанию; пустое или неизвестное имя означает time.Local
func NewZones(defaultZone string) *Zones {
	z := &Zones{fallback: time.Local}
	if defaultZone != "" {
		if loc, err := time.LoadLocation(defaultZone); err == nil {
			z.fallback = loc
		}
	}
	return z
}

// Default зона по умолчанию
func (z *Zones) Default() *time.Location {
	return z.fallback
}

// ForRule зона конкретного правила
func (z *Zones) ForRule(rule *model.AvailabilityRule) *time.Location {
	if rule != nil && rule.ZoneID != "" {
		if loc, err := time.LoadLocation(rule.ZoneID); err == nil {
			return loc
		}
	}
	return z.fallback
}

// ForConsultant зона консультанта: зона первого по id правила
func (z *Zones) ForConsultant(rules []*model.AvailabilityRule) *time.Location {
	var first *model.AvailabilityRule
	for _, r := range rules {
		if first == nil || r.ID < first.ID {
			first = r
		}
	}
	return z.ForRule(first)
}
