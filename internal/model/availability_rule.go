package model

import (
	"fmt"
	"time"
)

// TimeOfDay время суток в минутах от полуночи
type TimeOfDay int

// ParseTimeOfDay разбирает строку формата "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Duration смещение от полуночи
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

// AvailabilityRule еженедельное правило доступности консультанта
type AvailabilityRule struct {
	ID           int64     `json:"id"`
	ConsultantID int64     `json:"consultant_id"`
	Weekday      int       `json:"weekday"` // 1 = Monday ... 7 = Sunday
	StartTime    TimeOfDay `json:"start_time"`
	EndTime      TimeOfDay `json:"end_time"`
	SlotMinutes  int       `json:"slot_minutes"`
	ZoneID       string    `json:"zone_id"` // IANA, может быть пустым
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ISOWeekday переводит time.Weekday в 1..7, где воскресенье = 7
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}
