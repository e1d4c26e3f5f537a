package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/model"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func mondayMorningRule() *model.AvailabilityRule {
	return &model.AvailabilityRule{
		ID:           1,
		ConsultantID: 10,
		Weekday:      1,
		StartTime:    9 * 60,
		EndTime:      12 * 60,
		SlotMinutes:  60,
		ZoneID:       "Asia/Seoul",
	}
}

func TestFits(t *testing.T) {
	loc := seoul(t)
	engine := NewEngine(NewZones("Asia/Seoul"))
	rule := mondayMorningRule()

	// 2026-10-19 понедельник
	at := func(h, m int) time.Time { return time.Date(2026, 10, 19, h, m, 0, 0, loc) }

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside grid", at(10, 0), at(11, 0), true},
		{"two slots", at(9, 0), at(11, 0), true},
		{"touches rule end", at(11, 0), at(12, 0), true},
		{"before rule start", at(8, 0), at(9, 0), false},
		{"past rule end", at(11, 0), at(13, 0), false},
		{"misaligned start", at(9, 30), at(10, 30), false},
		{"not a multiple", at(9, 0), at(9, 30), false},
		{"empty", at(10, 0), at(10, 0), false},
		{"wrong weekday", at(10, 0).AddDate(0, 0, 1), at(11, 0).AddDate(0, 0, 1), false},
		{"same instant in utc", at(10, 0).UTC(), at(11, 0).UTC(), true},
		{"crosses midnight", at(23, 0), at(23, 0).Add(2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Fits(rule, tt.start, tt.end))
		})
	}
}

func TestValidateDistinguishesNoRulesFromMismatch(t *testing.T) {
	loc := seoul(t)
	engine := NewEngine(NewZones("Asia/Seoul"))
	start := time.Date(2026, 10, 19, 8, 0, 0, 0, loc)

	err := engine.Validate(nil, start, start.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrNoRules))
	assert.False(t, errors.Is(err, ErrSlotMismatch))

	err = engine.Validate([]*model.AvailabilityRule{mondayMorningRule()}, start, start.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrSlotMismatch))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	err = engine.Validate([]*model.AvailabilityRule{mondayMorningRule()}, start.Add(2*time.Hour), start.Add(3*time.Hour))
	assert.NoError(t, err)

	err = engine.Validate([]*model.AvailabilityRule{mondayMorningRule()}, start, start)
	assert.True(t, errors.Is(err, ErrInvalidInterval))
}

func TestValidateAnyRuleIsEnough(t *testing.T) {
	loc := seoul(t)
	engine := NewEngine(NewZones("Asia/Seoul"))
	afternoon := &model.AvailabilityRule{ID: 2, Weekday: 1, StartTime: 14 * 60, EndTime: 18 * 60, SlotMinutes: 30}
	start := time.Date(2026, 10, 19, 14, 30, 0, 0, loc)

	err := engine.Validate([]*model.AvailabilityRule{mondayMorningRule(), afternoon}, start, start.Add(30*time.Minute))
	assert.NoError(t, err)
}

func TestRuleWithoutZoneUsesDefault(t *testing.T) {
	engine := NewEngine(NewZones("Asia/Seoul"))
	rule := mondayMorningRule()
	rule.ZoneID = ""

	// 10:00 KST = 01:00 UTC
	start := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)
	assert.True(t, engine.Fits(rule, start, start.Add(time.Hour)))

	rule.ZoneID = "Not/AZone"
	assert.True(t, engine.Fits(rule, start, start.Add(time.Hour)))
}

func TestGenerateSlots(t *testing.T) {
	loc := seoul(t)
	engine := NewEngine(NewZones("Asia/Seoul"))
	rules := []*model.AvailabilityRule{
		{ID: 5, Weekday: 1, StartTime: 14 * 60, EndTime: 15 * 60, SlotMinutes: 30, ZoneID: "Asia/Seoul"},
		mondayMorningRule(),
	}
	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)

	seq, err := engine.GenerateSlots(rules, from, to)
	require.NoError(t, err)

	var got []Window
	for w := range seq {
		got = append(got, w)
	}
	require.Len(t, got, 5)
	assert.True(t, time.Date(2026, 10, 19, 9, 0, 0, 0, loc).Equal(got[0].Start))
	assert.True(t, time.Date(2026, 10, 19, 11, 0, 0, 0, loc).Equal(got[2].Start))
	assert.True(t, time.Date(2026, 10, 19, 14, 30, 0, 0, loc).Equal(got[4].Start))

	for _, w := range got {
		assert.NoError(t, engine.Validate(rules, w.Start, w.End))
	}

	// повторный обход даёт ту же последовательность
	var again []Window
	for w := range seq {
		again = append(again, w)
	}
	assert.Equal(t, got, again)
}

func TestGenerateSlotsStopsEarly(t *testing.T) {
	engine := NewEngine(NewZones("Asia/Seoul"))
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	seq, err := engine.GenerateSlots([]*model.AvailabilityRule{mondayMorningRule()}, from, from.AddDate(0, 0, 59))
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		if n == 4 {
			break
		}
	}
	assert.Equal(t, 4, n)
}

func TestGenerateSlotsRejectsBadRanges(t *testing.T) {
	engine := NewEngine(NewZones("Asia/Seoul"))
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.GenerateSlots(nil, from, from.AddDate(0, 0, -1))
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = engine.GenerateSlots(nil, from, from.AddDate(0, 0, MaxRangeDays))
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = engine.GenerateSlots(nil, from, from.AddDate(0, 0, MaxRangeDays-1))
	assert.NoError(t, err)
}

func TestZonesForConsultantPicksFirstRule(t *testing.T) {
	zones := NewZones("Asia/Seoul")
	rules := []*model.AvailabilityRule{
		{ID: 9, ZoneID: "Europe/Berlin"},
		{ID: 3, ZoneID: "America/New_York"},
	}
	assert.Equal(t, "America/New_York", zones.ForConsultant(rules).String())
	assert.Equal(t, "Asia/Seoul", zones.ForConsultant(nil).String())
}
