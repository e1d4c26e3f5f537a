package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{AppointmentStatusRequested, AppointmentStatusApproved, true},
		{AppointmentStatusApproved, AppointmentStatusDone, true},
		{AppointmentStatusRequested, AppointmentStatusCancelled, true},
		{AppointmentStatusApproved, AppointmentStatusCancelled, true},
		{AppointmentStatusRequested, AppointmentStatusDone, false},
		{AppointmentStatusCancelled, AppointmentStatusApproved, false},
		{AppointmentStatusDone, AppointmentStatusCancelled, false},
		{AppointmentStatusApproved, AppointmentStatusRequested, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusFailed))
	assert.True(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusRefunded))
	assert.False(t, PaymentStatusRefunded.CanTransitionTo(PaymentStatusPaid))
	assert.False(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusPaid))
	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusPending))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	assert.NoError(t, err)
	assert.Equal(t, TimeOfDay(570), tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestAppointmentOverlapsIsHalfOpen(t *testing.T) {
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	a := &Appointment{StartAt: base, EndAt: base.Add(time.Hour)}

	assert.False(t, a.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)))
	assert.False(t, a.Overlaps(base.Add(-time.Hour), base))
	assert.True(t, a.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, a.Overlaps(base, base.Add(time.Hour)))
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, 7, ISOWeekday(time.Sunday))
	assert.Equal(t, 1, ISOWeekday(time.Monday))
}
