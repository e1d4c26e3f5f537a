package model

import "time"

type AppointmentStatus string

const (
	AppointmentStatusRequested AppointmentStatus = "REQUESTED" // Холд, ожидает оплаты или одобрения
	AppointmentStatusApproved  AppointmentStatus = "APPROVED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusDone      AppointmentStatus = "DONE"
)

// BlockingAppointmentStatuses статусы, которые занимают интервал консультанта
var BlockingAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusRequested,
	AppointmentStatusApproved,
}

func (s AppointmentStatus) IsBlocking() bool {
	return s == AppointmentStatusRequested || s == AppointmentStatusApproved
}

func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusDone
}

// CanTransitionTo REQUESTED -> APPROVED -> DONE, из любого нетерминального -> CANCELLED
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case AppointmentStatusCancelled:
		return true
	case AppointmentStatusApproved:
		return s == AppointmentStatusRequested
	case AppointmentStatusDone:
		return s == AppointmentStatusApproved
	}
	return false
}

type Appointment struct {
	ID           int64             `json:"id"`
	ConsultantID int64             `json:"consultant_id"`
	ClientID     int64             `json:"client_id"`
	StartAt      time.Time         `json:"start_at"`
	EndAt        time.Time         `json:"end_at"`
	Status       AppointmentStatus `json:"status"`
	MeetingURL   *string           `json:"meeting_url"`
	Version      int64             `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Overlaps полуоткрытые интервалы [start, end)
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartAt.Before(end) && a.EndAt.After(start)
}

func (a *Appointment) View() *AppointmentView {
	return &AppointmentView{
		ID:           a.ID,
		ConsultantID: a.ConsultantID,
		ClientID:     a.ClientID,
		StartAt:      a.StartAt,
		EndAt:        a.EndAt,
		Status:       a.Status,
		MeetingURL:   a.MeetingURL,
	}
}

// AppointmentView то, что видят списки, отзывы и уведомления
type AppointmentView struct {
	ID           int64             `json:"id"`
	ConsultantID int64             `json:"consultant_id"`
	ClientID     int64             `json:"client_id"`
	StartAt      time.Time         `json:"start_at"`
	EndAt        time.Time         `json:"end_at"`
	Status       AppointmentStatus `json:"status"`
	MeetingURL   *string           `json:"meeting_url"`
}
