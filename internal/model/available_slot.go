package model

import "time"

// AvailableSlot опубликованный консультантом конкретный слот
type AvailableSlot struct {
	ID           int64     `json:"id"`
	ConsultantID int64     `json:"consultant_id"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	CreatedAt    time.Time `json:"created_at"`
}
