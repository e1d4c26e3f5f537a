package model

import "time"

type UserRole string

const (
	UserRoleClient     UserRole = "CLIENT"
	UserRoleConsultant UserRole = "CONSULTANT"
	UserRoleAdmin      UserRole = "ADMIN"
)

// ConsultantTier уровень консультанта, определяет цену по умолчанию
type ConsultantTier string

const (
	TierJunior    ConsultantTier = "JUNIOR"
	TierSenior    ConsultantTier = "SENIOR"
	TierExecutive ConsultantTier = "EXECUTIVE"
)

type User struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`

	// Только для консультантов
	Tier      ConsultantTier `json:"tier,omitempty"`
	BasePrice *int64         `json:"base_price,omitempty"` // фиксированная цена, перекрывает цену уровня
	Company   *string        `json:"company,omitempty"`

	TelegramID *int64    `json:"telegram_id,omitempty"` // куда слать уведомления
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) IsConsultant() bool {
	return u != nil && u.Role == UserRoleConsultant
}
