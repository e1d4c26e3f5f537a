// Package notify отправляет участникам уведомления о доменных событиях
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/events"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender то, что нужно от *bot.Bot
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserLookup поиск получателя
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramNotifier пишет клиенту или консультанту в Telegram.
// Пользователи без telegram_id пропускаются.
type TelegramNotifier struct {
	sender Sender
	users  UserLookup
	loc    *time.Location
	logger *zap.Logger
}

var _ events.Publisher = (*TelegramNotifier)(nil)

func NewTelegramNotifier(sender Sender, users UserLookup, loc *time.Location, logger *zap.Logger) *TelegramNotifier {
	if loc == nil {
		loc = time.Local
	}
	return &TelegramNotifier{sender: sender, users: users, loc: loc, logger: logger}
}

func (n *TelegramNotifier) Publish(ctx context.Context, e events.Event) error {
	recipient, text := n.render(e)
	if recipient == 0 || text == "" {
		return nil
	}

	user, err := n.users.GetByID(ctx, recipient)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if user == nil || user.TelegramID == nil {
		n.logger.Debug("Recipient has no telegram", zap.Int64("user_id", recipient), zap.String("event", e.Key))
		return nil
	}

	_, err = n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// render выбирает получателя и текст
func (n *TelegramNotifier) render(e events.Event) (int64, string) {
	when := ""
	if e.StartAt != nil && e.EndAt != nil {
		when = FormatTimeRange(e.StartAt.In(n.loc), e.EndAt.In(n.loc))
	}

	switch e.Key {
	case events.AppointmentRequested:
		return e.ConsultantID, fmt.Sprintf("🆕 Новая заявка на консультацию\n📅 %s", when)
	case events.AppointmentRescheduled:
		return e.ConsultantID, fmt.Sprintf("🔄 Консультация перенесена\n📅 %s", when)
	case events.AppointmentApproved:
		var sb strings.Builder
		fmt.Fprintf(&sb, "✅ Консультация подтверждена\n📅 %s", when)
		if e.MeetingURL != "" {
			fmt.Fprintf(&sb, "\n🔗 %s", e.MeetingURL)
		}
		return e.ClientID, sb.String()
	case events.AppointmentExpired:
		return e.ClientID, fmt.Sprintf("⌛ Бронь не была оплачена и снята\n📅 %s", when)
	case events.PaymentPaid:
		return e.ClientID, fmt.Sprintf("💳 Оплата получена: %s", FormatPrice(e.Amount))
	case events.PaymentFailed:
		return e.ClientID, "❌ Оплата не прошла"
	case events.PaymentRefunded:
		return e.ClientID, fmt.Sprintf("↩️ Оформлен возврат: %s", FormatPrice(e.Amount))
	}
	return 0, ""
}
