package notify

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/events"
	"github.com/Freeeeeet/consult_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessages struct {
	params []*bot.SendMessageParams
}

func (s *sentMessages) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	s.params = append(s.params, p)
	return &models.Message{}, nil
}

type users map[int64]*model.User

func (u users) GetByID(_ context.Context, id int64) (*model.User, error) {
	return u[id], nil
}

func TestApprovedGoesToClientWithLink(t *testing.T) {
	chat := int64(555)
	sender := &sentMessages{}
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	n := NewTelegramNotifier(sender, users{
		2: {ID: 2, TelegramID: &chat},
	}, seoul, zap.NewNop())

	start := time.Date(2025, 3, 3, 1, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	err = n.Publish(context.Background(), events.Event{
		Key:          events.AppointmentApproved,
		ConsultantID: 1,
		ClientID:     2,
		StartAt:      &start,
		EndAt:        &end,
		MeetingURL:   "/Meeting?apt=9",
	})
	require.NoError(t, err)

	require.Len(t, sender.params, 1)
	assert.Equal(t, chat, sender.params[0].ChatID)
	assert.Contains(t, sender.params[0].Text, "03.03.2025 10:00-10:30")
	assert.Contains(t, sender.params[0].Text, "/Meeting?apt=9")
}

func TestRecipientWithoutTelegramIsSkipped(t *testing.T) {
	sender := &sentMessages{}
	n := NewTelegramNotifier(sender, users{1: {ID: 1}}, time.UTC, zap.NewNop())

	err := n.Publish(context.Background(), events.Event{Key: events.AppointmentRequested, ConsultantID: 1})
	require.NoError(t, err)
	assert.Empty(t, sender.params)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "50 000 ₩", FormatPrice(50000))
	assert.Equal(t, "800 ₩", FormatPrice(800))
	assert.Equal(t, "1 234 567 ₩", FormatPrice(1234567))
}
