package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

type mockSender struct {
	mu     sync.Mutex
	sent   []*tgbot.SendMessageParams
	sendFn func() error
}

func (m *mockSender) SendMessage(_ context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendFn != nil {
		if err := m.sendFn(); err != nil {
			return nil, err
		}
	}
	m.sent = append(m.sent, params)
	return &tgmodels.Message{ID: len(m.sent)}, nil
}

func sampleRate() *models.DailyRate {
	return &models.DailyRate{
		Date: time.Date(2024, 12, 1, 0, 0, 0, 0, models.IST),
		Rates: map[models.Karat]decimal.Decimal{
			models.Karat24: decimal.RequireFromString("7805"),
			models.Karat22: decimal.RequireFromString("7155.5"),
			models.Karat18: decimal.RequireFromString("5854"),
		},
		Source: "https://www.goodreturns.in/gold-rates/?a=1&b=2",
	}
}

func TestTelegramNotifier_NotifyRates(t *testing.T) {
	t.Parallel()

	t.Run("sends HTML message to chat", func(t *testing.T) {
		t.Parallel()
		sender := &mockSender{}
		n := NewTelegramNotifierWithSender(sender, -100123)

		require.NoError(t, n.NotifyRates(context.Background(), sampleRate()))
		require.Len(t, sender.sent, 1)

		msg := sender.sent[0]
		require.Equal(t, int64(-100123), msg.ChatID)
		require.Equal(t, tgmodels.ParseModeHTML, msg.ParseMode)
		require.Contains(t, msg.Text, "Gold rates for 2024-12-01")
		require.Contains(t, msg.Text, "22K: <code>₹7155.50</code>")
		require.Contains(t, msg.Text, "9K: <i>n/a</i>")
		require.Contains(t, msg.Text, "a=1&amp;b=2")
	})

	t.Run("wraps send error", func(t *testing.T) {
		t.Parallel()
		sender := &mockSender{sendFn: func() error { return errors.New("forbidden") }}
		n := NewTelegramNotifierWithSender(sender, 1)

		err := n.NotifyRates(context.Background(), sampleRate())
		require.ErrorContains(t, err, "forbidden")
	})
}

func TestNewTelegramNotifier(t *testing.T) {
	t.Parallel()

	n, err := NewTelegramNotifier("123:abc", 1)
	require.NoError(t, err)
	require.NotNil(t, n)
}

func TestNoop(t *testing.T) {
	t.Parallel()
	require.NoError(t, Noop{}.NotifyRates(context.Background(), sampleRate()))
}
