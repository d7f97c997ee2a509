// Package notify sends the daily gold rate snapshot to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

// Notifier is told about each stored snapshot.
type Notifier interface {
	NotifyRates(ctx context.Context, rate *models.DailyRate) error
}

// MessageSender is the subset of the Telegram API used for notifications.
type MessageSender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error)
}

var _ MessageSender = (*tgbot.Bot)(nil)

// TelegramNotifier posts rate snapshots to one chat.
type TelegramNotifier struct {
	sender MessageSender
	chatID int64
}

// NewTelegramNotifier creates a notifier backed by the Telegram Bot API.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	b, err := tgbot.New(token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewTelegramNotifierWithSender(b, chatID), nil
}

// NewTelegramNotifierWithSender creates a notifier with a custom sender.
func NewTelegramNotifierWithSender(sender MessageSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID}
}

// NotifyRates sends the snapshot as an HTML message.
func (n *TelegramNotifier) NotifyRates(ctx context.Context, rate *models.DailyRate) error {
	_, err := n.sender.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      FormatRates(rate),
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send rate notification: %w", err)
	}
	logger.Log.Debug().Str("chat_hash", logger.HashChatID(n.chatID)).Str("date", rate.DateKey()).Msg("Sent gold rate notification")
	return nil
}

// FormatRates renders the snapshot as Telegram HTML.
func FormatRates(rate *models.DailyRate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Gold rates for %s</b> (INR/g)\n\n", rate.DateKey())
	for _, k := range models.Karats {
		v, ok := rate.Rate(k)
		if !ok {
			fmt.Fprintf(&sb, "%s: <i>n/a</i>\n", k.Label())
			continue
		}
		fmt.Fprintf(&sb, "%s: <code>₹%s</code>\n", k.Label(), v.StringFixed(2))
	}
	fmt.Fprintf(&sb, "\nSource: %s", html.EscapeString(rate.Source))
	return sb.String()
}

// Noop discards notifications.
type Noop struct{}

// NotifyRates implements Notifier.
func (Noop) NotifyRates(context.Context, *models.DailyRate) error { return nil }
