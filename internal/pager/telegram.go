package pager

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSink posts a page to a Telegram chat. Grounded on the teacher's notifyTg
// (td2/alert.go), a supplemental channel beyond what spec.md names explicitly.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink dials the bot API with token and targets chatID.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("dialing telegram bot api: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

// Notify sends text to the configured chat. ctx is accepted for Sink-interface symmetry; the
// underlying bot API call does not take one.
func (s *TelegramSink) Notify(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(s.chatID, text)
	_, err := s.bot.Send(msg)
	return err
}
