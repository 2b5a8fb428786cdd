package notify

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lunefort/tuneid/src/features/config"
)

// TelegramSink forwards resolution notifications to a Telegram chat.
// Send failures are logged and dropped; a sink must never block or fail
// the resolution that emitted the message.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink creates a sink for the configured bot and chat.
func NewTelegramSink(cfg *config.Manager) (*TelegramSink, error) {
	tg := cfg.Get().Telegram
	bot, err := tgbotapi.NewBotAPI(tg.Token)
	if err != nil {
		return nil, err
	}
	slog.Info("Telegram sink authorized", "account", bot.Self.UserName)
	return &TelegramSink{bot: bot, chatID: tg.ChatID}, nil
}

func (s *TelegramSink) Info(msg string)    { s.send("ℹ️ " + msg) }
func (s *TelegramSink) Warning(msg string) { s.send("⚠️ " + msg) }
func (s *TelegramSink) Error(msg string)   { s.send("❌ " + msg) }

func (s *TelegramSink) send(text string) {
	msg := tgbotapi.NewMessage(s.chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		slog.Debug("Telegram notification failed", "error", err)
	}
}
