package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/infrastructure/config"
)

// Telegram 单条消息上限
const telegramMessageLimit = 4096

// TelegramSender 通过 Bot API 推送纯文本报告
type TelegramSender struct {
	cfg    config.TelegramNotifyConfig
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewTelegramSender 创建 Telegram 推送器，token 为空或无效时返回未配置的发送器
func NewTelegramSender(cfg config.TelegramNotifyConfig, logger *zap.Logger) *TelegramSender {
	s := &TelegramSender{cfg: cfg, logger: logger}
	if cfg.BotToken == "" {
		return s
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Warn("Telegram bot init failed, channel disabled", zap.Error(err))
		return s
	}
	s.bot = bot
	logger.Info("Telegram notify channel ready", zap.String("bot", bot.Self.UserName))
	return s
}

// Configured 检查推送所需的最小配置是否齐全
func (s *TelegramSender) Configured() bool {
	return s.bot != nil && len(s.cfg.ChatIDs) > 0
}

// Send 向全部配置的会话推送文本，超长时截断
func (s *TelegramSender) Send(text string) error {
	if !s.Configured() {
		return fmt.Errorf("telegram not configured")
	}

	runes := []rune(text)
	if len(runes) > telegramMessageLimit {
		text = string(runes[:telegramMessageLimit-3]) + "..."
	}

	var lastErr error
	for _, chatID := range s.cfg.ChatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := s.bot.Send(msg); err != nil {
			s.logger.Error("Telegram send failed",
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	return lastErr
}
