package services

import (
	"fmt"
	"html"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teamtasks/internal/models"
)

// ChatNotifier mirrors assignment notices into a chat.
type ChatNotifier interface {
	SendMessage(chatID int64, text string) error
}

type TelegramService struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramService authenticates the bot (one getMe round trip).
func NewTelegramService(botToken string) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Printf("[tg] authorized as @%s", bot.Self.UserName)
	return &TelegramService{bot: bot}, nil
}

// Username is the bot's @handle without the @.
func (t *TelegramService) Username() string {
	if t == nil || t.bot == nil {
		return ""
	}
	return t.bot.Self.UserName
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || t.bot == nil || chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

func formatTaskForChat(task *models.Task) string {
	return "📌 New task assigned\n" +
		"• <b>" + html.EscapeString(task.Title) + "</b>\n" +
		"• Priority: <code>" + string(task.Priority) + "</code>\n" +
		"• Due: <code>" + task.DueDate.Format("2006-01-02 15:04") + "</code>"
}
