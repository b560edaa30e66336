package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teamtasks/internal/apperr"
	"teamtasks/internal/models"
	"teamtasks/internal/repositories"
	"teamtasks/internal/utils"
)

const (
	linkCodeTTL   = 30 * time.Minute
	digestMaxRows = 10
)

// TelegramLinkCode is handed to the user to paste into the bot chat.
type TelegramLinkCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	DeepLink  string    `json:"deepLink,omitempty"`
}

// TelegramLinkService binds Telegram chats to accounts through one-time
// codes and answers the bot's incoming updates.
type TelegramLinkService interface {
	RequestCode(ctx context.Context, actor *models.User) (*TelegramLinkCode, error)
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type telegramLinkService struct {
	links   repositories.TelegramLinkRepository
	users   repositories.UserRepository
	tasks   repositories.TaskRepository
	chat    ChatNotifier
	botName string
	now     func() time.Time
}

// NewTelegramLinkService wires the link flow. chat may be nil, in which case
// replies are dropped; botName enables t.me deep links.
func NewTelegramLinkService(links repositories.TelegramLinkRepository, users repositories.UserRepository,
	tasks repositories.TaskRepository, chat ChatNotifier, botName string) TelegramLinkService {
	return &telegramLinkService{
		links:   links,
		users:   users,
		tasks:   tasks,
		chat:    chat,
		botName: botName,
		now:     time.Now,
	}
}

func (s *telegramLinkService) RequestCode(ctx context.Context, actor *models.User) (*TelegramLinkCode, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("token required")
	}
	code, err := utils.NewLinkCode()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	link, err := s.links.Create(ctx, actor.ID, code, s.now().Add(linkCodeTTL))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	out := &TelegramLinkCode{Code: link.Code, ExpiresAt: link.ExpiresAt}
	if s.botName != "" {
		out.DeepLink = fmt.Sprintf("https://t.me/%s?start=%s", s.botName, link.Code)
	}
	return out, nil
}

// splitCommand turns "/start@bot CODE" into ("start", "CODE").
func splitCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func (s *telegramLinkService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	cmd, args := splitCommand(msg.Text)

	switch {
	case (cmd == "start" || cmd == "link") && args != "":
		s.link(ctx, chatID, args)
	case cmd == "start":
		s.reply(chatID, "Hi! To receive task notifications here, open your profile, request a link code and send:\n<code>/link &lt;code&gt;</code>")
	default:
		s.reply(chatID, "Unknown command. Use <code>/link &lt;code&gt;</code> to connect your account.")
	}
}

func (s *telegramLinkService) link(ctx context.Context, chatID int64, raw string) {
	code, ok := utils.NormalizeLinkCode(raw)
	if !ok {
		s.reply(chatID, fmt.Sprintf("The code must be exactly %d hex characters.", utils.LinkCodeLen))
		return
	}
	l, err := s.links.Consume(ctx, code, s.now())
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Printf("[tg][link][err] consume: %v", err)
		}
		s.reply(chatID, "This code is invalid or has expired. Request a new one in your profile.")
		return
	}
	if err := s.users.SetTelegramChat(ctx, l.UserID, chatID); err != nil {
		log.Printf("[tg][link][err] user=%d chat=%d: %v", l.UserID, chatID, err)
		s.reply(chatID, "Could not link your account, please try again later.")
		return
	}
	log.Printf("[tg][link][ok] user=%d chat=%d", l.UserID, chatID)
	s.reply(chatID, "Done! Your account is linked and you will get a message for every new task.")
	s.sendDigest(ctx, chatID, l.UserID)
}

func (s *telegramLinkService) sendDigest(ctx context.Context, chatID, userID int64) {
	if s.tasks == nil {
		return
	}
	uid := userID
	tasks, err := s.tasks.FindAll(ctx, models.TaskFilter{AssignedTo: &uid})
	if err != nil {
		log.Printf("[tg][digest][err] user=%d: %v", userID, err)
		return
	}
	var open []models.Task
	for _, t := range tasks {
		if t.Status != models.StatusDone {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		s.reply(chatID, "You have no open tasks.")
		return
	}
	s.reply(chatID, formatDigest(open))
}

func formatDigest(open []models.Task) string {
	var b strings.Builder
	b.WriteString("📝 Your open tasks:\n")
	for i, t := range open {
		if i == digestMaxRows {
			fmt.Fprintf(&b, "…and %d more\n", len(open)-digestMaxRows)
			break
		}
		fmt.Fprintf(&b, "• %s (%s, %s) due %s\n",
			html.EscapeString(t.Title), t.Status, t.Priority, t.DueDate.Format("2006-01-02"))
	}
	return b.String()
}

func (s *telegramLinkService) reply(chatID int64, text string) {
	if s.chat == nil {
		return
	}
	if err := s.chat.SendMessage(chatID, text); err != nil {
		log.Printf("[tg][reply][err] chat=%d: %v", chatID, err)
	}
}
