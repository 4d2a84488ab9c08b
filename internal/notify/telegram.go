package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nyurban_tracker/internal/logging"
	"nyurban_tracker/internal/metrics"
	"nyurban_tracker/internal/model"
)

// maxMessageLen is Telegram's limit for a single text message.
const maxMessageLen = 4096

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts newly available slots to a fixed set of chats. The bot
// client is created on first use, so an unreachable API only fails Notify.
type Telegram struct {
	token   string
	newAPI  func(token string) (telegramAPI, error)
	chatIDs []int64
	bookURL string
	log     *slog.Logger

	mu  sync.Mutex
	api telegramAPI
}

// NewTelegram creates a Telegram notifier for the given bot token.
func NewTelegram(token string, chatIDs []int64, bookURL string, log *slog.Logger) *Telegram {
	return &Telegram{
		token:   token,
		newAPI:  newBotAPI,
		chatIDs: chatIDs,
		bookURL: bookURL,
		log:     log,
	}
}

func newBotAPI(token string) (telegramAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return api, nil
}

// client returns the bot client, creating it if needed. A failed attempt
// is retried on the next call.
func (t *Telegram) client() (telegramAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.api != nil {
		return t.api, nil
	}
	api, err := t.newAPI(t.token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	t.api = api
	return api, nil
}

// Notify sends one message to every chat. A failed chat does not stop the
// others.
func (t *Telegram) Notify(ctx context.Context, slots []model.Slot) error {
	if len(slots) == 0 || len(t.chatIDs) == 0 {
		return nil
	}
	log := logging.FromContext(ctx, t.log)

	api, err := t.client()
	if err != nil {
		metrics.ObserveNotification("telegram", err)
		return err
	}

	text := FormatChat(slots, t.bookURL)
	sent := 0
	for _, chatID := range t.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		_, err := api.Send(msg)
		metrics.ObserveNotification("telegram", err)
		if err != nil {
			log.Error("send message", "chat_id", chatID, "error", err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return errors.New("telegram: no chat received the notification")
	}
	log.Info("telegram notification sent", "sent", sent, "chats", len(t.chatIDs))
	return nil
}

// FormatChat formats slots as a compact chat message, one line per slot.
func FormatChat(slots []model.Slot, bookURL string) string {
	var b strings.Builder
	b.WriteString(Subject(len(slots)))
	b.WriteString("\n")
	for _, s := range slots {
		b.WriteString("\n")
		if s.Location != "" {
			fmt.Fprintf(&b, "[%s] ", s.Location)
		}
		fmt.Fprintf(&b, "%s, %s, %s, %s (%s) %s", s.Date, s.Time, s.Gym, s.Level, s.Fee, s.Available)
	}
	if bookURL != "" {
		fmt.Fprintf(&b, "\n\n%s", bookURL)
	}
	return truncate(b.String(), maxMessageLen)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
