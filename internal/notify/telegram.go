package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/intervoice/internal/feedback"
	"github.com/user/intervoice/internal/types"
)

const maxTelegramMessage = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts feedback summaries to a single chat.
type Telegram struct {
	bot     sender
	chatID  int64
	baseURL string
}

// NewTelegram authenticates the bot. baseURL prefixes the feedback link and
// may be empty.
func NewTelegram(token string, chatID int64, baseURL string) (*Telegram, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Notify is a Handler.
func (t *Telegram) Notify(ctx context.Context, rec *types.FeedbackRecord) error {
	text := FormatFeedback(rec, t.baseURL+feedback.FeedbackPath(rec.InterviewID))
	for _, part := range splitMessage(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.bot.Send(msg); err != nil {
			slog.Debug("markdown send failed, retrying as plain text", "error", err)
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}

// FormatFeedback renders a record as a chat message.
func FormatFeedback(rec *types.FeedbackRecord, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Interview feedback ready* (%d/100)\n", rec.TotalScore)
	fmt.Fprintf(&b, "Interview: %s\nUser: %s\n\n", rec.InterviewID, rec.UserID)
	for _, c := range rec.CategoryScores {
		fmt.Fprintf(&b, "- %s: %d\n", c.Name, c.Score)
	}
	if len(rec.Strengths) > 0 {
		b.WriteString("\nStrengths:\n")
		for _, s := range rec.Strengths {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(rec.AreasForImprovement) > 0 {
		b.WriteString("\nAreas for improvement:\n")
		for _, s := range rec.AreasForImprovement {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if rec.FinalAssessment != "" {
		fmt.Fprintf(&b, "\n%s\n", rec.FinalAssessment)
	}
	if link != "" {
		fmt.Fprintf(&b, "\n%s", link)
	}
	return b.String()
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := min(maxTelegramMessage, len(text))
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
