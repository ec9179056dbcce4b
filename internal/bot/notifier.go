package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"opptick/internal/model"
	"opptick/internal/service"
)

// Notifier delivers reminder and missed-deadline notifications over the
// Telegram API. It satisfies scheduler.Notifier and service.MissedNotifier.
type Notifier struct {
	api *tgbotapi.BotAPI
}

func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

// NotifyReminder sends one reminder with a mark-done button. One attempt;
// the caller logs failures.
func (n *Notifier) NotifyReminder(ctx context.Context, opp model.Opportunity, offsetDays int) error {
	now := time.Now()

	var b strings.Builder
	if offsetDays == 0 {
		b.WriteString("🔔 <b>Deadline today!</b>\n\n")
	} else {
		b.WriteString("⏰ <b>Reminder</b>\n\n")
	}
	fmt.Fprintf(&b, "📌 %s (%s)\n", html.EscapeString(opp.Title), opp.Category)
	fmt.Fprintf(&b, "📅 Deadline: %s\n", opp.Deadline.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "⏳ Time left: %s\n", service.Countdown(opp.Deadline, now))
	if opp.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n", html.EscapeString(excerpt(opp.Description, 150)))
	}
	if opp.SourceLink != "" {
		fmt.Fprintf(&b, "🔗 %s\n", html.EscapeString(opp.SourceLink))
	}

	msg := tgbotapi.NewMessage(opp.UserID, strings.TrimSpace(b.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = doneKeyboard(opp.OppID)
	_, err := n.api.Send(msg)
	return err
}

// NotifyMissed sends the one-time missed-deadline alert.
func (n *Notifier) NotifyMissed(ctx context.Context, opp model.Opportunity) error {
	var b strings.Builder
	b.WriteString("⚠️ <b>Missed deadline</b>\n\n")
	fmt.Fprintf(&b, "📌 %s (%s)\n", html.EscapeString(opp.Title), opp.Category)
	fmt.Fprintf(&b, "📅 Deadline was: %s\n\n", opp.Deadline.Format("2006-01-02 15:04"))
	b.WriteString("Mark it done, archive it, or keep it active.")

	msg := tgbotapi.NewMessage(opp.UserID, b.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = missedKeyboard(opp.OppID)
	_, err := n.api.Send(msg)
	return err
}

func excerpt(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
