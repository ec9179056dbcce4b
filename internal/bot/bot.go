package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"opptick/internal/capture"
	"opptick/internal/model"
	"opptick/internal/repository"
	"opptick/internal/service"
)

// Recognizer extracts text from an image. OCR is an external collaborator;
// a nil Recognizer (or an empty result) yields a "no content" reply.
type Recognizer interface {
	Recognize(ctx context.Context, imageURL string) (string, error)
}

// Bot aggregates the Telegram API with the capture flow and services.
type Bot struct {
	api        *tgbotapi.BotAPI
	userRepo   *repository.UserRepository
	oppSvc     *service.OpportunityService
	summarySvc *service.SummaryService
	sessions   *capture.Sessions
	ocr        Recognizer
}

func New(api *tgbotapi.BotAPI, userRepo *repository.UserRepository, oppSvc *service.OpportunityService, summarySvc *service.SummaryService, ocr Recognizer, captureTTL time.Duration) *Bot {
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return &Bot{
		api:        api,
		userRepo:   userRepo,
		oppSvc:     oppSvc,
		summarySvc: summarySvc,
		sessions:   capture.NewSessions(captureTTL),
		ocr:        ocr,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	text := msg.Text
	if text == "" && msg.Caption != "" {
		text = msg.Caption
	}
	if len(msg.Photo) > 0 && text == "" {
		recognized, err := b.recognizePhoto(ctx, msg)
		if err != nil {
			log.Printf("ocr: %v", err)
		}
		text = recognized
		if strings.TrimSpace(text) == "" {
			return b.sendText(msg.Chat.ID, "❌ I couldn't find any text in this image. Send the opportunity details as text.")
		}
	}
	if strings.TrimSpace(text) == "" {
		return b.sendText(msg.Chat.ID, "Send me opportunity text (or forward a message) to track its deadline. /help for commands.")
	}

	// Mid-capture text advances the session. Several steps (deadline,
	// title, description) consume free text, so plain text cannot double
	// as a restart signal; only a forwarded message is unambiguously new
	// material and restarts capture from scratch.
	if sess, ok := b.sessions.Get(msg.From.ID); ok && msg.ForwardDate == 0 {
		return b.advanceCapture(ctx, msg.Chat.ID, msg.From.ID, sess, capture.Text(text))
	}

	return b.startCapture(ctx, msg, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "list":
		return b.handleList(ctx, msg)
	case "summary":
		return b.handleSummary(ctx, msg)
	case "archived":
		return b.handleArchived(ctx, msg)
	case "done":
		return b.handleLifecycle(ctx, msg, "done")
	case "archive":
		return b.handleLifecycle(ctx, msg, "archive")
	case "delete":
		return b.handleLifecycle(ctx, msg, "delete")
	case "timezone":
		return b.handleTimezone(ctx, msg)
	case "dailysummary":
		return b.handleDailySummaryToggle(ctx, msg)
	case "cancel":
		b.sessions.Delete(msg.From.ID)
		return b.sendText(msg.Chat.ID, "❌ Capture cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi %s! I track deadlines for opportunities — internships, scholarships, events.\n\n"+
			"<b>How to use:</b>\n"+
			"1. Forward or type an opportunity message\n"+
			"2. I'll walk you through deadline, type and priority\n"+
			"3. I'll remind you before and on the deadline day\n\n"+
			"Commands: /help",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /list — active opportunities with countdowns\n" +
		"• /summary — weekly overview\n" +
		"• /archived — archived opportunities\n" +
		"• /done &lt;id&gt; — mark done\n" +
		"• /archive &lt;id&gt; — archive without completing\n" +
		"• /delete &lt;id&gt; — delete\n" +
		"• /timezone &lt;±hours&gt; — UTC offset for reading dates\n" +
		"• /dailysummary on|off — toggle the evening digest\n" +
		"• /cancel — abort the current capture\n\n" +
		"Ids are the short codes shown in /list."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) error {
	user := msg.From.ID
	opps, err := b.oppSvc.ListActive(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't load opportunities: %s", escape(err.Error())))
	}
	if len(opps) == 0 {
		return b.sendText(msg.Chat.ID, "📭 No active opportunities yet. Forward me a message to get started!")
	}

	now := time.Now()
	var builder strings.Builder
	fmt.Fprintf(&builder, "📋 <b>Your opportunities (%d)</b>\n\n", len(opps))

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, opp := range opps {
		fmt.Fprintf(&builder, "%d. %s <b>%s</b> (%s)\n", i+1, priorityIcon(opp.Priority), escape(opp.Title), opp.Category)
		fmt.Fprintf(&builder, "   📅 %s · %s\n", opp.Deadline.Format("2006-01-02 15:04"), service.Countdown(opp.Deadline, now))
		fmt.Fprintf(&builder, "   ID: <code>%s</code>\n\n", shortID(opp.OppID))
		buttons = append(buttons, listRow(opp.OppID))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.summarySvc.WeeklySummary(ctx, msg.From.ID, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't build the summary: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleArchived(ctx context.Context, msg *tgbotapi.Message) error {
	opps, err := b.oppSvc.ListArchived(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Couldn't load archive: %s", escape(err.Error())))
	}
	if len(opps) == 0 {
		return b.sendText(msg.Chat.ID, "📭 No archived opportunities.")
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "📦 <b>Archived (%d)</b>\n\n", len(opps))
	for i, opp := range opps {
		status := ""
		if opp.Done {
			status = " ✅"
		}
		fmt.Fprintf(&builder, "%d. %s (%s)%s\n   Deadline was: %s\n\n",
			i+1, escape(opp.Title), opp.Category, status, opp.Deadline.Format("2006-01-02"))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

// handleLifecycle covers /done, /archive and /delete: resolve the id prefix,
// apply the change, confirm.
func (b *Bot) handleLifecycle(ctx context.Context, msg *tgbotapi.Message, action string) error {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Usage: /%s &lt;id&gt; — ids come from /list.", action))
	}

	user := msg.From.ID
	opp, err := b.oppSvc.Resolve(ctx, user, arg)
	if err != nil {
		if errors.Is(err, repository.ErrNotFoundOrUnauthorized) {
			return b.sendText(msg.Chat.ID, "❌ Opportunity not found. Check the id with /list.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	switch action {
	case "done":
		if _, err := b.oppSvc.MarkDone(ctx, user, opp.OppID); err != nil {
			return b.lifecycleError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ “%s” marked done. No more reminders.", escape(opp.Title)))
	case "archive":
		if err := b.oppSvc.Archive(ctx, user, opp.OppID); err != nil {
			return b.lifecycleError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("📦 “%s” archived.", escape(opp.Title)))
	case "delete":
		if err := b.oppSvc.Delete(ctx, user, opp.OppID); err != nil {
			return b.lifecycleError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 “%s” deleted.", escape(opp.Title)))
	}
	return nil
}

func (b *Bot) lifecycleError(chatID int64, err error) error {
	if errors.Is(err, repository.ErrNotFoundOrUnauthorized) {
		return b.sendText(chatID, "❌ Opportunity not found.")
	}
	return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
}

func (b *Bot) handleTimezone(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		pref, err := b.userRepo.Preference(ctx, msg.From.ID)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Your timezone offset is UTC%+d. Change it with /timezone &lt;±hours&gt;.", pref.TimezoneOffset))
	}
	hours, err := strconv.Atoi(arg)
	if err != nil || hours < -12 || hours > 14 {
		return b.sendText(msg.Chat.ID, "Offset must be a whole number of hours between -12 and +14, e.g. /timezone +3")
	}
	if err := b.userRepo.SetTimezoneOffset(ctx, msg.From.ID, hours); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🕐 Timezone set to UTC%+d. I'll read your dates in that offset.", hours))
}

func (b *Bot) handleDailySummaryToggle(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	switch arg {
	case "on", "off":
	default:
		return b.sendText(msg.Chat.ID, "Usage: /dailysummary on|off")
	}
	if err := b.userRepo.SetDailySummary(ctx, msg.From.ID, arg == "on"); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	if arg == "on" {
		return b.sendText(msg.Chat.ID, "📅 Daily summary enabled.")
	}
	return b.sendText(msg.Chat.ID, "📅 Daily summary disabled.")
}

// startCapture opens a fresh session, replacing any in flight (re-entry
// restarts from scratch by design).
func (b *Bot) startCapture(ctx context.Context, msg *tgbotapi.Message, text string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	pref, err := b.userRepo.Preference(ctx, user.TelegramID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	sess, reply := capture.Start(text, pref.Location(), time.Now())
	b.sessions.Put(msg.From.ID, sess)
	log.Printf("[info] capture started user=%d", msg.From.ID)
	return b.sendReply(msg.Chat.ID, reply)
}

func (b *Bot) advanceCapture(ctx context.Context, chatID, userID int64, sess *capture.Session, ev capture.Event) error {
	reply := sess.Advance(ev, time.Now())

	switch sess.Step {
	case capture.StepSaved:
		return b.finishCapture(ctx, chatID, userID, sess)
	case capture.StepCancelled:
		b.sessions.Delete(userID)
		return b.sendReply(chatID, reply)
	default:
		return b.sendReply(chatID, reply)
	}
}

func (b *Bot) finishCapture(ctx context.Context, chatID, userID int64, sess *capture.Session) error {
	opp, err := b.oppSvc.CreateFromDraft(ctx, userID, sess.Draft)
	if err != nil {
		// Keep the session so the user can retry the save instead of
		// restarting the whole capture.
		sess.Step = capture.StepConfirm
		log.Printf("save opportunity for %d: %v", userID, err)
		return b.sendReply(chatID, capture.Reply{
			Text:     "⚠️ Couldn't save right now. Try again?",
			Keyboard: capture.KeyboardConfirm,
		})
	}
	b.sessions.Delete(userID)
	log.Printf("[info] opportunity created id=%s user=%d priority=%s", opp.OppID, userID, opp.Priority)

	var builder strings.Builder
	builder.WriteString("✅ <b>Opportunity saved!</b>\n\n")
	fmt.Fprintf(&builder, "📌 %s\n", escape(opp.Title))
	fmt.Fprintf(&builder, "📂 Type: %s\n", opp.Category)
	fmt.Fprintf(&builder, "%s Priority: %s\n", priorityIcon(opp.Priority), opp.Priority)
	fmt.Fprintf(&builder, "📅 Deadline: %s\n", opp.Deadline.Format("2006-01-02 15:04"))
	fmt.Fprintf(&builder, "⏳ Time left: %s\n", service.Countdown(opp.Deadline, time.Now()))
	fmt.Fprintf(&builder, "ID: <code>%s</code>\n\n", shortID(opp.OppID))
	builder.WriteString(reminderNote(opp.Priority))
	return b.sendText(chatID, builder.String())
}

func reminderNote(p model.Priority) string {
	if p == model.PriorityHigh {
		return "🔔 I'll remind you 14, 7, 3, 2 and 1 day(s) ahead, and on the deadline day."
	}
	return "🔔 I'll remind you 7, 3 and 1 day(s) ahead, and on the deadline day."
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	user := cb.From.ID

	switch {
	case strings.HasPrefix(data, cbCapturePrefix):
		sess, ok := b.sessions.Get(user)
		if !ok {
			return b.sendText(chatID, "That capture timed out. Send the text again to restart.")
		}
		return b.advanceCapture(ctx, chatID, user, sess, capture.Button(strings.TrimPrefix(data, cbCapturePrefix)))
	case strings.HasPrefix(data, cbDonePrefix):
		oppID := strings.TrimPrefix(data, cbDonePrefix)
		opp, err := b.oppSvc.MarkDone(ctx, user, oppID)
		if err != nil {
			return b.lifecycleError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("✅ “%s” marked done. No more reminders.", escape(opp.Title)))
	case strings.HasPrefix(data, cbArchivePrefix):
		oppID := strings.TrimPrefix(data, cbArchivePrefix)
		if err := b.oppSvc.Archive(ctx, user, oppID); err != nil {
			return b.lifecycleError(chatID, err)
		}
		return b.sendText(chatID, "📦 Archived.")
	case strings.HasPrefix(data, cbDeletePrefix):
		oppID := strings.TrimPrefix(data, cbDeletePrefix)
		if err := b.oppSvc.Delete(ctx, user, oppID); err != nil {
			return b.lifecycleError(chatID, err)
		}
		return b.sendText(chatID, "🗑 Deleted.")
	case strings.HasPrefix(data, cbKeepPrefix):
		return b.sendText(chatID, "👍 Keeping it active.")
	default:
		return nil
	}
}

// SendDailySummaries pushes the evening digest to every opted-in user.
func (b *Bot) SendDailySummaries(ctx context.Context) error {
	prefs, err := b.userRepo.ListSummaryRecipients(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, pref := range prefs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.summarySvc.DailySummary(ctx, pref.UserID, now)
		if err != nil {
			log.Printf("build summary for %d: %v", pref.UserID, err)
			continue
		}
		if text == "" {
			continue
		}
		if err := b.sendText(pref.UserID, text); err != nil {
			log.Printf("send summary to %d: %v", pref.UserID, err)
		}
	}
	return nil
}

func (b *Bot) recognizePhoto(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	if b.ocr == nil {
		return "", nil
	}
	photo := msg.Photo[len(msg.Photo)-1] // largest size last
	url, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		return "", fmt.Errorf("resolve photo url: %w", err)
	}
	return b.ocr.Recognize(ctx, url)
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// sendReply renders a capture reply. Capture text embeds raw user input, so
// it goes out without a parse mode.
func (b *Bot) sendReply(chatID int64, reply capture.Reply) error {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if kb := captureKeyboard(reply.Keyboard); kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, err := b.api.Send(msg)
	return err
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func shortID(oppID string) string {
	if len(oppID) > 8 {
		return oppID[:8]
	}
	return oppID
}

func escape(s string) string {
	return html.EscapeString(s)
}
