package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"opptick/internal/capture"
	"opptick/internal/model"
)

// Callback data prefixes. cap* tags feed the capture machine; the rest act
// on saved opportunities.
const (
	cbCapturePrefix = "cap:"
	cbDonePrefix    = "done:"
	cbArchivePrefix = "archive:"
	cbDeletePrefix  = "del:"
	cbKeepPrefix    = "keep:"
)

func captureButton(action, label string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, cbCapturePrefix+action)
}

// captureKeyboard maps the machine's transport-neutral keyboard kinds onto
// Telegram inline keyboards.
func captureKeyboard(k capture.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	cancelRow := tgbotapi.NewInlineKeyboardRow(captureButton(capture.ActionCancel, "↩️ Cancel"))

	var rows [][]tgbotapi.InlineKeyboardButton
	switch k {
	case capture.KeyboardYesNo:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			captureButton(capture.ActionYes, "✅ Yes"),
			captureButton(capture.ActionNo, "❌ No"),
		))
	case capture.KeyboardCategories:
		var row []tgbotapi.InlineKeyboardButton
		for _, c := range model.Categories() {
			row = append(row, captureButton(capture.TypePrefix+string(c), string(c)))
			if len(row) == 2 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	case capture.KeyboardPriorities:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			captureButton(capture.PrioPrefix+string(model.PriorityHigh), "🔴 High"),
			captureButton(capture.PrioPrefix+string(model.PriorityMedium), "🟡 Medium"),
			captureButton(capture.PrioPrefix+string(model.PriorityLow), "🟢 Low"),
		))
	case capture.KeyboardSkip:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			captureButton(capture.ActionYes, "✅ Keep"),
			captureButton(capture.ActionSkip, "⏭️ Skip"),
		))
	case capture.KeyboardConfirm:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			captureButton(capture.ActionYes, "💾 Save"),
			captureButton(capture.ActionNo, "🗑 Discard"),
		))
	default:
		return nil
	}
	rows = append(rows, cancelRow)
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func doneKeyboard(oppID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Mark done", cbDonePrefix+oppID),
		),
	)
}

func missedKeyboard(oppID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Mark done", cbDonePrefix+oppID),
			tgbotapi.NewInlineKeyboardButtonData("📦 Archive", cbArchivePrefix+oppID),
			tgbotapi.NewInlineKeyboardButtonData("Keep", cbKeepPrefix+oppID),
		),
	)
}

func listRow(oppID string) []tgbotapi.InlineKeyboardButton {
	short := oppID
	if len(short) > 8 {
		short = short[:8]
	}
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ "+short, cbDonePrefix+oppID),
		tgbotapi.NewInlineKeyboardButtonData("📦", cbArchivePrefix+oppID),
		tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+oppID),
	)
}
