package bot

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
	"duty-planner/internal/store"
)

// listEntry remembers what number n in the last shown list pointed at.
type listEntry struct {
	id        string
	title     string
	recurring bool
}

func taskEntry(item store.TaskItem) listEntry {
	return listEntry{id: item.Ref.ID(), title: item.Task.Title}
}

func recurringEntry(item store.RecurringItem) listEntry {
	return listEntry{id: item.Ref.ID(), title: item.Task.Title, recurring: true}
}

func renderToday(duties store.Duties, overdue int, completer *store.Completer) (string, []listEntry, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 <b>Today, %s</b>\n", duties.Day.Start().Format("02.01.2006")))

	if duties.Len() == 0 {
		sb.WriteString("\n🎉 Nothing left for today.")
		if overdue > 0 {
			sb.WriteString(fmt.Sprintf("\n⚠️ %d overdue, see /overdue.", overdue))
		}
		return sb.String(), nil, nil
	}

	entries := make([]listEntry, 0, duties.Len())
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, item := range duties.Tasks {
		entries = append(entries, taskEntry(item))
		n := len(entries)
		sb.WriteString(formatTaskLine(n, item, ""))
		if item.Ref.IsPending() {
			continue
		}
		icon := "✅"
		if completer != nil && completer.Pending(item.Ref.ID()) {
			icon = "⏳"
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d · %s", icon, n, shortTitle(item.Task.Title, 24)), cbTogglePrefix+item.Ref.ID()),
		))
	}
	for _, item := range duties.Recurring {
		entries = append(entries, recurringEntry(item))
		n := len(entries)
		sb.WriteString(formatRecurringLine(n, item, false))
		if item.Ref.IsPending() {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("♻️ %d · %s", n, shortTitle(item.Task.Title, 24)), cbRecurringPrefix+item.Ref.ID()),
		))
	}
	if overdue > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ %d overdue, see /overdue.", overdue))
	}

	text := strings.TrimSpace(sb.String())
	if len(buttons) == 0 {
		return text, entries, nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(buttons...)
	return text, entries, &markup
}

// formatTaskLine renders one numbered task. day is appended when not empty.
func formatTaskLine(n int, item store.TaskItem, day string) string {
	icon := "🟢"
	switch {
	case item.Ref.IsPending():
		icon = "⏳"
	case item.Task.Status == model.StatusCompleted:
		icon = "✅"
	case item.Task.IsArchived:
		icon = "📦"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d. %s %s", n, icon, escape(strings.TrimSpace(item.Task.Title))))
	if day != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", day))
	}
	if desc := strings.TrimSpace(item.Task.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", escape(desc)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatRecurringLine(n int, item store.RecurringItem, done bool) string {
	icon := "♻️"
	if done {
		icon = "✅"
	}
	return fmt.Sprintf("%d. %s %s\n", n, icon, escape(strings.TrimSpace(item.Task.Title)))
}

// splitDay separates a trailing YYYY-MM-DD from a title.
func splitDay(args string, zone calendar.Zone) (string, calendar.Day, bool) {
	args = strings.TrimSpace(args)
	if i := strings.LastIndex(args, " "); i >= 0 {
		if day, err := zone.ParseDay(args[i+1:]); err == nil {
			return strings.TrimSpace(args[:i]), day, true
		}
	}
	return args, calendar.Day{}, false
}

func shortTitle(title string, maxLen int) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripTags turns an HTML reply into plain text for callback answers.
func stripTags(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelOverdue),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelUpcoming),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}
