package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
	"duty-planner/internal/service"
	"duty-planner/internal/store"
)

type itemAction int

const (
	actionDone itemAction = iota
	actionDelete
	actionArchive
	actionToToday
	actionToRecurring
	actionToTask
)

func (a itemAction) verb() string {
	switch a {
	case actionDone:
		return "toggle completion"
	case actionDelete:
		return "delete"
	case actionArchive:
		return "archive"
	case actionToToday:
		return "move to today"
	case actionToRecurring:
		return "make recurring"
	case actionToTask:
		return "make a one-off task"
	}
	return "update"
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.ensureProfile(ctx, msg.From)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep your daily duties in order.</b>\n\n"+
			"• /today — what is left for today\n"+
			"• /add &lt;title&gt; — plan a task\n"+
			"• /recurring &lt;title&gt; — add a daily duty\n"+
			"• /help — all commands",
		escape(profile.DisplayName()),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /today — today's tasks and open recurring duties\n" +
		"• /overdue — waiting tasks from earlier days\n" +
		"• /upcoming — every task grouped by date\n" +
		"• /add &lt;title&gt; [YYYY-MM-DD] — add a task, today by default\n" +
		"• /recurring [title] — list or add recurring duties\n" +
		"• /done &lt;n&gt; — complete or reopen item n of the last list\n" +
		"• /delete &lt;n&gt;, /archive &lt;n&gt;, /totoday &lt;n&gt;\n" +
		"• /torecurring &lt;n&gt;, /totask &lt;n&gt; — convert between kinds\n" +
		"• /report — daily summary\n" +
		"• /inbox [clear] — notifications\n" +
		"• /broadcast &lt;title&gt; | &lt;message&gt; — admins only"
	return b.sendText(msg.Chat.ID, text)
}

// open returns the sender's profile and loaded store.
func (b *Bot) open(ctx context.Context, from *tgbotapi.User) (*model.Profile, *store.Store, error) {
	profile, err := b.ensureProfile(ctx, from)
	if err != nil {
		return nil, nil, err
	}
	st, err := b.tasks.Open(ctx, *profile)
	if err != nil {
		return nil, nil, err
	}
	return profile, st, nil
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	profile, st, err := b.open(ctx, msg.From)
	if err != nil {
		return b.sendError(msg.Chat.ID, "load tasks", err)
	}
	text, entries, markup := renderToday(st.Today(), st.OverdueCount(), b.tasks.Completer(*profile))
	b.setList(msg.From.ID, entries)
	if markup == nil {
		return b.sendText(msg.Chat.ID, text)
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, text, *markup)
}

func (b *Bot) handleOverdue(ctx context.Context, msg *tgbotapi.Message) error {
	_, st, err := b.open(ctx, msg.From)
	if err != nil {
		return b.sendError(msg.Chat.ID, "load tasks", err)
	}
	items := st.Overdue()
	if len(items) == 0 {
		b.setList(msg.From.ID, nil)
		return b.sendText(msg.Chat.ID, "🎉 Nothing overdue.")
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚠️ <b>Overdue (%d)</b>\n", len(items)))
	entries := make([]listEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, taskEntry(item))
		sb.WriteString(formatTaskLine(len(entries), item, st.Zone().DayOf(item.Task.CreatedAt).String()))
	}
	sb.WriteString("\nUse /totoday &lt;n&gt; to take one into today.")
	b.setList(msg.From.ID, entries)
	return b.sendText(msg.Chat.ID, sb.String())
}

func (b *Bot) handleUpcoming(ctx context.Context, msg *tgbotapi.Message) error {
	_, st, err := b.open(ctx, msg.From)
	if err != nil {
		return b.sendError(msg.Chat.ID, "load tasks", err)
	}
	agenda := st.Upcoming()
	if len(agenda) == 0 {
		b.setList(msg.From.ID, nil)
		return b.sendText(msg.Chat.ID, "No tasks yet. Add one with /add.")
	}
	var sb strings.Builder
	sb.WriteString("🗂 <b>All tasks</b>\n")
	var entries []listEntry
	for _, day := range agenda {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>\n", day.Day.Start().Format("Mon, 02 Jan 2006")))
		for _, item := range day.Tasks {
			entries = append(entries, taskEntry(item))
			sb.WriteString(formatTaskLine(len(entries), item, ""))
		}
	}
	b.setList(msg.From.ID, entries)
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	_, st, err := b.open(ctx, msg.From)
	if err != nil {
		return b.sendError(msg.Chat.ID, "add task", err)
	}
	title, day, ok := splitDay(msg.CommandArguments(), st.Zone())
	if title == "" {
		return b.sendText(msg.Chat.ID, "Usage: /add &lt;title&gt; [YYYY-MM-DD]")
	}
	in := store.NewTask{Title: title}
	if ok {
		in.CreatedAt = day.Noon()
	}
	task, err := st.Add(ctx, in)
	if err != nil {
		return b.sendError(msg.Chat.ID, "add task", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("➕ Added <b>%s</b> for %s.", escape(task.Title), st.Zone().DayOf(task.CreatedAt)))
}

func (b *Bot) handleRecurring(ctx context.Context, msg *tgbotapi.Message) error {
	_, st, err := b.open(ctx, msg.From)
	if err != nil {
		return b.sendError(msg.Chat.ID, "load recurring tasks", err)
	}
	title := strings.TrimSpace(msg.CommandArguments())
	if title != "" {
		task, err := st.AddRecurring(ctx, title)
		if err != nil {
			return b.sendError(msg.Chat.ID, "add recurring task", err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("♻️ <b>%s</b> will come back every day.", escape(task.Title)))
	}

	items := st.Recurring()
	if len(items) == 0 {
		b.setList(msg.From.ID, nil)
		return b.sendText(msg.Chat.ID, "No recurring duties. Add one with /recurring &lt;title&gt;.")
	}
	today := st.Zone().Today(st.Clock().Now())
	var sb strings.Builder
	sb.WriteString("♻️ <b>Recurring duties</b>\n")
	entries := make([]listEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, recurringEntry(item))
		sb.WriteString(formatRecurringLine(len(entries), item, store.DoneOn(item.Task, today)))
	}
	b.setList(msg.From.ID, entries)
	return b.sendText(msg.Chat.ID, sb.String())
}

func (b *Bot) handleItemAction(ctx context.Context, msg *tgbotapi.Message, action itemAction) error {
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Usage: /%s &lt;n&gt; with a number from the last list.", msg.Command()))
	}
	entry, ok := b.listEntry(msg.From.ID, n)
	if !ok {
		return b.sendText(msg.Chat.ID, "Show a list first (/today, /overdue, /upcoming, /recurring) and use its numbers.")
	}
	_, st, err := b.open(ctx, msg.From)
	if err != nil {
		return b.sendError(msg.Chat.ID, action.verb(), err)
	}

	reply, err := b.apply(ctx, st, entry, action)
	if err != nil {
		return b.sendError(msg.Chat.ID, action.verb(), err)
	}
	return b.sendText(msg.Chat.ID, reply)
}

func (b *Bot) apply(ctx context.Context, st *store.Store, entry listEntry, action itemAction) (string, error) {
	title := escape(entry.title)
	if entry.recurring {
		switch action {
		case actionDone:
			item, ok := st.RecurringTask(entry.id)
			if !ok {
				return "", store.ErrNotFound
			}
			done := !store.DoneOn(item.Task, st.Zone().Today(st.Clock().Now()))
			if err := st.CompleteRecurring(ctx, entry.id, done); err != nil {
				return "", err
			}
			if done {
				return fmt.Sprintf("✅ <b>%s</b> done for today.", title), nil
			}
			return fmt.Sprintf("↩️ <b>%s</b> is open again.", title), nil
		case actionDelete:
			if err := st.DeleteRecurring(ctx, entry.id); err != nil {
				return "", err
			}
			return fmt.Sprintf("🗑 Deleted <b>%s</b>.", title), nil
		case actionToTask:
			task, err := st.ConvertRecurringToTask(ctx, entry.id)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("📌 <b>%s</b> is now a task for %s.", escape(task.Title), st.Zone().DayOf(task.CreatedAt)), nil
		}
		return "", errors.New("not available for recurring duties")
	}

	switch action {
	case actionDone:
		item, ok := st.Task(entry.id)
		if !ok {
			return "", store.ErrNotFound
		}
		status := model.StatusCompleted
		if item.Task.Status == model.StatusCompleted {
			status = model.StatusWaiting
		}
		if err := st.UpdateStatus(ctx, entry.id, status); err != nil {
			return "", err
		}
		if status == model.StatusCompleted {
			return fmt.Sprintf("✅ <b>%s</b> completed.", title), nil
		}
		return fmt.Sprintf("↩️ <b>%s</b> reopened.", title), nil
	case actionDelete:
		if err := st.Delete(ctx, entry.id); err != nil {
			return "", err
		}
		return fmt.Sprintf("🗑 Deleted <b>%s</b>.", title), nil
	case actionArchive:
		if err := st.Archive(ctx, entry.id); err != nil {
			return "", err
		}
		return fmt.Sprintf("📦 Archived <b>%s</b>.", title), nil
	case actionToToday:
		if err := st.MoveToToday(ctx, entry.id); err != nil {
			return "", err
		}
		return fmt.Sprintf("📅 <b>%s</b> moved to today.", title), nil
	case actionToRecurring:
		if _, err := st.ConvertTaskToRecurring(ctx, entry.id); err != nil {
			return "", err
		}
		return fmt.Sprintf("♻️ <b>%s</b> is now a daily duty.", title), nil
	}
	return "", errors.New("not available for tasks")
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.ensureProfile(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminders.Report(ctx, *profile)
	if err != nil {
		return b.sendError(msg.Chat.ID, "build the report", err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleInbox(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.ensureProfile(ctx, msg.From)
	if err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(msg.CommandArguments()), "clear") {
		if err := b.notifications.ClearInbox(ctx, profile.ID); err != nil {
			return b.sendError(msg.Chat.ID, "clear the inbox", err)
		}
		return b.sendText(msg.Chat.ID, "📭 Inbox cleared.")
	}

	items, err := b.notifications.Inbox(ctx, profile.ID)
	if err != nil {
		return b.sendError(msg.Chat.ID, "load the inbox", err)
	}
	if len(items) == 0 {
		return b.sendText(msg.Chat.ID, "📭 No notifications.")
	}
	var sb strings.Builder
	sb.WriteString("📬 <b>Notifications</b>\n")
	for _, item := range items {
		marker := "🔵"
		if item.Seen {
			marker = "⚪️"
		}
		sb.WriteString(fmt.Sprintf("\n%s <b>%s</b>", marker, escape(item.Title)))
		if item.Message != "" {
			sb.WriteString("\n" + escape(item.Message))
		}
		sb.WriteByte('\n')
		if !item.Seen {
			if err := b.notifications.MarkSeen(ctx, profile.ID, item.ID); err != nil {
				log.WithError(err).WithField("notification", item.ID).Warn("mark seen")
			}
		}
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.ensureProfile(ctx, msg.From)
	if err != nil {
		return err
	}
	title, message, _ := strings.Cut(msg.CommandArguments(), "|")
	if strings.TrimSpace(title) == "" {
		return b.sendText(msg.Chat.ID, "Usage: /broadcast &lt;title&gt; | &lt;message&gt;")
	}
	if _, err := b.notifications.Broadcast(ctx, *profile, title, message); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return b.sendText(msg.Chat.ID, "⛔️ Only administrators can broadcast.")
		}
		return b.sendError(msg.Chat.ID, "broadcast", err)
	}
	return b.sendText(msg.Chat.ID, "📣 Broadcast sent.")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		profile, err := b.ensureProfile(ctx, cb.From)
		if err != nil {
			b.answer(cb, "")
			return err
		}
		if _, err := b.tasks.Open(ctx, *profile); err != nil {
			b.answer(cb, "")
			return b.sendError(cb.Message.Chat.ID, "load tasks", err)
		}
		res, err := b.tasks.Completer(*profile).Toggle(ctx, strings.TrimPrefix(data, cbTogglePrefix))
		if err != nil {
			b.answer(cb, userMessage(err))
			return nil
		}
		b.answer(cb, toggleText(res))
		return nil
	case strings.HasPrefix(data, cbRecurringPrefix):
		_, st, err := b.open(ctx, cb.From)
		if err != nil {
			b.answer(cb, "")
			return b.sendError(cb.Message.Chat.ID, "load tasks", err)
		}
		id := strings.TrimPrefix(data, cbRecurringPrefix)
		item, ok := st.RecurringTask(id)
		if !ok {
			b.answer(cb, userMessage(store.ErrNotFound))
			return nil
		}
		reply, err := b.apply(ctx, st, recurringEntry(item), actionDone)
		if err != nil {
			b.answer(cb, userMessage(err))
			return nil
		}
		b.answer(cb, stripTags(reply))
		return nil
	default:
		b.answer(cb, "")
		return nil
	}
}

func toggleText(res store.ToggleResult) string {
	switch res {
	case store.Scheduled:
		return "✅ Completing… tap again to undo"
	case store.Cancelled:
		return "↩️ Completion cancelled"
	case store.Reopened:
		return "↩️ Task reopened"
	}
	return ""
}

// userMessage turns store and service errors into text for the chat.
func userMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrPending):
		return "still saving, try again in a moment"
	case errors.Is(err, store.ErrNotFound):
		return "that item no longer exists"
	case errors.Is(err, store.ErrEmptyTitle):
		return "the title is empty"
	case errors.Is(err, service.ErrForbidden):
		return "not allowed"
	}
	return err.Error()
}
