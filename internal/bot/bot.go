package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
	"duty-planner/internal/repository"
	"duty-planner/internal/service"
)

const (
	cbTogglePrefix    = "toggle:"
	cbRecurringPrefix = "rdone:"
)

const (
	menuLabelToday    = "📅 Today"
	menuLabelOverdue  = "⚠️ Overdue"
	menuLabelUpcoming = "🗂 Upcoming"
	menuLabelHelp     = "ℹ️ Help"
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           sender
	updates       func(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	stop          func()
	profiles      *repository.ProfileRepository
	tasks         *service.TaskService
	reminders     *service.ReminderService
	notifications *service.NotificationService

	mu    sync.Mutex
	lists map[int64][]listEntry
}

var _ service.Deliverer = (*Bot)(nil)

func New(token string, profiles *repository.ProfileRepository, tasks *service.TaskService, reminders *service.ReminderService, notifications *service.NotificationService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.WithField("account", api.Self.UserName).Info("bot authorized")

	b := newBot(api, profiles, tasks, reminders, notifications)
	b.updates = api.GetUpdatesChan
	b.stop = api.StopReceivingUpdates
	return b, nil
}

func newBot(api sender, profiles *repository.ProfileRepository, tasks *service.TaskService, reminders *service.ReminderService, notifications *service.NotificationService) *Bot {
	return &Bot{
		api:           api,
		profiles:      profiles,
		tasks:         tasks,
		reminders:     reminders,
		notifications: notifications,
		lists:         make(map[int64][]listEntry),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.updates == nil {
		return fmt.Errorf("bot has no update source")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.updates(updateConfig)

	log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.stop()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.WithError(err).Warn("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.WithError(err).Warn("handle message")
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
		log.WithFields(log.Fields{
			"user":    msg.From.ID,
			"command": msg.Command(),
		}).Info("command")
		return b.handleCommand(ctx, msg)
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelToday:
		return b.handleToday(ctx, msg)
	case menuLabelOverdue:
		return b.handleOverdue(ctx, msg)
	case menuLabelUpcoming:
		return b.handleUpcoming(ctx, msg)
	case menuLabelHelp:
		return b.handleHelp(msg)
	}
	return b.sendText(msg.Chat.ID, "I did not get that. Use /add &lt;title&gt; to plan something or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "overdue":
		return b.handleOverdue(ctx, msg)
	case "upcoming":
		return b.handleUpcoming(ctx, msg)
	case "add":
		return b.handleAdd(ctx, msg)
	case "recurring":
		return b.handleRecurring(ctx, msg)
	case "done":
		return b.handleItemAction(ctx, msg, actionDone)
	case "delete":
		return b.handleItemAction(ctx, msg, actionDelete)
	case "archive":
		return b.handleItemAction(ctx, msg, actionArchive)
	case "totoday":
		return b.handleItemAction(ctx, msg, actionToToday)
	case "torecurring":
		return b.handleItemAction(ctx, msg, actionToRecurring)
	case "totask":
		return b.handleItemAction(ctx, msg, actionToTask)
	case "report":
		return b.handleReport(ctx, msg)
	case "inbox":
		return b.handleInbox(ctx, msg)
	case "broadcast":
		return b.handleBroadcast(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Command not supported. See /help.")
	}
}

func (b *Bot) ensureProfile(ctx context.Context, from *tgbotapi.User) (*model.Profile, error) {
	name := strings.TrimSpace(strings.Join([]string{from.FirstName, from.LastName}, " "))
	if name == "" {
		name = from.UserName
	}
	return b.profiles.UpsertFromTelegram(ctx, from.ID, name)
}

// Deliver sends a notification to the profile's Telegram chat, if it has one.
func (b *Bot) Deliver(ctx context.Context, profile model.Profile, n model.Notification) error {
	if profile.TelegramID == nil {
		return nil
	}
	text := fmt.Sprintf("🔔 <b>%s</b>", escape(n.Title))
	if n.Message != "" {
		text += "\n" + escape(n.Message)
	}
	return b.sendText(*profile.TelegramID, text)
}

// SendDailyReports sends a summary to every profile reachable on Telegram.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	profiles, err := b.profiles.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, profile := range profiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if profile.TelegramID == nil {
			continue
		}
		text, err := b.reminders.Report(ctx, profile)
		if err != nil {
			log.WithError(err).WithField("profile", profile.ID).Warn("build summary")
			continue
		}
		if err := b.sendText(*profile.TelegramID, text); err != nil {
			log.WithError(err).WithField("profile", profile.ID).Warn("send summary")
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// sendError reports a failed direct action to the user.
func (b *Bot) sendError(chatID int64, action string, err error) error {
	log.WithError(err).WithField("action", action).Warn("action failed")
	return b.sendText(chatID, fmt.Sprintf("⚠️ Could not %s: %s", action, escape(userMessage(err))))
}

func (b *Bot) answer(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		log.WithError(err).Debug("callback ack")
	}
}

func (b *Bot) setList(userID int64, entries []listEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[userID] = entries
}

func (b *Bot) listEntry(userID int64, n int) (listEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.lists[userID]
	if n < 1 || n > len(entries) {
		return listEntry{}, false
	}
	return entries[n-1], true
}
