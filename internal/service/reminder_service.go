package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"duty-planner/internal/model"
	"duty-planner/internal/store"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	tasks *TaskService
}

func NewReminderService(tasks *TaskService) *ReminderService {
	return &ReminderService{tasks: tasks}
}

// DailySummary renders the profile's duties for today as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, st *store.Store) (string, error) {
	if !st.Loaded() {
		if err := st.Load(ctx); err != nil {
			return "", err
		}
	}
	today := st.Today()
	overdue := st.Overdue()

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Daily report for %s</b>\n", html.EscapeString(st.Owner().DisplayName())))
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today.Day.Start().Format("02.01.2006")))

	builder.WriteString("🔥 <b>Today</b>\n")
	if len(today.Tasks) == 0 {
		builder.WriteString("— nothing planned\n")
	} else {
		for _, item := range today.Tasks {
			builder.WriteString(formatTask(item))
		}
	}

	builder.WriteString("\n♻️ <b>Recurring</b>\n")
	if len(today.Recurring) == 0 {
		builder.WriteString("— all done for today\n")
	} else {
		for _, item := range today.Recurring {
			builder.WriteString(fmt.Sprintf("♻️ %s\n", html.EscapeString(strings.TrimSpace(item.Task.Title))))
		}
	}

	if len(overdue) > 0 {
		builder.WriteString(fmt.Sprintf("\n⚠️ <b>Overdue (%d)</b>\n", len(overdue)))
		for _, item := range overdue {
			day := st.Zone().DayOf(item.Task.CreatedAt)
			builder.WriteString(fmt.Sprintf("⚠️ %s <i>(%s)</i>\n", html.EscapeString(strings.TrimSpace(item.Task.Title)), day))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// Report opens the profile's store and renders its summary.
func (s *ReminderService) Report(ctx context.Context, profile model.Profile) (string, error) {
	st, err := s.tasks.Open(ctx, profile)
	if err != nil {
		return "", err
	}
	return s.DailySummary(ctx, st)
}

func formatTask(item store.TaskItem) string {
	var sb strings.Builder
	icon := "🟢"
	if item.Ref.IsPending() {
		icon = "⏳"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(item.Task.Title))))
	if desc := strings.TrimSpace(item.Task.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(desc)))
	}
	sb.WriteByte('\n')
	return sb.String()
}
