package store

import (
	"context"
	"testing"
	"time"

	"duty-planner/internal/model"
)

func containsTask(items []TaskItem, id string) bool {
	for _, item := range items {
		if item.Ref.ID() == id {
			return true
		}
	}
	return false
}

func containsRecurring(items []RecurringItem, id string) bool {
	for _, item := range items {
		if item.Ref.ID() == id {
			return true
		}
	}
	return false
}

func TestYesterdayWaitingTaskIsOverdueUntilCompleted(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	task := remote.seedTask(model.Task{Title: "call bank", Status: model.StatusWaiting, CreatedAt: testNow.AddDate(0, 0, -1), CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !containsTask(s.Overdue(), task.ID) {
		t.Fatalf("task should be overdue")
	}
	if containsTask(s.Today().Tasks, task.ID) {
		t.Fatalf("task must not be in today's duties")
	}
	if s.OverdueCount() != 1 {
		t.Fatalf("overdue count %d", s.OverdueCount())
	}

	if err := s.UpdateStatus(ctx, task.ID, model.StatusCompleted); err != nil {
		t.Fatalf("update: %v", err)
	}
	if containsTask(s.Overdue(), task.ID) || containsTask(s.Today().Tasks, task.ID) {
		t.Fatalf("completed task must leave both views")
	}
}

func TestTodayBoundariesFollowFixedOffset(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	// 21:00 UTC on the 9th is 00:00 on the 10th at UTC+3.
	early := remote.seedTask(model.Task{Title: "early", Status: model.StatusWaiting, CreatedAt: time.Date(2025, 3, 9, 21, 0, 0, 0, time.UTC), CreatedBy: "owner-1"})
	late := remote.seedTask(model.Task{Title: "late", Status: model.StatusWaiting, CreatedAt: time.Date(2025, 3, 9, 20, 59, 59, 0, time.UTC), CreatedBy: "owner-1"})
	done := remote.seedTask(model.Task{Title: "done", Status: model.StatusCompleted, CreatedAt: testNow, CreatedBy: "owner-1"})
	pastDue := remote.seedTask(model.Task{Title: "past due", Status: model.StatusPastDue, CreatedAt: testNow, CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	today := s.Today()
	if today.Day.String() != "2025-03-10" {
		t.Fatalf("today is %s", today.Day)
	}
	if !containsTask(today.Tasks, early.ID) || !containsTask(today.Tasks, pastDue.ID) {
		t.Fatalf("expected early and past-due tasks today: %+v", today.Tasks)
	}
	if containsTask(today.Tasks, late.ID) || containsTask(today.Tasks, done.ID) {
		t.Fatalf("unexpected tasks today: %+v", today.Tasks)
	}
	if !containsTask(s.Overdue(), late.ID) {
		t.Fatalf("yesterday's task should be overdue")
	}
}

func TestRecurringTaskReappearsAfterMidnight(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	completed := testNow.Add(-time.Hour)
	rec := remote.seedRecurring(model.RecurringTask{Title: "water plants", CreatedBy: "owner-1", CreatedAt: testNow.AddDate(0, 0, -7), LastCompletedAt: &completed})
	s, clock := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if containsRecurring(s.Today().Recurring, rec.ID) {
		t.Fatalf("recurring task done today must be hidden")
	}

	// 12:00 local plus 13h is 01:00 the next day.
	clock.Advance(13 * time.Hour)
	if !containsRecurring(s.Today().Recurring, rec.ID) {
		t.Fatalf("recurring task should reappear after midnight")
	}
	if got := remote.recurring[rec.ID].LastCompletedAt; got == nil || !got.Equal(completed) {
		t.Fatalf("rollover must not write: %v", got)
	}
}

func TestCompleteRecurringTogglesToday(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	s, _ := newTestStore(remote)
	rec, err := s.AddRecurring(ctx, "stretch")
	if err != nil {
		t.Fatalf("add recurring: %v", err)
	}
	if !containsRecurring(s.Today().Recurring, rec.ID) {
		t.Fatalf("new recurring task should be due")
	}
	if err := s.CompleteRecurring(ctx, rec.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if containsRecurring(s.Today().Recurring, rec.ID) {
		t.Fatalf("completed recurring task should be hidden")
	}
	if remote.recurring[rec.ID].LastCompletedAt == nil {
		t.Fatalf("completion not written")
	}
	if err := s.CompleteRecurring(ctx, rec.ID, false); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !containsRecurring(s.Today().Recurring, rec.ID) || remote.recurring[rec.ID].LastCompletedAt != nil {
		t.Fatalf("undo should clear the completion")
	}
}

func TestMoveToTodayAndArchive(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	old := remote.seedTask(model.Task{Title: "old", Status: model.StatusWaiting, CreatedAt: testNow.AddDate(0, 0, -3), CreatedBy: "owner-1"})
	stale := remote.seedTask(model.Task{Title: "stale", Status: model.StatusWaiting, CreatedAt: testNow.AddDate(0, 0, -2), CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.MoveToToday(ctx, old.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	if !containsTask(s.Today().Tasks, old.ID) || containsTask(s.Overdue(), old.ID) {
		t.Fatalf("moved task should be due today only")
	}
	wantNoon := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if got := remote.tasks[old.ID].CreatedAt; !got.Equal(wantNoon) {
		t.Fatalf("remote createdAt %v, want %v", got, wantNoon)
	}

	if err := s.Archive(ctx, stale.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if containsTask(s.Overdue(), stale.ID) {
		t.Fatalf("archived task must leave overdue")
	}
	for _, day := range s.Upcoming() {
		if containsTask(day.Tasks, stale.ID) {
			t.Fatalf("archived task must leave the agenda")
		}
	}
}

func TestAgendaGroupsByLocalDate(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	// 22:00 UTC on the 10th is already the 11th locally.
	remote.seedTask(model.Task{Title: "late night", Status: model.StatusWaiting, CreatedAt: time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC), CreatedBy: "owner-1"})
	remote.seedTask(model.Task{Title: "morning", Status: model.StatusCompleted, CreatedAt: time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC), CreatedBy: "owner-1"})
	remote.seedTask(model.Task{Title: "today", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	remote.seedTask(model.Task{Title: "hidden", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1", IsArchived: true})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	agenda := s.Upcoming()
	if len(agenda) != 2 {
		t.Fatalf("expected 2 days, got %d", len(agenda))
	}
	if agenda[0].Day.String() != "2025-03-10" || len(agenda[0].Tasks) != 1 {
		t.Fatalf("first day %s with %d tasks", agenda[0].Day, len(agenda[0].Tasks))
	}
	if agenda[1].Day.String() != "2025-03-11" || len(agenda[1].Tasks) != 2 {
		t.Fatalf("second day %s with %d tasks", agenda[1].Day, len(agenda[1].Tasks))
	}
	if agenda[1].Tasks[0].Task.Title != "late night" {
		t.Fatalf("agenda day must be sorted by time, got %q first", agenda[1].Tasks[0].Task.Title)
	}
}

func TestStatsCountsStatuses(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.seedTask(model.Task{Title: "a", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	remote.seedTask(model.Task{Title: "b", Status: model.StatusCompleted, CreatedAt: testNow, CreatedBy: "owner-1"})
	remote.seedTask(model.Task{Title: "c", Status: model.StatusPastDue, CreatedAt: testNow, CreatedBy: "owner-1", IsArchived: true})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Stats{Total: 3, Waiting: 1, Completed: 1, PastDue: 1, Archived: 1}
	if got := s.Stats(); got != want {
		t.Fatalf("stats %+v, want %+v", got, want)
	}
}

func TestConvertRoundTripKeepsTitle(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	task := remote.seedTask(model.Task{Title: "read 20 pages", Status: model.StatusWaiting, CreatedAt: testNow.AddDate(0, 0, -4), CreatedBy: "owner-1"})
	s, clock := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	clock.Advance(time.Minute)
	convertedAt := clock.Now()
	rec, err := s.ConvertTaskToRecurring(ctx, task.ID)
	if err != nil {
		t.Fatalf("to recurring: %v", err)
	}
	if rec.Title != task.Title {
		t.Fatalf("recurring title %q", rec.Title)
	}
	if _, ok := s.Task(task.ID); ok {
		t.Fatalf("source task still held")
	}
	if _, ok := remote.tasks[task.ID]; ok {
		t.Fatalf("source task still stored")
	}

	clock.Advance(time.Minute)
	back, err := s.ConvertRecurringToTask(ctx, rec.ID)
	if err != nil {
		t.Fatalf("to task: %v", err)
	}
	if back.Title != task.Title || back.Status != model.StatusWaiting {
		t.Fatalf("unexpected task %+v", back)
	}
	if back.CreatedAt.Before(convertedAt) {
		t.Fatalf("createdAt %v is before conversion %v", back.CreatedAt, convertedAt)
	}
	if len(s.Recurring()) != 0 || len(remote.recurring) != 0 {
		t.Fatalf("recurring task should be gone")
	}
	if item, ok := s.Task(back.ID); !ok || item.Ref.IsPending() {
		t.Fatalf("converted task should be confirmed in the store")
	}
}

func TestFailedConversionReconciles(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	task := remote.seedTask(model.Task{Title: "keep me", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	remote.failInsertRecurring = errRemote
	if _, err := s.ConvertTaskToRecurring(ctx, task.ID); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := s.Task(task.ID); !ok {
		t.Fatalf("task should be restored by reconcile")
	}
	if len(s.Recurring()) != 0 {
		t.Fatalf("placeholder recurring task should be gone")
	}
}
