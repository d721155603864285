package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"duty-planner/internal/model"
)

func newTestCompleter(s *Store) (*Completer, *[]func()) {
	c := NewCompleter(s, time.Second)
	var timers []func()
	c.after = func(d time.Duration, f func()) { timers = append(timers, f) }
	return c, &timers
}

func loadedStoreWithTask(t *testing.T, status model.Status) (*Store, *fakeRemote, string) {
	t.Helper()
	remote := newFakeRemote()
	task := remote.seedTask(model.Task{Title: "t", Status: status, CreatedAt: testNow, CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s, remote, task.ID
}

func TestCompleterCommitsAfterDelay(t *testing.T) {
	s, remote, id := loadedStoreWithTask(t, model.StatusWaiting)
	c, timers := newTestCompleter(s)

	res, err := c.Toggle(context.Background(), id)
	if err != nil || res != Scheduled {
		t.Fatalf("toggle: %v %v", res, err)
	}
	if !c.Pending(id) {
		t.Fatalf("id should be pending")
	}
	if item, _ := s.Task(id); item.Task.Status != model.StatusWaiting {
		t.Fatalf("status must not change before the delay")
	}

	(*timers)[0]()
	if item, _ := s.Task(id); item.Task.Status != model.StatusCompleted {
		t.Fatalf("status %s after delay", item.Task.Status)
	}
	if remote.tasks[id].Status != model.StatusCompleted {
		t.Fatalf("completion not written remotely")
	}
	if c.Pending(id) {
		t.Fatalf("id should leave the pending set")
	}
}

func TestCompleterCancelSkipsWrite(t *testing.T) {
	s, remote, id := loadedStoreWithTask(t, model.StatusWaiting)
	c, timers := newTestCompleter(s)
	ctx := context.Background()

	if _, err := c.Toggle(ctx, id); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if res, err := c.Toggle(ctx, id); err != nil || res != Cancelled {
		t.Fatalf("second toggle: %v %v", res, err)
	}
	(*timers)[0]()
	if remote.tasks[id].Status != model.StatusWaiting {
		t.Fatalf("cancelled completion was written")
	}
}

func TestCompleterIgnoresStaleTimer(t *testing.T) {
	s, remote, id := loadedStoreWithTask(t, model.StatusWaiting)
	c, timers := newTestCompleter(s)
	ctx := context.Background()

	c.Toggle(ctx, id)
	c.Toggle(ctx, id)
	c.Toggle(ctx, id)
	if len(*timers) != 2 {
		t.Fatalf("expected two timers, got %d", len(*timers))
	}

	(*timers)[0]()
	if remote.tasks[id].Status != model.StatusWaiting || !c.Pending(id) {
		t.Fatalf("first timer belongs to a cancelled toggle")
	}
	(*timers)[1]()
	if remote.tasks[id].Status != model.StatusCompleted {
		t.Fatalf("second timer should commit")
	}
}

func TestCompleterReopensCompletedTask(t *testing.T) {
	s, remote, id := loadedStoreWithTask(t, model.StatusCompleted)
	c, timers := newTestCompleter(s)

	res, err := c.Toggle(context.Background(), id)
	if err != nil || res != Reopened {
		t.Fatalf("toggle: %v %v", res, err)
	}
	if len(*timers) != 0 {
		t.Fatalf("reopening must not wait")
	}
	if remote.tasks[id].Status != model.StatusWaiting {
		t.Fatalf("task should be waiting again")
	}
}

func TestCompleterUnknownTask(t *testing.T) {
	s, _, _ := loadedStoreWithTask(t, model.StatusWaiting)
	c, _ := newTestCompleter(s)
	if _, err := c.Toggle(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
