package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"duty-planner/internal/model"
)

func TestAddReplacesPlaceholderWithConfirmedRow(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	s, _ := newTestStore(remote)

	var during []TaskItem
	remote.onInsertTask = func() { during = s.Tasks() }

	saved, err := s.Add(ctx, NewTask{Title: "  Buy bread  "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(during) != 1 || !during[0].Ref.IsPending() || during[0].Ref.ID() != "tmp-1" {
		t.Fatalf("placeholder not visible during insert: %+v", during)
	}

	items := s.Tasks()
	if len(items) != 1 {
		t.Fatalf("expected one task, got %d", len(items))
	}
	if items[0].Ref != Confirmed(saved.ID) || saved.ID != "task-1" {
		t.Fatalf("unexpected ref %v for saved %s", items[0].Ref, saved.ID)
	}
	for _, item := range items {
		if item.Ref.ID() == "tmp-1" {
			t.Fatalf("temporary id still present")
		}
	}
	got := items[0].Task
	if got.Title != "Buy bread" || got.Status != model.StatusWaiting || got.CreatedBy != "owner-1" {
		t.Fatalf("unexpected task %+v", got)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Fatalf("createdAt %v, want %v", got.CreatedAt, testNow)
	}
}

func TestAddFailureRestoresPreviousList(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.seedTask(model.Task{Title: "a", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	remote.seedTask(model.Task{Title: "b", Status: model.StatusCompleted, CreatedAt: testNow.Add(time.Hour), CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := s.Tasks()

	remote.failInsertTask = errRemote
	if _, err := s.Add(ctx, NewTask{Title: "c"}); !errors.Is(err, errRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if after := s.Tasks(); !reflect.DeepEqual(before, after) {
		t.Fatalf("list changed after failed add:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestAddRejectsEmptyTitle(t *testing.T) {
	s, _ := newTestStore(newFakeRemote())
	if _, err := s.Add(context.Background(), NewTask{Title: "   "}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if len(s.Tasks()) != 0 {
		t.Fatalf("no placeholder expected")
	}
}

func TestFailedStatusUpdateReloadsRemoteState(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	task := remote.seedTask(model.Task{Title: "report", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Another writer renamed the row meanwhile.
	remote.tasks[task.ID] = model.Task{ID: task.ID, Title: "weekly report", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"}
	remote.failUpdateTask = errRemote

	if err := s.UpdateStatus(ctx, task.ID, model.StatusCompleted); !errors.Is(err, errRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}

	items := s.Tasks()
	if len(items) != 1 {
		t.Fatalf("expected one task, got %d", len(items))
	}
	want, _ := remote.ListTasks(ctx, "owner-1")
	if !reflect.DeepEqual(items[0].Task, want[0]) {
		t.Fatalf("local %+v does not match remote %+v", items[0].Task, want[0])
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	s, _ := newTestStore(newFakeRemote())
	if err := s.UpdateStatus(context.Background(), "missing", model.StatusCompleted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateStatus(context.Background(), "missing", model.Status("done")); err == nil {
		t.Fatalf("expected invalid status error")
	}
}

func TestDeleteTwiceIsHarmless(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	task := remote.seedTask(model.Task{Title: "x", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.Delete(ctx, task.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	snapshot := s.Tasks()
	if err := s.Delete(ctx, task.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if !reflect.DeepEqual(snapshot, s.Tasks()) {
		t.Fatalf("state changed on second delete")
	}
	if remote.deleteCalls != 1 {
		t.Fatalf("expected one remote delete, got %d", remote.deleteCalls)
	}
}

func TestFailedDeleteRestoresTask(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	task := remote.seedTask(model.Task{Title: "x", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	remote.failDeleteTask = errRemote
	if err := s.Delete(ctx, task.ID); !errors.Is(err, errRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if _, ok := s.Task(task.ID); !ok {
		t.Fatalf("task should be back after reconcile")
	}
}

func TestPendingItemsRejectWrites(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	s, _ := newTestStore(remote)

	var updateErr, deleteErr error
	remote.onInsertTask = func() {
		updateErr = s.UpdateStatus(ctx, "tmp-1", model.StatusCompleted)
		deleteErr = s.Delete(ctx, "tmp-1")
	}
	if _, err := s.Add(ctx, NewTask{Title: "slow"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !errors.Is(updateErr, ErrPending) || !errors.Is(deleteErr, ErrPending) {
		t.Fatalf("expected ErrPending, got %v / %v", updateErr, deleteErr)
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.seedTask(model.Task{Title: "x", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := s.Tasks()
	remote.failList = errRemote
	if err := s.Load(ctx); !errors.Is(err, errRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Tasks()) {
		t.Fatalf("state must be untouched by a failed load")
	}
}

func TestLoadAppliesDefaultsAndSorts(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.seedTask(model.Task{ID: "task-b", Title: "b", Status: model.StatusWaiting, CreatedAt: testNow.Add(-time.Hour), CreatedBy: "owner-1"})
	remote.seedTask(model.Task{ID: "task-a", Title: "a", Status: model.StatusWaiting, CreatedAt: testNow.Add(-time.Hour), CreatedBy: "owner-1"})
	remote.seedTask(model.Task{ID: "task-c", Title: "no date", CreatedBy: "owner-1"})
	remote.seedTask(model.Task{ID: "task-z", Title: "someone else", CreatedAt: testNow, CreatedBy: "other"})
	s, _ := newTestStore(remote)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	items := s.Tasks()
	var ids []string
	for _, item := range items {
		ids = append(ids, item.Ref.ID())
	}
	if want := []string{"task-a", "task-b", "task-c"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("order %v, want %v", ids, want)
	}
	undated := items[2].Task
	if !undated.CreatedAt.Equal(testNow) || undated.Status != model.StatusWaiting {
		t.Fatalf("defaults not applied: %+v", undated)
	}
}

func TestAdministratorSeesEveryTask(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.seedTask(model.Task{Title: "mine", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "owner-1"})
	remote.seedTask(model.Task{Title: "theirs", Status: model.StatusWaiting, CreatedAt: testNow, CreatedBy: "other"})
	s, _ := newTestStore(remote)
	s.owner.IsAdmin = true
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if n := len(s.Tasks()); n != 2 {
		t.Fatalf("admin should see 2 tasks, got %d", n)
	}
}
