package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
)

var errRemote = errors.New("remote unavailable")

// fakeRemote is an in-memory Remote with switchable failures.
type fakeRemote struct {
	mu        sync.Mutex
	seq       int
	tasks     map[string]model.Task
	recurring map[string]model.RecurringTask

	failList            error
	failInsertTask      error
	failUpdateTask      error
	failDeleteTask      error
	failInsertRecurring error
	failUpdateRecurring error
	failDeleteRecurring error

	onInsertTask func()
	deleteCalls  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tasks:     make(map[string]model.Task),
		recurring: make(map[string]model.RecurringTask),
	}
}

func (f *fakeRemote) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRemote) seedTask(t model.Task) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = f.nextID("task")
	}
	f.tasks[t.ID] = t
	return t
}

func (f *fakeRemote) seedRecurring(r model.RecurringTask) model.RecurringTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = f.nextID("rec")
	}
	f.recurring[r.ID] = r
	return r
}

func (f *fakeRemote) ListTasks(ctx context.Context, scope string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	var out []model.Task
	for _, t := range f.tasks {
		if scope == "" || t.CreatedBy == scope {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRemote) InsertTask(ctx context.Context, task model.Task) (model.Task, error) {
	if f.onInsertTask != nil {
		f.onInsertTask()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertTask != nil {
		return model.Task{}, f.failInsertTask
	}
	task.ID = f.nextID("task")
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, scope, id string, patch model.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateTask != nil {
		return f.failUpdateTask
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil
	}
	patch.Apply(&t)
	f.tasks[id] = t
	return nil
}

func (f *fakeRemote) DeleteTask(ctx context.Context, scope, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDeleteTask != nil {
		return f.failDeleteTask
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeRemote) ListRecurring(ctx context.Context, owner string) ([]model.RecurringTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	var out []model.RecurringTask
	for _, r := range f.recurring {
		if r.CreatedBy == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRemote) InsertRecurring(ctx context.Context, task model.RecurringTask) (model.RecurringTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertRecurring != nil {
		return model.RecurringTask{}, f.failInsertRecurring
	}
	task.ID = f.nextID("rec")
	f.recurring[task.ID] = task
	return task, nil
}

func (f *fakeRemote) UpdateRecurring(ctx context.Context, owner, id string, patch model.RecurringPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateRecurring != nil {
		return f.failUpdateRecurring
	}
	r, ok := f.recurring[id]
	if !ok {
		return nil
	}
	patch.Apply(&r)
	f.recurring[id] = r
	return nil
}

func (f *fakeRemote) DeleteRecurring(ctx context.Context, owner, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteRecurring != nil {
		return f.failDeleteRecurring
	}
	delete(f.recurring, id)
	return nil
}

// 2025-03-10 12:00 at UTC+3.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(remote *fakeRemote) (*Store, *calendar.ManualClock) {
	clock := calendar.NewManualClock(testNow)
	owner := model.Profile{ID: "owner-1", Name: "Ayşe"}
	s := New(remote, owner, calendar.DefaultZone(), clock)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("tmp-%d", n)
	}
	return s, clock
}
