// Package store keeps a signed-in profile's tasks and recurring tasks in
// memory and mirrors every change to the remote data store.
//
// Mutations are optimistic: the local copy changes first, then the remote
// write is issued. A failed insert drops its placeholder; any other failed
// write triggers a full Load from the remote store.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
)

var (
	ErrNotFound   = errors.New("item not found")
	ErrPending    = errors.New("item is still being saved")
	ErrEmptyTitle = errors.New("title is required")
)

// Remote is the hosted data store. scope is the owner id, or empty for
// administrators who see every row.
type Remote interface {
	ListTasks(ctx context.Context, scope string) ([]model.Task, error)
	InsertTask(ctx context.Context, task model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, scope, id string, patch model.TaskPatch) error
	DeleteTask(ctx context.Context, scope, id string) error

	ListRecurring(ctx context.Context, owner string) ([]model.RecurringTask, error)
	InsertRecurring(ctx context.Context, task model.RecurringTask) (model.RecurringTask, error)
	UpdateRecurring(ctx context.Context, owner, id string, patch model.RecurringPatch) error
	DeleteRecurring(ctx context.Context, owner, id string) error
}

type TaskItem struct {
	Ref  Ref
	Task model.Task
}

type RecurringItem struct {
	Ref  Ref
	Task model.RecurringTask
}

// Store is the task state of one profile. It is safe for concurrent use; the
// lock is never held across a remote call.
type Store struct {
	remote Remote
	owner  model.Profile
	zone   calendar.Zone
	clock  calendar.Clock
	log    log.FieldLogger
	newID  func() string

	mu        sync.RWMutex
	tasks     []TaskItem
	recurring []RecurringItem
	loaded    bool
}

func New(remote Remote, owner model.Profile, zone calendar.Zone, clock calendar.Clock) *Store {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &Store{
		remote: remote,
		owner:  owner,
		zone:   zone,
		clock:  clock,
		log:    log.WithFields(log.Fields{"component": "store", "profile": owner.ID}),
		newID:  uuid.NewString,
	}
}

func (s *Store) Owner() model.Profile { return s.owner }

func (s *Store) Zone() calendar.Zone { return s.zone }

func (s *Store) Clock() calendar.Clock { return s.clock }

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Load replaces local state with what the remote store reports. On failure
// the previous state is kept.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.remote.ListTasks(ctx, s.owner.Scope())
	if err != nil {
		s.log.WithError(err).Error("load tasks")
		return fmt.Errorf("load tasks: %w", err)
	}
	recurring, err := s.remote.ListRecurring(ctx, s.owner.ID)
	if err != nil {
		s.log.WithError(err).Error("load recurring tasks")
		return fmt.Errorf("load recurring tasks: %w", err)
	}

	taskItems := make([]TaskItem, 0, len(tasks))
	for _, t := range tasks {
		t = s.normalizeTask(t)
		taskItems = append(taskItems, TaskItem{Ref: Confirmed(t.ID), Task: t})
	}
	sortTasks(taskItems)

	recurringItems := make([]RecurringItem, 0, len(recurring))
	for _, r := range recurring {
		r = s.normalizeRecurring(r)
		recurringItems = append(recurringItems, RecurringItem{Ref: Confirmed(r.ID), Task: r})
	}
	sortRecurring(recurringItems)

	s.mu.Lock()
	s.tasks = taskItems
	s.recurring = recurringItems
	s.loaded = true
	s.mu.Unlock()

	s.log.WithFields(log.Fields{"tasks": len(taskItems), "recurring": len(recurringItems)}).Debug("store loaded")
	return nil
}

// reconcile reloads after a failed write. It runs even if the caller's
// context has been cancelled.
func (s *Store) reconcile(ctx context.Context) {
	if err := s.Load(context.WithoutCancel(ctx)); err != nil {
		s.log.WithError(err).Warn("reconcile after failed write")
	}
}

// Tasks returns a copy of the task list in store order.
func (s *Store) Tasks() []TaskItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskItem, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) Recurring() []RecurringItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecurringItem, len(s.recurring))
	copy(out, s.recurring)
	return out
}

// Task looks an item up by temporary or confirmed id.
func (s *Store) Task(id string) (TaskItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexTask(id); i >= 0 {
		return s.tasks[i], true
	}
	return TaskItem{}, false
}

func (s *Store) RecurringTask(id string) (RecurringItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexRecurring(id); i >= 0 {
		return s.recurring[i], true
	}
	return RecurringItem{}, false
}

func (s *Store) indexTask(id string) int {
	for i := range s.tasks {
		if s.tasks[i].Ref.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexRecurring(id string) int {
	for i := range s.recurring {
		if s.recurring[i].Ref.ID() == id {
			return i
		}
	}
	return -1
}

// normalizeTask applies the defaults for rows that miss optional values.
func (s *Store) normalizeTask(t model.Task) model.Task {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.clock.Now()
	}
	if !t.Status.Valid() {
		t.Status = model.StatusWaiting
	}
	return t
}

func (s *Store) normalizeRecurring(r model.RecurringTask) model.RecurringTask {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock.Now()
	}
	return r
}

func sortTasks(items []TaskItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
			return a.Task.CreatedAt.Before(b.Task.CreatedAt)
		}
		return a.Ref.ID() < b.Ref.ID()
	})
}

func sortRecurring(items []RecurringItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
			return a.Task.CreatedAt.Before(b.Task.CreatedAt)
		}
		return a.Ref.ID() < b.Ref.ID()
	})
}
