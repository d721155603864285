package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
)

// NewTask is the input of Add. A zero CreatedAt means now.
type NewTask struct {
	Title       string
	Description string
	CreatedAt   time.Time
}

// Add shows a placeholder immediately and swaps it for the stored row once
// the insert succeeds. On failure the placeholder is removed and the error
// is returned for the caller to show.
func (s *Store) Add(ctx context.Context, in NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	tempID := s.newID()
	draft := model.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      model.StatusWaiting,
		CreatedAt:   createdAt,
		CreatedBy:   s.owner.ID,
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, TaskItem{Ref: Pending(tempID), Task: draft})
	s.mu.Unlock()

	saved, err := s.remote.InsertTask(ctx, draft)
	if err != nil {
		s.mu.Lock()
		if i := s.indexTask(tempID); i >= 0 {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		}
		s.mu.Unlock()
		s.log.WithError(err).WithField("title", title).Error("add task")
		return model.Task{}, fmt.Errorf("add task: %w", err)
	}
	saved = s.normalizeTask(saved)

	s.mu.Lock()
	confirmed := TaskItem{Ref: Confirmed(saved.ID), Task: saved}
	switch i := s.indexTask(tempID); {
	case i >= 0:
		s.tasks[i] = confirmed
	case s.indexTask(saved.ID) < 0:
		// A Load ran while the insert was in flight and did not see the row yet.
		s.tasks = append(s.tasks, confirmed)
	}
	s.mu.Unlock()

	s.log.WithFields(log.Fields{"task": saved.ID, "temp": tempID}).Info("task added")
	return saved, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("update task %s: unknown status %q", id, status)
	}
	return s.Update(ctx, id, model.TaskPatch{Status: &status})
}

// Update applies patch locally, then remotely. A failed remote write is
// followed by a full Load so no optimistic value survives.
func (s *Store) Update(ctx context.Context, id string, patch model.TaskPatch) error {
	if patch.Empty() {
		return nil
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return ErrEmptyTitle
		}
		patch.Title = &title
	}

	s.mu.Lock()
	i := s.indexTask(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.tasks[i].Ref.IsPending() {
		s.mu.Unlock()
		return ErrPending
	}
	patch.Apply(&s.tasks[i].Task)
	s.mu.Unlock()

	if err := s.remote.UpdateTask(ctx, s.owner.Scope(), id, patch); err != nil {
		s.log.WithError(err).WithField("task", id).Error("update task")
		s.reconcile(ctx)
		return fmt.Errorf("update task %s: %w", id, err)
	}
	return nil
}

// MoveToToday reschedules an overdue task to noon of the current day.
func (s *Store) MoveToToday(ctx context.Context, id string) error {
	noon := s.zone.Today(s.clock.Now()).Noon()
	return s.Update(ctx, id, model.TaskPatch{CreatedAt: &noon})
}

func (s *Store) Archive(ctx context.Context, id string) error {
	archived := true
	return s.Update(ctx, id, model.TaskPatch{IsArchived: &archived})
}

// Delete removes the task locally, then remotely. Deleting an id the store
// does not hold is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexTask(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	if s.tasks[i].Ref.IsPending() {
		s.mu.Unlock()
		return ErrPending
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.mu.Unlock()

	if err := s.remote.DeleteTask(ctx, s.owner.Scope(), id); err != nil {
		s.log.WithError(err).WithField("task", id).Error("delete task")
		s.reconcile(ctx)
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}
