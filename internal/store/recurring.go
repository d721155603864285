package store

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"duty-planner/internal/model"
)

func (s *Store) AddRecurring(ctx context.Context, title string) (model.RecurringTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.RecurringTask{}, ErrEmptyTitle
	}

	tempID := s.newID()
	draft := model.RecurringTask{
		Title:     title,
		CreatedBy: s.owner.ID,
		CreatedAt: s.clock.Now(),
	}
	s.mu.Lock()
	s.recurring = append(s.recurring, RecurringItem{Ref: Pending(tempID), Task: draft})
	s.mu.Unlock()

	saved, err := s.remote.InsertRecurring(ctx, draft)
	if err != nil {
		s.dropRecurring(tempID)
		s.log.WithError(err).WithField("title", title).Error("add recurring task")
		return model.RecurringTask{}, fmt.Errorf("add recurring task: %w", err)
	}
	saved = s.confirmRecurring(tempID, saved)
	s.log.WithFields(log.Fields{"recurring": saved.ID, "temp": tempID}).Info("recurring task added")
	return saved, nil
}

// CompleteRecurring marks a recurring task done for today, or clears the
// mark when done is false.
func (s *Store) CompleteRecurring(ctx context.Context, id string, done bool) error {
	patch := model.RecurringPatch{ClearCompleted: !done}
	if done {
		now := s.clock.Now()
		patch.LastCompletedAt = &now
	}
	return s.updateRecurring(ctx, id, patch)
}

func (s *Store) UpdateRecurring(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	return s.updateRecurring(ctx, id, model.RecurringPatch{Title: &title})
}

func (s *Store) updateRecurring(ctx context.Context, id string, patch model.RecurringPatch) error {
	s.mu.Lock()
	i := s.indexRecurring(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.recurring[i].Ref.IsPending() {
		s.mu.Unlock()
		return ErrPending
	}
	patch.Apply(&s.recurring[i].Task)
	s.mu.Unlock()

	if err := s.remote.UpdateRecurring(ctx, s.owner.ID, id, patch); err != nil {
		s.log.WithError(err).WithField("recurring", id).Error("update recurring task")
		s.reconcile(ctx)
		return fmt.Errorf("update recurring task %s: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexRecurring(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	if s.recurring[i].Ref.IsPending() {
		s.mu.Unlock()
		return ErrPending
	}
	s.recurring = append(s.recurring[:i], s.recurring[i+1:]...)
	s.mu.Unlock()

	if err := s.remote.DeleteRecurring(ctx, s.owner.ID, id); err != nil {
		s.log.WithError(err).WithField("recurring", id).Error("delete recurring task")
		s.reconcile(ctx)
		return fmt.Errorf("delete recurring task %s: %w", id, err)
	}
	return nil
}

// ConvertTaskToRecurring replaces a task with a recurring task of the same
// title. The new row is inserted before the old one is deleted, so a failure
// never loses the title; any failure ends in a full Load.
func (s *Store) ConvertTaskToRecurring(ctx context.Context, id string) (model.RecurringTask, error) {
	s.mu.Lock()
	i := s.indexTask(id)
	if i < 0 {
		s.mu.Unlock()
		return model.RecurringTask{}, ErrNotFound
	}
	if s.tasks[i].Ref.IsPending() {
		s.mu.Unlock()
		return model.RecurringTask{}, ErrPending
	}
	task := s.tasks[i].Task
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	tempID := s.newID()
	draft := model.RecurringTask{
		Title:     task.Title,
		CreatedBy: s.owner.ID,
		CreatedAt: s.clock.Now(),
	}
	s.recurring = append(s.recurring, RecurringItem{Ref: Pending(tempID), Task: draft})
	s.mu.Unlock()

	saved, err := s.remote.InsertRecurring(ctx, draft)
	if err != nil {
		s.log.WithError(err).WithField("task", id).Error("convert task to recurring")
		s.reconcile(ctx)
		return model.RecurringTask{}, fmt.Errorf("convert task %s: %w", id, err)
	}
	saved = s.confirmRecurring(tempID, saved)

	if err := s.remote.DeleteTask(ctx, s.owner.Scope(), id); err != nil {
		s.log.WithError(err).WithField("task", id).Error("convert task to recurring: delete source")
		s.reconcile(ctx)
		return saved, fmt.Errorf("convert task %s: %w", id, err)
	}
	s.log.WithFields(log.Fields{"task": id, "recurring": saved.ID}).Info("task converted to recurring")
	return saved, nil
}

// ConvertRecurringToTask replaces a recurring task with a waiting task for
// the current moment.
func (s *Store) ConvertRecurringToTask(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	i := s.indexRecurring(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, ErrNotFound
	}
	if s.recurring[i].Ref.IsPending() {
		s.mu.Unlock()
		return model.Task{}, ErrPending
	}
	source := s.recurring[i].Task
	s.recurring = append(s.recurring[:i], s.recurring[i+1:]...)
	tempID := s.newID()
	draft := model.Task{
		Title:     source.Title,
		Status:    model.StatusWaiting,
		CreatedAt: s.clock.Now(),
		CreatedBy: s.owner.ID,
	}
	s.tasks = append(s.tasks, TaskItem{Ref: Pending(tempID), Task: draft})
	s.mu.Unlock()

	saved, err := s.remote.InsertTask(ctx, draft)
	if err != nil {
		s.log.WithError(err).WithField("recurring", id).Error("convert recurring to task")
		s.reconcile(ctx)
		return model.Task{}, fmt.Errorf("convert recurring task %s: %w", id, err)
	}
	saved = s.normalizeTask(saved)
	s.mu.Lock()
	confirmed := TaskItem{Ref: Confirmed(saved.ID), Task: saved}
	if j := s.indexTask(tempID); j >= 0 {
		s.tasks[j] = confirmed
	} else if s.indexTask(saved.ID) < 0 {
		s.tasks = append(s.tasks, confirmed)
	}
	s.mu.Unlock()

	if err := s.remote.DeleteRecurring(ctx, s.owner.ID, id); err != nil {
		s.log.WithError(err).WithField("recurring", id).Error("convert recurring to task: delete source")
		s.reconcile(ctx)
		return saved, fmt.Errorf("convert recurring task %s: %w", id, err)
	}
	s.log.WithFields(log.Fields{"recurring": id, "task": saved.ID}).Info("recurring task converted to task")
	return saved, nil
}

func (s *Store) dropRecurring(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexRecurring(tempID); i >= 0 {
		s.recurring = append(s.recurring[:i], s.recurring[i+1:]...)
	}
}

func (s *Store) confirmRecurring(tempID string, saved model.RecurringTask) model.RecurringTask {
	saved = s.normalizeRecurring(saved)
	s.mu.Lock()
	defer s.mu.Unlock()
	confirmed := RecurringItem{Ref: Confirmed(saved.ID), Task: saved}
	if i := s.indexRecurring(tempID); i >= 0 {
		s.recurring[i] = confirmed
	} else if s.indexRecurring(saved.ID) < 0 {
		s.recurring = append(s.recurring, confirmed)
	}
	return saved
}
