package repository

import (
	"context"

	"gorm.io/gorm"

	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
	"duty-planner/internal/store"
)

// Remote exposes the task tables as the store's remote data store.
type Remote struct {
	tasks     *TaskRepository
	recurring *RecurringTaskRepository
}

var _ store.Remote = (*Remote)(nil)

func NewRemote(db *gorm.DB, zone calendar.Zone) *Remote {
	return &Remote{
		tasks:     NewTaskRepository(db, zone),
		recurring: NewRecurringTaskRepository(db, zone),
	}
}

func (r *Remote) ListTasks(ctx context.Context, scope string) ([]model.Task, error) {
	return r.tasks.List(ctx, scope)
}

func (r *Remote) InsertTask(ctx context.Context, task model.Task) (model.Task, error) {
	return r.tasks.Insert(ctx, task)
}

func (r *Remote) UpdateTask(ctx context.Context, scope, id string, patch model.TaskPatch) error {
	return r.tasks.Update(ctx, scope, id, patch)
}

func (r *Remote) DeleteTask(ctx context.Context, scope, id string) error {
	return r.tasks.Delete(ctx, scope, id)
}

func (r *Remote) ListRecurring(ctx context.Context, owner string) ([]model.RecurringTask, error) {
	return r.recurring.List(ctx, owner)
}

func (r *Remote) InsertRecurring(ctx context.Context, task model.RecurringTask) (model.RecurringTask, error) {
	return r.recurring.Insert(ctx, task)
}

func (r *Remote) UpdateRecurring(ctx context.Context, owner, id string, patch model.RecurringPatch) error {
	return r.recurring.Update(ctx, owner, id, patch)
}

func (r *Remote) DeleteRecurring(ctx context.Context, owner, id string) error {
	return r.recurring.Delete(ctx, owner, id)
}
