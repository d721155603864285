package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
)

// TaskRepository handles CRUD for tasks. Timestamps are stored encoded in
// the planner's zone and decoded on the way out.
type TaskRepository struct {
	db   *gorm.DB
	zone calendar.Zone
}

func NewTaskRepository(db *gorm.DB, zone calendar.Zone) *TaskRepository {
	return &TaskRepository{db: db, zone: zone}
}

// List returns the tasks of owner, or every task when owner is empty.
func (r *TaskRepository) List(ctx context.Context, owner string) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if owner != "" {
		q = q.Where("created_by = ?", owner)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		tasks[i] = r.decode(tasks[i])
	}
	return tasks, nil
}

// Insert stores task under a new id and returns the stored row.
func (r *TaskRepository) Insert(ctx context.Context, task model.Task) (model.Task, error) {
	row := task
	row.ID = ""
	if !row.Status.Valid() {
		row.Status = model.StatusWaiting
	}
	row.CreatedAt = r.zone.Encode(task.CreatedAt)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return r.decode(row), nil
}

// Update writes the set fields of patch. A row outside owner's scope counts as missing.
func (r *TaskRepository) Update(ctx context.Context, owner, id string, patch model.TaskPatch) error {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.CreatedAt != nil {
		updates["created_at"] = r.zone.Encode(*patch.CreatedAt)
	}
	if patch.IsArchived != nil {
		updates["is_archived"] = *patch.IsArchived
	}
	if len(updates) == 0 {
		return nil
	}

	q := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id)
	if owner != "" {
		q = q.Where("created_by = ?", owner)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update task %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes a task. Deleting a missing row is not an error.
func (r *TaskRepository) Delete(ctx context.Context, owner, id string) error {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if owner != "" {
		q = q.Where("created_by = ?", owner)
	}
	if err := q.Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) decode(t model.Task) model.Task {
	t.CreatedAt = r.zone.Decode(t.CreatedAt)
	if !t.Status.Valid() {
		t.Status = model.StatusWaiting
	}
	return t
}
