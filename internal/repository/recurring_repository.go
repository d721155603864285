package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
)

// RecurringTaskRepository handles CRUD for recurring tasks.
type RecurringTaskRepository struct {
	db   *gorm.DB
	zone calendar.Zone
}

func NewRecurringTaskRepository(db *gorm.DB, zone calendar.Zone) *RecurringTaskRepository {
	return &RecurringTaskRepository{db: db, zone: zone}
}

func (r *RecurringTaskRepository) List(ctx context.Context, owner string) ([]model.RecurringTask, error) {
	var tasks []model.RecurringTask
	if err := r.db.WithContext(ctx).Where("created_by = ?", owner).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	for i := range tasks {
		tasks[i] = r.decode(tasks[i])
	}
	return tasks, nil
}

func (r *RecurringTaskRepository) Insert(ctx context.Context, task model.RecurringTask) (model.RecurringTask, error) {
	row := task
	row.ID = ""
	row.CreatedAt = r.zone.Encode(task.CreatedAt)
	if task.LastCompletedAt != nil {
		at := r.zone.Encode(*task.LastCompletedAt)
		row.LastCompletedAt = &at
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.RecurringTask{}, fmt.Errorf("create recurring task: %w", err)
	}
	return r.decode(row), nil
}

func (r *RecurringTaskRepository) Update(ctx context.Context, owner, id string, patch model.RecurringPatch) error {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	switch {
	case patch.ClearCompleted:
		updates["last_completed_at"] = nil
	case patch.LastCompletedAt != nil:
		updates["last_completed_at"] = r.zone.Encode(*patch.LastCompletedAt)
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&model.RecurringTask{}).
		Where("id = ? AND created_by = ?", id, owner).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update recurring task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update recurring task %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes a recurring task for the given owner.
func (r *RecurringTaskRepository) Delete(ctx context.Context, owner, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ? AND created_by = ?", id, owner).
		Delete(&model.RecurringTask{}).Error; err != nil {
		return fmt.Errorf("delete recurring task: %w", err)
	}
	return nil
}

func (r *RecurringTaskRepository) decode(t model.RecurringTask) model.RecurringTask {
	t.CreatedAt = r.zone.Decode(t.CreatedAt)
	if t.LastCompletedAt != nil {
		at := r.zone.Decode(*t.LastCompletedAt)
		t.LastCompletedAt = &at
	}
	return t
}
