package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"duty-planner/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByIDs returns the notifications with the given ids, newest first.
func (r *NotificationRepository) ListByIDs(ctx context.Context, ids []string) ([]model.Notification, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []model.Notification
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}
