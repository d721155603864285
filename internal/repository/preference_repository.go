package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duty-planner/internal/model"
)

// PreferenceRepository is the local device key-value store.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the value stored under key and whether it was present.
func (r *PreferenceRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var pref model.Preference
	err := r.db.WithContext(ctx).Where("pref_key = ?", key).First(&pref).Error
	switch {
	case err == nil:
		return pref.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
}

func (r *PreferenceRepository) Set(ctx context.Context, key, value string) error {
	pref := model.Preference{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

func (r *PreferenceRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("pref_key IN ?", keys).Delete(&model.Preference{}).Error; err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	return nil
}
