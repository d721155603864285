package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"duty-planner/internal/model"
)

// ProfileRepository handles CRUD for profiles.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	profile.Normalize()
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *ProfileRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.Profile, error) {
	return r.first(ctx, "telegram_id = ?", telegramID)
}

func (r *ProfileRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where(query, args...).First(&profile).Error; err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// UpsertFromTelegram finds or creates a profile based on TelegramID and keeps the display name current.
func (r *ProfileRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, name string) (*model.Profile, error) {
	profile, err := r.FindByTelegramID(ctx, telegramID)
	switch {
	case err == nil:
		if name != "" && profile.Name != name {
			if err := r.db.WithContext(ctx).Model(profile).Update("name", name).Error; err != nil {
				return nil, fmt.Errorf("update profile: %w", err)
			}
			profile.Name = name
		}
		return profile, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		id := telegramID
		profile = &model.Profile{Name: name, TelegramID: &id}
		if err := r.Create(ctx, profile); err != nil {
			return nil, err
		}
		return profile, nil
	default:
		return nil, fmt.Errorf("find profile: %w", err)
	}
}

func (r *ProfileRepository) ListAll(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].Normalize()
	}
	return profiles, nil
}

// CountAdmins returns how many profiles have the administrator flag.
func (r *ProfileRepository) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Profile{}).Where("is_admin = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// Delete removes the profile row. The profile's tasks are not touched.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Profile{})
	if res.Error != nil {
		return fmt.Errorf("delete profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete profile %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ProfileRepository) SetPushToken(ctx context.Context, id, token string) error {
	return r.updateColumn(ctx, id, "push_token", token)
}

func (r *ProfileRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

func (r *ProfileRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	return r.updateColumn(ctx, id, "is_admin", admin)
}

func (r *ProfileRepository) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("update profile %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update profile %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// AppendUnseen adds notificationID to the unseen list of every profile and
// returns the updated profiles.
func (r *ProfileRepository) AppendUnseen(ctx context.Context, notificationID string) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Find(&profiles).Error; err != nil {
			return err
		}
		for i := range profiles {
			profiles[i].Normalize()
			profiles[i].Unseen = append(profiles[i].Unseen, notificationID)
			if err := saveInbox(tx, &profiles[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append unseen: %w", err)
	}
	return profiles, nil
}

// MarkSeen moves notificationID from unseen to seen. Already seen ids are left alone.
func (r *ProfileRepository) MarkSeen(ctx context.Context, id, notificationID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&profile).Error; err != nil {
			return err
		}
		profile.Normalize()
		idx := -1
		for i, n := range profile.Unseen {
			if n == notificationID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
		profile.Unseen = append(append([]string{}, profile.Unseen[:idx]...), profile.Unseen[idx+1:]...)
		profile.Seen = append(profile.Seen, notificationID)
		return saveInbox(tx, &profile)
	})
	if err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) ClearInbox(ctx context.Context, id string) error {
	profile := model.Profile{ID: id, Unseen: []string{}, Seen: []string{}}
	if err := saveInbox(r.db.WithContext(ctx), &profile); err != nil {
		return fmt.Errorf("clear inbox: %w", err)
	}
	return nil
}

// saveInbox writes both notification lists. The struct form keeps the json
// serializer in play and Select forces empty lists to be written.
func saveInbox(tx *gorm.DB, p *model.Profile) error {
	return tx.Model(&model.Profile{ID: p.ID}).
		Select("unseen", "seen").
		Updates(&model.Profile{Unseen: p.Unseen, Seen: p.Seen}).Error
}
