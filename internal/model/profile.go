package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is a planner account. Telegram users get one on first contact and
// have no email; non-empty emails are unique.
type Profile struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"uniqueIndex:idx_profiles_email_unique,where:email <> ''" json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `gorm:"default:false" json:"isAdmin"`
	TelegramID   *int64    `gorm:"uniqueIndex" json:"telegramId,omitempty"`
	PushToken    string    `json:"pushToken,omitempty"`
	Unseen       []string  `gorm:"serializer:json" json:"unseen"`
	Seen         []string  `gorm:"serializer:json" json:"seen"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Normalize()
	return nil
}

// Normalize applies the default-value policy for optional columns.
func (p *Profile) Normalize() {
	if p.Unseen == nil {
		p.Unseen = []string{}
	}
	if p.Seen == nil {
		p.Seen = []string{}
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if p.Email != "" {
		return p.Email
	}
	return "friend"
}

// Scope is the owner filter used for task queries. Administrators see every row.
func (p Profile) Scope() string {
	if p.IsAdmin {
		return ""
	}
	return p.ID
}
