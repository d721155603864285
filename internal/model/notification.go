package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTask   NotificationType = "task"
	NotificationSystem NotificationType = "system"
)

// Notification is a message shown in a profile's inbox.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// InboxItem pairs a notification with the reader's seen flag.
type InboxItem struct {
	Notification
	Seen bool
}
