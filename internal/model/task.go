package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle tag of a task.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusPastDue   Status = "past_due"
)

// ParseStatus accepts the wire names of the three task states.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown task status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusCompleted, StatusPastDue:
		return true
	}
	return false
}

// Task is a one-off duty that belongs to the calendar day of CreatedAt.
type Task struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `gorm:"index" json:"status"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	CreatedBy   string    `gorm:"index;size:36" json:"createdBy"`
	IsArchived  bool      `gorm:"default:false" json:"isArchived"`
	UpdatedAt   time.Time `json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TaskPatch lists the fields of a task an update may touch. Nil fields are left alone.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
	CreatedAt   *time.Time
	IsArchived  *bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.CreatedAt == nil && p.IsArchived == nil
}

// Apply copies the set fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.CreatedAt != nil {
		t.CreatedAt = *p.CreatedAt
	}
	if p.IsArchived != nil {
		t.IsArchived = *p.IsArchived
	}
}
