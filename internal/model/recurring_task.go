package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecurringTask comes back every day until it is completed for that day.
type RecurringTask struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Title           string     `json:"title"`
	CreatedBy       string     `gorm:"index;size:36" json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
	UpdatedAt       time.Time  `json:"-"`
}

func (t *RecurringTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// RecurringPatch updates a recurring task. ClearCompleted resets LastCompletedAt.
type RecurringPatch struct {
	Title           *string
	LastCompletedAt *time.Time
	ClearCompleted  bool
}

func (p RecurringPatch) Empty() bool {
	return p.Title == nil && p.LastCompletedAt == nil && !p.ClearCompleted
}

func (p RecurringPatch) Apply(t *RecurringTask) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	switch {
	case p.ClearCompleted:
		t.LastCompletedAt = nil
	case p.LastCompletedAt != nil:
		at := *p.LastCompletedAt
		t.LastCompletedAt = &at
	}
}
