package model

import "time"

// Preference is one key/value pair in the local device store.
type Preference struct {
	Key       string `gorm:"primaryKey;column:pref_key"`
	Value     string
	UpdatedAt time.Time
}
