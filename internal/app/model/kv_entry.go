package model

import "time"

// KVEntry is one row of the SQL-backed key-value store.
type KVEntry struct {
	StorageKey string    `gorm:"primaryKey;size:255" json:"key"`
	Value      string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
