package models

import (
	"encoding/json"
	"time"
)

// QueueDocument is the single kv row backing the offline queue. The whole
// entry list is stored as one JSON document under a fixed key and rewritten
// on every mutation.
type QueueDocument struct {
	Key       string          `gorm:"column:key;primaryKey"`
	Value     json.RawMessage `gorm:"column:value;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default gorm pluralization.
func (QueueDocument) TableName() string {
	return "queue_documents"
}
