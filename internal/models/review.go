package models

import (
	"encoding/json"
	"time"
)

// Review is an advisory suggestion for an unbalanced row. It is never applied.
type Review struct {
	ID               uint `gorm:"primaryKey"`
	ReconciliationID uint `gorm:"index"`
	Model            string
	UsedTokens       int64
	Suggestion       json.RawMessage `gorm:"type:jsonb"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
