package models

import (
	"encoding/json"
	"time"
)

type ExtractedTable struct {
	ID              uint `gorm:"primaryKey"`
	DocumentID      uint `gorm:"index"`
	Index           int  `gorm:"column:table_index"`
	Caption         string
	Stage           string           `gorm:"index"` // empty when the table is not a loss stage schedule
	Cells           json.RawMessage  `gorm:"type:jsonb"`
	Reconciliations []Reconciliation `json:",omitempty"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
