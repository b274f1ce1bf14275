package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reconciliation is the closing balance check of one loss stage row.
type Reconciliation struct {
	ID               uint   `gorm:"primaryKey"`
	ExtractedTableID uint   `gorm:"index"`
	ReportID         string `gorm:"index"`
	Stage            string `gorm:"index"`
	Category         string
	Total            bool
	Opening          decimal.Decimal `gorm:"type:numeric"`
	Movements        decimal.Decimal `gorm:"type:numeric"`
	Closing          decimal.Decimal `gorm:"type:numeric"`
	Expected         decimal.Decimal `gorm:"type:numeric"`
	Difference       decimal.Decimal `gorm:"type:numeric"`
	Balanced         bool            `gorm:"index"`
	Unparseable      bool
	Problems         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
