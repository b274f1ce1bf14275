package models

import "time"

// Document is one OCR markdown page that went through extraction.
type Document struct {
	ID         uint   `gorm:"primaryKey"`
	ReportID   string `gorm:"uniqueIndex:idx_documents_page"`
	Page       int    `gorm:"uniqueIndex:idx_documents_page"`
	Title      string
	SourcePath string
	Checksum   string `gorm:"index:idx_documents_page_checksum"`
	TableCount int
	CSVPath    string
	Tables     []ExtractedTable `json:",omitempty"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
