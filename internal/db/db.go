package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"eclreports/internal/models"
)

func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// legacyIndexes were replaced by the unique (report_id, page) index; a page
// may share its content with another page.
var legacyIndexes = []string{"idx_documents_checksum", "idx_documents_report_page"}

// Migrate creates or updates the tables of every model.
func Migrate(db *gorm.DB) error {
	m := db.Migrator()
	for _, name := range legacyIndexes {
		if m.HasIndex(&models.Document{}, name) {
			if err := m.DropIndex(&models.Document{}, name); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", name, err)
			}
		}
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
