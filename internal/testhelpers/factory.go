package testhelpers

import (
	"fmt"

	"github.com/onsi/ginkgo/v2"
	g "github.com/onsi/gomega"
	"gorm.io/gorm"

	"eclreports/internal/config"
	"eclreports/internal/db"
)

// OpenTestDB connects to DATABASE_URL, migrates and empties every table.
// The running test is skipped when no database is reachable.
func OpenTestDB() (*gorm.DB, *config.Config) {
	cfg, err := config.LoadConfig()
	g.Expect(err).NotTo(g.HaveOccurred())

	if cfg.DatabaseURL == "" {
		ginkgo.Skip("database not available: DATABASE_URL is not set")
	}
	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		ginkgo.Skip("database not available: " + err.Error())
	}
	if sqlDB, err := conn.DB(); err != nil || sqlDB.Ping() != nil {
		ginkgo.Skip("database not available")
	}

	g.Expect(db.Migrate(conn)).To(g.Succeed())
	CleanupDB(conn)
	return conn, cfg
}

func CleanupDB(db *gorm.DB) {
	var tables []string

	err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error
	g.Expect(err).NotTo(g.HaveOccurred())

	for _, table := range tables {
		if table == "spatial_ref_sys" || table == "schema_migrations" {
			continue
		}

		query := fmt.Sprintf("TRUNCATE TABLE \"%s\" RESTART IDENTITY CASCADE", table)
		err := db.Exec(query).Error
		g.Expect(err).NotTo(g.HaveOccurred(), "Failed to truncate table: "+table)
	}
}
