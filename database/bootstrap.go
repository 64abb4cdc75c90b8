// database/bootstrap.go
package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite" // CGO-free driver
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"daytrip/entities"
)

func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.Place{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	// category filters compare lower(category) against trimmed keys
	if err := db.Exec(`UPDATE places SET category = trim(category) WHERE category <> trim(category)`).Error; err != nil {
		return fmt.Errorf("normalize categories: %w", err)
	}
	return nil
}
