package models

import (
	"fmt"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitializeTestDb opens a private in-memory sqlite database with the schema migrated.
func InitializeTestDb() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())

	db, err := gorm.Open(sqliteEncrypt.Open(dsn), &gorm.Config{Logger: silentLogger()})
	if err != nil {
		return nil, err
	}

	// A single connection keeps the in-memory database alive and avoids
	// shared-cache table locks between concurrent connections.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}
