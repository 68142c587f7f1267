package models

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Daskott/phonebook/server/logger"
	"github.com/Daskott/phonebook/shared"
	"github.com/Daskott/phonebook/utils"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "phonebook.db"

var logg = logger.NewLogger()

// Open connects to the database selected by config.Database.Driver and
// migrates the schema. dbRootDir is only used by the sqlite driver.
func Open(config shared.ServerConfig, dbRootDir string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch config.Database.Driver {
	case "mysql":
		dialector = mysql.Open(config.Mysql.DSN)
	case "sqlite":
		dsn, err := sqliteDSN(config.Sqlite.PassPhrase, dbRootDir)
		if err != nil {
			return nil, errors.Wrap(err, "failed to set sqlite DSN")
		}
		dialector = sqliteEncrypt.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: silentLogger()})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate auto-migrates the db schema
func AutoMigrate(db *gorm.DB) error {
	if db.Dialector.Name() == "sqlite" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return errors.Wrap(err, "enable foreign keys")
		}
	}

	err := db.AutoMigrate(&User{}, &Contact{}, &PhoneNumber{})
	if err != nil {
		return errors.Wrap(err, "auto-migrate")
	}

	logg.Debug("database schema migrated")
	return nil
}

// SqliteFilePath returns the location of the sqlite database under dbRootDir,
// creating the parent directory if needed.
func SqliteFilePath(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func sqliteDSN(passPhrase string, dbRootDir string) (string, error) {
	dbFilePath, err := SqliteFilePath(dbRootDir)
	if err != nil {
		return "", err
	}

	dsn := fmt.Sprintf("file:%v?_foreign_keys=1&_journal_mode=WAL", dbFilePath)
	if passPhrase != "" {
		dsn = fmt.Sprintf("%v&_pragma_key=%s&_pragma_cipher_page_size=4096", dsn, passPhrase)
	}

	return dsn, nil
}

func silentLogger() gormLogger.Interface {
	return gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			LogLevel:                  gormLogger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
