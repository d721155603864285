package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"duty-planner/internal/model"
)

// NewDB opens the planner's data store and runs migrations.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "duty_planner.db"
	}
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Profile{}, &model.Task{}, &model.RecurringTask{}, &model.Notification{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return db, nil
}

// NewDeviceDB opens the local key-value store that survives restarts of a client.
func NewDeviceDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "device.db"
	}
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Preference{}); err != nil {
		return nil, fmt.Errorf("migrate device db: %w", err)
	}
	return db, nil
}

func open(dsn string) (*gorm.DB, error) {
	if err := makeParentDir(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// sqliteFile returns the file behind dsn, or "" for in-memory databases.
func sqliteFile(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == ":memory:" || path == "" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}

func makeParentDir(dsn string) error {
	file := sqliteFile(dsn)
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
