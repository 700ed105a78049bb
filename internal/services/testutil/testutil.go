// Package testutil provides shared test utilities for integration tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/database/repositories"
)

// TestDB holds the test database and repositories.
type TestDB struct {
	DB            *gorm.DB
	DeviceRepo    *repositories.DeviceRepository
	AnimationRepo *repositories.AnimationRepository
	MappingRepo   *repositories.MappingRepository
	SettingRepo   *repositories.SettingRepository
}

// SetupTestDB creates an in-memory SQLite database for testing.
// It returns a TestDB with all repositories initialized and a cleanup function.
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Device{},
		&models.Animation{},
		&models.Mapping{},
		&models.Setting{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	testDB := &TestDB{
		DB:            db,
		DeviceRepo:    repositories.NewDeviceRepository(db),
		AnimationRepo: repositories.NewAnimationRepository(db),
		MappingRepo:   repositories.NewMappingRepository(db),
		SettingRepo:   repositories.NewSettingRepository(db),
	}

	cleanup := func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}

	return testDB, cleanup
}

// UniqueName generates a unique name for testing so tests don't conflict.
func UniqueName(prefix string) string {
	return prefix + "-" + cuid.New()[:8]
}
