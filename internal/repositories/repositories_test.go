package repositories

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/SL1dee36/Connect/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a throwaway SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "connect_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.FriendRequest{},
		&models.Friendship{},
		&models.Message{},
		&models.Post{},
	)
	if err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// createTestUser inserts a minimal user row and returns it
func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:        username,
		Password:        "hash",
		Email:           fmt.Sprintf("%s@example.com", username),
		Role:            models.RoleUser,
		MessageSettings: models.MessageSettingsFriends,
		Confirmed:       true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}
