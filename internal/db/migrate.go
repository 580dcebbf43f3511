package db

import (
	"fmt"

	"github.com/zulandar/shiftline/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates all Shiftline tables.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.ShiftSlot{},
		&models.ShiftRequest{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
