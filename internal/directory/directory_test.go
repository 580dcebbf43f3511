package directory

import (
	"errors"
	"testing"

	"github.com/zulandar/shiftline/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestFindOrCreate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	first, err := FindOrCreate(db, 7, "Anya")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if first.Role != models.RoleSeller || first.Status != models.AccountPending {
		t.Errorf("new user = %+v, want pending seller", first)
	}

	// Second call returns the same account; the display name is not
	// overwritten by later lookups.
	again, err := FindOrCreate(db, 7, "Anya Renamed")
	if err != nil {
		t.Fatalf("second FindOrCreate: %v", err)
	}
	if again.DisplayName != "Anya" {
		t.Errorf("DisplayName = %q, want original Anya", again.DisplayName)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestSetStatus(t *testing.T) {
	db := openTestDB(t)
	FindOrCreate(db, 7, "Anya")

	if err := SetStatus(db, 7, models.AccountApproved); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	user, _ := Get(db, 7)
	if user.Status != models.AccountApproved {
		t.Errorf("Status = %q, want approved", user.Status)
	}

	if err := SetStatus(db, 7, "frozen"); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := SetStatus(db, 999, models.AccountApproved); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetRole(t *testing.T) {
	db := openTestDB(t)
	FindOrCreate(db, 7, "Anya")

	if err := SetRole(db, 7, models.RoleManager); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	user, _ := Get(db, 7)
	if user.Role != models.RoleManager {
		t.Errorf("Role = %q, want manager", user.Role)
	}

	if err := SetRole(db, 7, "astronaut"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestGet_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := Get(db, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
