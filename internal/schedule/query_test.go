package schedule

import (
	"errors"
	"testing"
	"time"

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
	if err := db.AutoMigrate(&models.User{}, &models.ShiftSlot{}, &models.ShiftRequest{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func mustSlot(t *testing.T, db *gorm.DB, slot models.ShiftSlot) models.ShiftSlot {
	t.Helper()
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot
}

func day(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

func TestPlanSlot_Success(t *testing.T) {
	db := openTestDB(t)

	slot, err := PlanSlot(db, PlanOpts{
		UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 570, EndMin: 1080,
	})
	if err != nil {
		t.Fatalf("PlanSlot: %v", err)
	}
	if slot.ID == 0 {
		t.Fatal("slot ID not set")
	}
	if slot.Status != models.SlotDraft {
		t.Errorf("Status = %q, want draft", slot.Status)
	}
	if slot.Source != "plan" {
		t.Errorf("Source = %q, want plan", slot.Source)
	}
}

func TestPlanSlot_Conflict(t *testing.T) {
	db := openTestDB(t)
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 720, Status: models.SlotApproved})

	_, err := PlanSlot(db, PlanOpts{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 600, EndMin: 780})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// Same window on another date is fine.
	if _, err := PlanSlot(db, PlanOpts{UserID: 1, LocationID: "loc-1", Date: day(6), StartMin: 600, EndMin: 780}); err != nil {
		t.Errorf("different date: %v", err)
	}

	// Non-overlapping window on the same date is fine.
	if _, err := PlanSlot(db, PlanOpts{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 720, EndMin: 780}); err != nil {
		t.Errorf("adjacent window: %v", err)
	}
}

func TestPlanSlot_CanceledSlotDoesNotBlock(t *testing.T) {
	db := openTestDB(t)
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 720, Status: models.SlotCanceled})

	if _, err := PlanSlot(db, PlanOpts{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 600, EndMin: 780}); err != nil {
		t.Errorf("canceled slot should not block planning: %v", err)
	}
}

func TestPlanSlot_EndBeforeStart(t *testing.T) {
	db := openTestDB(t)
	if _, err := PlanSlot(db, PlanOpts{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 600, EndMin: 600}); err == nil {
		t.Fatal("expected error for zero-length slot")
	}
}

func TestUserMonthStatus_Priority(t *testing.T) {
	db := openTestDB(t)
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 720, Status: models.SlotDraft})
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 720, EndMin: 900, Status: models.SlotApproved})
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(7), StartMin: 540, EndMin: 720, Status: models.SlotCanceled})
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(7), StartMin: 720, EndMin: 900, Status: models.SlotPendingManager})
	// Another user's slot must not leak into user 1's calendar.
	mustSlot(t, db, models.ShiftSlot{UserID: 2, LocationID: "loc-1", Date: day(9), StartMin: 540, EndMin: 720, Status: models.SlotApproved})

	days, err := UserMonthStatus(db, 1, 2025, time.July, time.UTC)
	if err != nil {
		t.Fatalf("UserMonthStatus: %v", err)
	}
	if days[5] != models.SlotApproved {
		t.Errorf("day 5 = %q, want approved (approved beats draft)", days[5])
	}
	if days[7] != models.SlotPendingManager {
		t.Errorf("day 7 = %q, want pending_manager (beats canceled)", days[7])
	}
	if _, ok := days[9]; ok {
		t.Error("day 9 belongs to another user")
	}
	if _, ok := days[10]; ok {
		t.Error("day 10 has no slots and should be absent")
	}
}

func TestLocationMonthStatus_MergesAcrossUsers(t *testing.T) {
	db := openTestDB(t)
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 720, Status: models.SlotDraft})
	mustSlot(t, db, models.ShiftSlot{UserID: 2, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 720, Status: models.SlotApproved})
	mustSlot(t, db, models.ShiftSlot{UserID: 3, LocationID: "loc-2", Date: day(5), StartMin: 540, EndMin: 720, Status: models.SlotApproved})

	days, err := LocationMonthStatus(db, "loc-1", 2025, time.July, time.UTC)
	if err != nil {
		t.Fatalf("LocationMonthStatus: %v", err)
	}
	if days[5] != models.SlotApproved {
		t.Errorf("day 5 = %q, want approved", days[5])
	}
}

func TestDaySlots_OrderedStableByStart(t *testing.T) {
	db := openTestDB(t)
	a := mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 720, EndMin: 900})
	b := mustSlot(t, db, models.ShiftSlot{UserID: 2, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 720})
	c := mustSlot(t, db, models.ShiftSlot{UserID: 3, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 600})

	slots, err := DaySlots(db, "loc-1", day(5))
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("len = %d, want 3", len(slots))
	}
	// b and c tie on start; insertion (id) order breaks the tie.
	want := []uint{b.ID, c.ID, a.ID}
	for i, id := range want {
		if slots[i].ID != id {
			t.Errorf("slots[%d].ID = %d, want %d", i, slots[i].ID, id)
		}
	}
}

func TestFreeSellers(t *testing.T) {
	db := openTestDB(t)
	users := []models.User{
		{ID: 1, DisplayName: "Anya", Role: models.RoleSeller, Status: models.AccountApproved},
		{ID: 2, DisplayName: "Boris", Role: models.RoleSeller, Status: models.AccountApproved},
		{ID: 3, DisplayName: "Vera", Role: models.RoleSenior, Status: models.AccountApproved},
		{ID: 4, DisplayName: "Gleb", Role: models.RoleSeller, Status: models.AccountPending},
		{ID: 5, DisplayName: "Dina", Role: models.RoleManager, Status: models.AccountApproved},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	// Anya works 9:00–18:00 on the 5th; Vera has a canceled slot there.
	mustSlot(t, db, models.ShiftSlot{UserID: 1, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 1080, Status: models.SlotApproved})
	mustSlot(t, db, models.ShiftSlot{UserID: 3, LocationID: "loc-1", Date: day(5), StartMin: 540, EndMin: 1080, Status: models.SlotCanceled})

	free, err := FreeSellers(db, day(5), 600, 720)
	if err != nil {
		t.Fatalf("FreeSellers: %v", err)
	}

	got := make(map[int64]bool)
	for _, u := range free {
		got[u.ID] = true
	}
	if got[1] {
		t.Error("Anya is busy and should not be free")
	}
	if !got[2] || !got[3] {
		t.Errorf("Boris and Vera should be free, got %v", got)
	}
	if got[4] {
		t.Error("pending accounts are not in the pool")
	}
	if got[5] {
		t.Error("managers are not in the seller pool")
	}
}
