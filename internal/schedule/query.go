package schedule

import (
	"fmt"
	"time"

	"github.com/zulandar/shiftline/internal/models"
	"gorm.io/gorm"
)

// statusRank orders slot statuses for calendar merging:
// APPROVED > PENDING_MANAGER > DRAFT > CANCELED. Canceled is the
// default/absence marker; statuses outside the documented list rank
// with it.
var statusRank = map[string]int{
	models.SlotApproved:       3,
	models.SlotPendingManager: 2,
	models.SlotDraft:          1,
	models.SlotCanceled:       0,
}

// mergeStatus picks the more authoritative of two statuses.
func mergeStatus(a, b string) string {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}

// monthRange returns [first day, first day of next month) for queries.
func monthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// UserMonthStatus returns day-of-month → most authoritative slot
// status for one user's calendar rendering. Days with no slots are
// absent from the map.
func UserMonthStatus(db *gorm.DB, userID int64, year int, month time.Month, loc *time.Location) (map[int]string, error) {
	start, end := monthRange(year, month, loc)

	var slots []models.ShiftSlot
	if err := db.Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("schedule: user month status: %w", err)
	}
	return foldByDay(slots), nil
}

// LocationMonthStatus returns day-of-month → merged slot status across
// all users at a location, combined by the documented priority order.
func LocationMonthStatus(db *gorm.DB, locationID string, year int, month time.Month, loc *time.Location) (map[int]string, error) {
	start, end := monthRange(year, month, loc)

	var slots []models.ShiftSlot
	if err := db.Where("location_id = ? AND date >= ? AND date < ?", locationID, start, end).
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("schedule: location month status: %w", err)
	}
	return foldByDay(slots), nil
}

// foldByDay merges per-slot statuses into a day map.
func foldByDay(slots []models.ShiftSlot) map[int]string {
	days := make(map[int]string)
	for _, slot := range slots {
		day := slot.Date.Day()
		if cur, ok := days[day]; ok {
			days[day] = mergeStatus(cur, slot.Status)
		} else {
			days[day] = slot.Status
		}
	}
	return days
}

// DaySlots returns all slots at a location on one date, ordered by
// start time ascending, stable on tie by id.
func DaySlots(db *gorm.DB, locationID string, date time.Time) ([]models.ShiftSlot, error) {
	var slots []models.ShiftSlot
	if err := db.Where("location_id = ? AND date = ?", locationID, date).
		Order("start_min ASC, id ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("schedule: day slots: %w", err)
	}
	return slots, nil
}

// FreeSellers returns approved sellers with no live slot conflicting
// with the given window on the given date. Canceled slots don't make a
// user busy.
func FreeSellers(db *gorm.DB, date time.Time, startMin, endMin int) ([]models.User, error) {
	var sellers []models.User
	if err := db.Where("role IN ? AND status = ?",
		[]string{models.RoleSeller, models.RoleSenior}, models.AccountApproved).
		Order("id ASC").
		Find(&sellers).Error; err != nil {
		return nil, fmt.Errorf("schedule: free sellers: load users: %w", err)
	}

	var slots []models.ShiftSlot
	if err := db.Where("date = ? AND status <> ?", date, models.SlotCanceled).
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("schedule: free sellers: load slots: %w", err)
	}

	byUser := make(map[int64][]models.ShiftSlot)
	for _, slot := range slots {
		byUser[slot.UserID] = append(byUser[slot.UserID], slot)
	}

	window := models.ShiftSlot{Date: date, StartMin: startMin, EndMin: endMin}
	var free []models.User
	for _, u := range sellers {
		if !ConflictsWith(byUser[u.ID], window) {
			free = append(free, u)
		}
	}
	return free, nil
}
