package schedule

import (
	"errors"
	"fmt"

	"github.com/zulandar/shiftline/internal/clock"
	"github.com/zulandar/shiftline/internal/models"
	"gorm.io/gorm"
	"time"
)

// ErrConflict is returned when a candidate slot overlaps an existing
// assignment for the same user on the same date.
var ErrConflict = errors.New("schedule: slot conflicts with an existing assignment")

// PlanOpts holds parameters for creating a monthly-plan slot.
type PlanOpts struct {
	UserID     int64
	LocationID string
	Date       time.Time
	StartMin   int
	EndMin     int
	Status     string // defaults to draft
	Source     string // defaults to "plan"
}

// PlanSlot creates a slot directly (the manager planning path). The
// candidate is rejected with ErrConflict if it overlaps any live slot
// of the same user on the same date; canceled slots don't count.
func PlanSlot(db *gorm.DB, opts PlanOpts) (*models.ShiftSlot, error) {
	if opts.UserID == 0 {
		return nil, fmt.Errorf("schedule: plan: user is required")
	}
	if opts.LocationID == "" {
		return nil, fmt.Errorf("schedule: plan: location is required")
	}
	if opts.EndMin <= opts.StartMin {
		return nil, fmt.Errorf("schedule: plan: end %d must be after start %d", opts.EndMin, opts.StartMin)
	}
	if opts.Status == "" {
		opts.Status = models.SlotDraft
	}
	if opts.Source == "" {
		opts.Source = "plan"
	}

	date := clock.Midnight(opts.Date)

	var existing []models.ShiftSlot
	if err := db.Where("user_id = ? AND date = ? AND status <> ?",
		opts.UserID, date, models.SlotCanceled).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("schedule: plan: load slots: %w", err)
	}

	candidate := models.ShiftSlot{
		UserID:     opts.UserID,
		LocationID: opts.LocationID,
		Date:       date,
		StartMin:   opts.StartMin,
		EndMin:     opts.EndMin,
		Status:     opts.Status,
		Source:     opts.Source,
	}
	if ConflictsWith(existing, candidate) {
		return nil, ErrConflict
	}

	if err := db.Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("schedule: plan: create slot: %w", err)
	}
	return &candidate, nil
}
