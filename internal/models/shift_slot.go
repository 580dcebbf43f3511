package models

import "time"

// ShiftSlot statuses.
const (
	SlotDraft          = "draft"
	SlotPendingManager = "pending_manager"
	SlotApproved       = "approved"
	SlotCanceled       = "canceled"
	SlotPendingSwap    = "pending_swap"
)

// ShiftSlot assigns one user to one location for a date and time range.
// Start and end are minutes since midnight; end is strictly after start
// (no overnight spanning). Slots are never deleted, only
// status-transitioned, and are mutated only by the request lifecycle
// or direct manager planning.
type ShiftSlot struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	UserID     int64     `gorm:"not null;index:idx_user_date"`
	LocationID string    `gorm:"size:64;not null;index"`
	Date       time.Time `gorm:"type:date;not null;index:idx_user_date"`
	StartMin   int       `gorm:"not null"`
	EndMin     int       `gorm:"not null"`
	Status     string    `gorm:"size:16;default:draft;index"`
	Source     string    `gorm:"size:16"`
	// RequestID links the slot to the request currently mutating it.
	RequestID *uint `gorm:"index"`
	// PrevStatus holds the status to restore when a swap releases the slot.
	PrevStatus string `gorm:"size:16"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
