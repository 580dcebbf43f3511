package models

import "time"

// ShiftRequest types.
const (
	RequestCover = "cover"
	RequestSwap  = "swap"
)

// ShiftRequest statuses. Terminal statuses never transition further.
const (
	StatusInitiated  = "initiated"
	StatusWaitPeer   = "wait_peer"
	StatusWaitTM     = "wait_tm"
	StatusApprovedTM = "approved_tm"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusRejectedTM = "rejected_tm"
	StatusCanceled   = "canceled"
	StatusExpired    = "expired"
)

// ShiftRequest is a proposed scheduling change (cover or swap) moving
// through the approval workflow. A swap owns a reference to exactly one
// ShiftSlot; a cover request need not reference a slot.
type ShiftRequest struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Type        string `gorm:"size:8;not null"`
	InitiatorID int64  `gorm:"not null;index"`
	// FromUserID/ToUserID are populated for swaps: "from" is the slot's
	// current owner, "to" is the proposed peer.
	FromUserID *int64
	ToUserID   *int64     `gorm:"index"`
	Date       time.Time  `gorm:"type:date;not null"`
	StartMin   int        `gorm:"not null"`
	EndMin     int        `gorm:"not null"`
	LocationID string     `gorm:"size:64"`
	Status     string     `gorm:"size:16;default:initiated;index"`
	Comment    string     `gorm:"type:text"`
	SlotID     *uint      `gorm:"index"`
	ResolvedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Slot *ShiftSlot `gorm:"foreignKey:SlotID"`
}
