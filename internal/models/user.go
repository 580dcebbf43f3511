package models

import "time"

// User roles.
const (
	RoleSeller  = "seller"
	RoleSenior  = "senior"
	RoleManager = "manager"
)

// User account statuses.
const (
	AccountPending  = "pending"
	AccountApproved = "approved"
	AccountRejected = "rejected"
)

// User is a staff member known to the bot. The chat user ID is the
// primary key; accounts start pending until a manager approves them.
type User struct {
	ID          int64  `gorm:"primaryKey"`
	DisplayName string `gorm:"size:128;not null"`
	Role        string `gorm:"size:16;default:seller"`
	Status      string `gorm:"size:16;default:pending;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
