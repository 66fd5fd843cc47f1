package domain

import "time"

// Role tags. The set is closed: there is no third tier.
const (
	RoleUser  = "user"  // Granted automatically at registration
	RoleAdmin = "admin" // Provisioned out of band, no self-service promotion path
)

// RoleGrant Model. At most one grant per (user, role) pair.
type RoleGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                              // Primary key
	UserID    uint      `gorm:"uniqueIndex:idx_user_role;not null" json:"user_id"` // Foreign key to User
	Role      string    `gorm:"uniqueIndex:idx_user_role;not null" json:"role"`    // Role tag: user or admin
	CreatedAt time.Time `json:"created_at"`
}
