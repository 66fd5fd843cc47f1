package domain

import "time"

// Profile Model. Exactly one row per user, created inside the same
// transaction as the user itself (see api.RegisterHandler).
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                // Primary key
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"` // Foreign key to User, one profile per user
	Email       string    `gorm:"not null" json:"email"`               // Copied from the user at registration
	DisplayName string    `json:"display_name"`                        // Defaults to empty string when not supplied
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"` // Refreshed on every update, caller cannot override
}
