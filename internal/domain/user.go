package domain

// User Model (the authenticated identity)
type User struct {
	ID       uint        `gorm:"primaryKey" json:"id"`                                         // Primary key
	Email    string      `gorm:"unique;not null" json:"email"`                                 // Unique login email
	Password string      `gorm:"not null" json:"-"`                                            // Hashed password, never serialized
	Profile  Profile     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile"` // One-to-one profile, removed with the user
	Roles    []RoleGrant `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"roles"`   // Role grants, removed with the user
}
