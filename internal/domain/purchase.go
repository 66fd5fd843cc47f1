package domain

import "time"

// Purchase Model. Immutable record of one buy: written once by the purchase
// flow, never updated or deleted afterwards.
type Purchase struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                        // Primary key
	UserID     uint      `gorm:"index;not null" json:"user_id"`               // Buyer
	SweetID    uint      `gorm:"index;not null" json:"sweet_id"`              // Purchased sweet
	Quantity   int64     `gorm:"not null;check:quantity > 0" json:"quantity"` // Units bought
	TotalCents int64     `gorm:"not null" json:"total_cents"`                 // Price charged, snapshot at purchase time
	CreatedAt  time.Time `json:"created_at"`
}
