package domain

import "time"

// DefaultImageURL is used when an admin creates a sweet without an image.
const DefaultImageURL = "/images/placeholder.png"

// Sweet Model (a catalog product). Prices are fixed-point cents, never floats.
type Sweet struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                                   // Primary key
	Name        string    `gorm:"not null" json:"name"`                                   // Product name
	Category    string    `gorm:"index;not null" json:"category"`                         // Category used for catalog filtering
	PriceCents  int64     `gorm:"not null;check:price_cents >= 0" json:"price_cents"`     // Unit price in cents
	Quantity    int64     `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"` // Units in stock, never negative
	Description string    `json:"description"`                                            // Optional description
	ImageURL    string    `json:"image_url"`                                              // Image reference, placeholder when omitted
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"` // Refreshed on every update, caller cannot override
}
