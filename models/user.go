package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a customer account. Customers create orders and may also run
// sessions themselves, in which case their email identifies the applicant.
type User struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"` // Hashed password (excluded from JSON)
	FullName  string         `gorm:"size:255" json:"full_name,omitempty"`
	Role      string         `gorm:"default:'customer'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Orders []Order `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// RevokedToken blacklists an access token id until it would have expired anyway.
type RevokedToken struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TokenID   string    `gorm:"uniqueIndex;not null" json:"token_id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *RevokedToken) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
