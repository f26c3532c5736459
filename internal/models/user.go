package models

import "time"

// User mirrors the identities issued by the auth system; only the fields the
// messaging surface needs to display are kept here.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:160;not null" json:"name"`
	Email     string    `gorm:"size:160;uniqueIndex" json:"email"`
	Role      string    `gorm:"size:32;not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
