package models

import "time"

// Message is a direct message between two platform users.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"not null;index" json:"sender_id"`
	RecipientID uint      `gorm:"not null;index:idx_message_recipient_read" json:"recipient_id"`
	Subject     string    `gorm:"size:255" json:"subject"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	Read        bool      `gorm:"index:idx_message_recipient_read;default:false" json:"read"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Sender      *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Recipient   *User     `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}
