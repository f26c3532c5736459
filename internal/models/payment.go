package models

import (
	"strconv"
	"strings"
	"time"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Payment records a checkout session. SessionID is unique so webhook delivery
// and the frontend confirm path cannot double-book a purchase.
type Payment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Amount     float64   `gorm:"not null" json:"amount"`
	Currency   string    `gorm:"size:8;default:ils" json:"currency"`
	Status     string    `gorm:"size:16;not null;default:pending;index" json:"status"`
	SessionID  string    `gorm:"size:255;uniqueIndex" json:"session_id"`
	CoursesRaw string    `gorm:"column:courses;size:512" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SetCourseIDs stores the purchased course IDs in the raw column.
func (p *Payment) SetCourseIDs(ids []uint) {
	if len(ids) == 0 {
		p.CoursesRaw = ""
		return
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	p.CoursesRaw = "|" + strings.Join(parts, "|") + "|"
}

// CourseIDs decodes the purchased course IDs from the raw column.
func (p *Payment) CourseIDs() []uint {
	trimmed := strings.Trim(p.CoursesRaw, "|")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "|")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(v))
	}
	return ids
}
