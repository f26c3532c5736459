package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

// ChatLog is the append-only record of one tutoring turn. Entries are
// created once per turn and never mutated afterwards.
type ChatLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index:idx_chat_log_user_created" json:"user_id"`
	Role         string         `gorm:"size:32;default:student" json:"role"`
	Message      string         `gorm:"type:text;not null" json:"message"`
	Answer       string         `gorm:"type:text" json:"answer"`
	InScope      bool           `gorm:"default:true" json:"in_scope"`
	Citations    datatypes.JSON `gorm:"type:json" json:"-"`
	Model        string         `gorm:"size:128" json:"model"`
	TokensApprox int            `json:"tokens_approx"`
	DurationMs   int64          `json:"duration_ms"`
	Degraded     bool           `json:"degraded"`
	CreatedAt    time.Time      `gorm:"index:idx_chat_log_user_created" json:"created_at"`
}

// SetCitations serialises the citation list into the JSON storage column.
func (l *ChatLog) SetCitations(citations []ai.Citation) error {
	if citations == nil {
		citations = []ai.Citation{}
	}
	data, err := json.Marshal(citations)
	if err != nil {
		return err
	}
	l.Citations = datatypes.JSON(data)
	return nil
}

// CitationList deserialises the stored citations.
func (l ChatLog) CitationList() []ai.Citation {
	if len(l.Citations) == 0 {
		return []ai.Citation{}
	}

	var citations []ai.Citation
	if err := json.Unmarshal(l.Citations, &citations); err != nil {
		return []ai.Citation{}
	}
	return citations
}
