package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

// Quiz statuses. Publishing a quiz with zero questions is rejected at the
// service layer.
const (
	QuizStatusDraft     = "draft"
	QuizStatusPublished = "published"
)

// Quiz stores a generated or hand-edited quiz owned by a teacher.
type Quiz struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CourseID       uint           `gorm:"not null;index" json:"course_id"`
	LessonID       uint           `gorm:"not null;index:idx_quiz_lesson_hash" json:"lesson_id"`
	TeacherID      uint           `gorm:"not null;index" json:"teacher_id"`
	Title          string         `gorm:"size:255" json:"title"`
	Difficulty     string         `gorm:"size:16;default:medium" json:"difficulty"`
	Language       string         `gorm:"size:16;default:ar" json:"language"`
	AIGenerated    bool           `json:"ai_generated"`
	SourceTextHash string         `gorm:"size:64;index:idx_quiz_lesson_hash" json:"source_text_hash"`
	Status         string         `gorm:"size:16;not null;default:draft" json:"status"`
	Questions      datatypes.JSON `gorm:"type:json" json:"-"`
	TagsRaw        string         `gorm:"column:tags;type:text" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SetQuestions serialises the question list into the JSON storage column.
func (q *Quiz) SetQuestions(questions []ai.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	q.Questions = datatypes.JSON(data)
	return nil
}

// QuestionList deserialises the stored questions.
func (q Quiz) QuestionList() []ai.Question {
	if len(q.Questions) == 0 {
		return []ai.Question{}
	}

	var questions []ai.Question
	if err := json.Unmarshal(q.Questions, &questions); err != nil {
		return []ai.Question{}
	}
	return questions
}

// SetTags stores tags in the pipe-delimited column format used for filtering.
func (q *Quiz) SetTags(tags []string) {
	q.TagsRaw = encodeTags(tags)
}

// TagList returns the decoded tag list.
func (q Quiz) TagList() []string {
	return decodeTags(q.TagsRaw)
}
