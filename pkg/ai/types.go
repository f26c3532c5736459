package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Excerpt is a bounded slice of a lesson's text carrying its provenance.
type Excerpt struct {
	LessonID    uint
	CourseID    uint
	LessonTitle string
	CourseTitle string
	Text        string
}

// Citation is a back-reference from an answer to the excerpt it was grounded in.
type Citation struct {
	LessonID    uint   `json:"lessonId"`
	CourseID    uint   `json:"courseId"`
	LessonTitle string `json:"lessonTitle"`
	CourseTitle string `json:"courseTitle"`
}

// ChatResult is the normalised outcome of a single tutoring turn. Degraded
// marks apology fallbacks so callers can tell them apart from real answers;
// Detail carries the internal failure reason and is never shown verbatim to
// end users in production.
type ChatResult struct {
	InScope        bool
	Answer         string
	Citations      []Citation
	Model          string
	DurationMs     int64
	TokensApprox   int
	SourceTextHash string
	Degraded       bool
	Detail         string
}

// TextGenerator issues a single synchronous completion request against a
// text-generation endpoint and returns the model's raw text output.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QuestionType enumerates the supported quiz question kinds.
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeTrueFalse   QuestionType = "true_false"
	QuestionTypeFillBlank   QuestionType = "fill_blank"
	QuestionTypeShortAnswer QuestionType = "short_answer"
)

// ValidQuestionType reports whether t is one of the supported kinds.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeFillBlank, QuestionTypeShortAnswer:
		return true
	}
	return false
}

// Answer is the tagged variant behind a question's answer field: true/false
// questions carry a boolean, everything else carries a string.
type Answer struct {
	Text   string
	Bool   bool
	IsBool bool
}

// MarshalJSON serialises the variant to its wire form.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsBool {
		return json.Marshal(a.Bool)
	}
	return json.Marshal(a.Text)
}

// UnmarshalJSON accepts either a JSON boolean or a JSON string.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		a.Bool = b
		a.IsBool = true
		a.Text = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Text = s
		a.IsBool = false
		return nil
	}

	return fmt.Errorf("answer must be a string or a boolean")
}

// Question is a single quiz question as produced by the generator.
type Question struct {
	Type        QuestionType `json:"type"`
	Question    string       `json:"question"`
	Options     []string     `json:"options,omitempty"`
	Answer      Answer       `json:"answer"`
	Explanation string       `json:"explanation,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Language    string       `json:"language,omitempty"`
}

// QuizMetadata describes the generation context echoed back with a quiz.
type QuizMetadata struct {
	Language    string `json:"language"`
	Grade       string `json:"grade"`
	Subject     string `json:"subject"`
	LessonTitle string `json:"lessonTitle"`
	CourseTitle string `json:"courseTitle"`
}

// QuizResult is the validated output of a quiz generation call.
type QuizResult struct {
	Questions    []Question
	Metadata     QuizMetadata
	Model        string
	DurationMs   int64
	TokensApprox int
}

// HashExcerpts produces the content hash of the concatenated excerpt text,
// used by callers for draft reuse and dedup. Pure function of the text.
func HashExcerpts(excerpts []Excerpt) string {
	texts := make([]string, 0, len(excerpts))
	for _, excerpt := range excerpts {
		texts = append(texts, excerpt.Text)
	}
	return HashSourceText(strings.Join(texts, "\n"))
}

// HashSourceText returns the sha256 hex digest of the given source text.
func HashSourceText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func approximateTokens(prompt, answer string) int {
	return (len(prompt) + len(answer) + 2) / 4
}

func citationsFor(excerpts []Excerpt) []Citation {
	if len(excerpts) == 0 {
		return []Citation{}
	}
	first := excerpts[0]
	return []Citation{{
		LessonID:    first.LessonID,
		CourseID:    first.CourseID,
		LessonTitle: first.LessonTitle,
		CourseTitle: first.CourseTitle,
	}}
}
