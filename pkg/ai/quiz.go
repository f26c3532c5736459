package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidQuizOutput marks model output that does not satisfy the quiz
// shape contract. Callers treat it as a hard failure.
var ErrInvalidQuizOutput = errors.New("quiz validation failed")

type generatedQuestionPayload struct {
	Type          string          `json:"type"`
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	Answer        json.RawMessage `json:"answer"`
	CorrectAnswer string          `json:"correctAnswer"`
	Explanation   string          `json:"explanation"`
	Tags          []string        `json:"tags"`
	Language      string          `json:"language"`
}

type generatedAnswerOption struct {
	Text string `json:"text"`
}

type quizPayload struct {
	Questions []generatedQuestionPayload `json:"questions"`
	Metadata  *QuizMetadata              `json:"metadata"`

	// Single-question shape some models fall back to despite the template.
	Question string                  `json:"question"`
	Answers  []generatedAnswerOption `json:"answers"`
}

// GenerateQuiz builds the quiz prompt, runs the model and maps the extracted
// JSON into validated questions. Unlike the chat path, every failure here is
// a hard error: a malformed quiz must never be persisted.
func (c *Client) GenerateQuiz(ctx context.Context, input QuizPromptInput) (QuizResult, error) {
	prompt := BuildQuizPrompt(input)
	started := time.Now()

	text, err := c.Generate(ctx, prompt)
	if err != nil {
		return QuizResult{}, fmt.Errorf("quiz generation: %w", err)
	}

	questions, metadata, err := ParseQuizOutput(text)
	if err != nil {
		return QuizResult{}, err
	}

	if metadata == nil {
		metadata = &QuizMetadata{
			Language:    input.Language,
			Grade:       input.Grade,
			Subject:     input.Subject,
			LessonTitle: input.LessonTitle,
			CourseTitle: input.CourseTitle,
		}
	}

	return QuizResult{
		Questions:    questions,
		Metadata:     *metadata,
		Model:        c.model,
		DurationMs:   time.Since(started).Milliseconds(),
		TokensApprox: approximateTokens(prompt, text),
	}, nil
}

// TextQuizGenerator adapts any TextGenerator into a quiz generator. It lets
// alternate completion providers reuse the prompt template and output parsing.
type TextQuizGenerator struct {
	Generator TextGenerator
	ModelName string
}

func (g TextQuizGenerator) GenerateQuiz(ctx context.Context, input QuizPromptInput) (QuizResult, error) {
	prompt := BuildQuizPrompt(input)
	started := time.Now()

	text, err := g.Generator.Generate(ctx, prompt)
	if err != nil {
		return QuizResult{}, fmt.Errorf("quiz generation: %w", err)
	}

	questions, metadata, err := ParseQuizOutput(text)
	if err != nil {
		return QuizResult{}, err
	}
	if metadata == nil {
		metadata = &QuizMetadata{
			Language:    input.Language,
			Grade:       input.Grade,
			Subject:     input.Subject,
			LessonTitle: input.LessonTitle,
			CourseTitle: input.CourseTitle,
		}
	}

	return QuizResult{
		Questions:    questions,
		Metadata:     *metadata,
		Model:        g.ModelName,
		DurationMs:   time.Since(started).Milliseconds(),
		TokensApprox: approximateTokens(prompt, text),
	}, nil
}

// ParseQuizOutput extracts and validates the quiz object embedded in raw
// model text. Exposed separately so the mapping logic is testable without a
// live endpoint.
func ParseQuizOutput(text string) ([]Question, *QuizMetadata, error) {
	object, err := ExtractJSONObject(text)
	if err != nil {
		return nil, nil, fmt.Errorf("could not extract quiz JSON from model output: %w", err)
	}

	var payload quizPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return nil, nil, fmt.Errorf("could not parse quiz JSON from model output: %w", err)
	}

	if len(payload.Questions) == 0 && payload.Question != "" && len(payload.Answers) > 0 {
		payload = mapSingleQuestionPayload(payload)
	}

	if len(payload.Questions) == 0 {
		return nil, nil, fmt.Errorf("%w: questions must be a non-empty array", ErrInvalidQuizOutput)
	}

	questions := make([]Question, 0, len(payload.Questions))
	for i, raw := range payload.Questions {
		question, err := mapQuestion(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: question #%d: %v", ErrInvalidQuizOutput, i+1, err)
		}
		questions = append(questions, question)
	}

	return questions, payload.Metadata, nil
}

func mapSingleQuestionPayload(payload quizPayload) quizPayload {
	options := make([]string, 0, 4)
	for _, answer := range payload.Answers {
		trimmed := strings.TrimSpace(answer.Text)
		if trimmed == "" {
			continue
		}
		options = append(options, trimmed)
		if len(options) == 4 {
			break
		}
	}

	correct := ""
	if len(options) > 0 {
		correct = options[0]
	}

	return quizPayload{
		Questions: []generatedQuestionPayload{{
			Type:          string(QuestionTypeMCQ),
			Question:      strings.TrimSpace(payload.Question),
			Options:       options,
			CorrectAnswer: correct,
		}},
		Metadata: payload.Metadata,
	}
}

func mapQuestion(raw generatedQuestionPayload) (Question, error) {
	questionType := QuestionType(strings.TrimSpace(strings.ToLower(raw.Type)))
	if questionType == "" {
		questionType = QuestionTypeMCQ
	}
	if !ValidQuestionType(questionType) {
		return Question{}, fmt.Errorf("unsupported type %q", raw.Type)
	}

	text := strings.TrimSpace(raw.Question)
	if text == "" {
		return Question{}, fmt.Errorf("missing question text")
	}

	answer, err := mapAnswer(raw)
	if err != nil {
		return Question{}, err
	}

	question := Question{
		Type:        questionType,
		Question:    text,
		Options:     trimOptions(raw.Options),
		Answer:      answer,
		Explanation: strings.TrimSpace(raw.Explanation),
		Tags:        raw.Tags,
		Language:    strings.TrimSpace(raw.Language),
	}

	if err := ValidateQuestion(question); err != nil {
		return Question{}, err
	}

	return question, nil
}

func mapAnswer(raw generatedQuestionPayload) (Answer, error) {
	if len(raw.Answer) > 0 {
		var answer Answer
		if err := json.Unmarshal(raw.Answer, &answer); err != nil {
			return Answer{}, err
		}
		answer.Text = strings.TrimSpace(answer.Text)
		return answer, nil
	}

	if correct := strings.TrimSpace(raw.CorrectAnswer); correct != "" {
		return Answer{Text: correct}, nil
	}

	return Answer{}, fmt.Errorf("missing answer")
}

// ValidateQuestion enforces the per-type answer rules: mcq answers must match
// one of at least two options, true/false answers must be booleans, and the
// free-text types need a non-empty answer string.
func ValidateQuestion(q Question) error {
	switch q.Type {
	case QuestionTypeMCQ:
		if len(q.Options) < 2 {
			return fmt.Errorf("mcq requires an options array with at least 2 entries")
		}
		if q.Answer.IsBool {
			return fmt.Errorf("mcq answer must be a string")
		}
		if q.Answer.Text == "" {
			return fmt.Errorf("mcq answer must not be empty")
		}
		for _, option := range q.Options {
			if option == q.Answer.Text {
				return nil
			}
		}
		return fmt.Errorf("mcq answer %q does not match any option", q.Answer.Text)
	case QuestionTypeTrueFalse:
		if !q.Answer.IsBool {
			return fmt.Errorf("true_false answer must be a boolean")
		}
		return nil
	case QuestionTypeFillBlank, QuestionTypeShortAnswer:
		if q.Answer.IsBool || q.Answer.Text == "" {
			return fmt.Errorf("%s answer must be a non-empty string", q.Type)
		}
		return nil
	default:
		return fmt.Errorf("unsupported type %q", q.Type)
	}
}

// ValidateQuestions applies ValidateQuestion across a question list and
// rejects empty lists. Used before any quiz mutation is persisted.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: questions must be a non-empty array", ErrInvalidQuizOutput)
	}
	for i, question := range questions {
		if strings.TrimSpace(question.Question) == "" {
			return fmt.Errorf("%w: question #%d: missing question text", ErrInvalidQuizOutput, i+1)
		}
		if err := ValidateQuestion(question); err != nil {
			return fmt.Errorf("%w: question #%d: %v", ErrInvalidQuizOutput, i+1, err)
		}
	}
	return nil
}

func trimOptions(options []string) []string {
	cleaned := make([]string, 0, len(options))
	for _, option := range options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}
