package service

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

// ContextBuilder ranks a learner's accessible lessons against a free-text
// query and assembles a character-budgeted excerpt list for the prompt.
type ContextBuilder struct {
	MaxLessons      int
	MaxContextChars int
}

// NewContextBuilder constructs a builder with the configured bounds.
func NewContextBuilder(maxLessons, maxContextChars int) ContextBuilder {
	return ContextBuilder{MaxLessons: maxLessons, MaxContextChars: maxContextChars}
}

// Collect ranks lessons by term overlap with the query and converts the top
// ranked ones into excerpts. The combined excerpt text never exceeds the
// configured character budget. An empty result means the query is out of
// scope for this learner.
func (b ContextBuilder) Collect(query string, lessons []models.Lesson, courseTitles map[uint]string) []ai.Excerpt {
	if len(lessons) == 0 || b.MaxLessons <= 0 || b.MaxContextChars <= 0 {
		return nil
	}

	ranked := scoreLessons(queryTerms(query), lessons)

	excerpts := make([]ai.Excerpt, 0, b.MaxLessons)
	remaining := b.MaxContextChars
	for _, lesson := range ranked {
		if len(excerpts) >= b.MaxLessons || remaining <= 0 {
			break
		}
		text := lessonText(lesson)
		if text == "" {
			continue
		}
		if len(text) > remaining {
			text = truncateOnRuneBoundary(text, remaining)
			if text == "" {
				break
			}
		}
		remaining -= len(text)
		excerpts = append(excerpts, ai.Excerpt{
			LessonID:    lesson.ID,
			CourseID:    lesson.CourseID,
			LessonTitle: lesson.Name,
			CourseTitle: courseTitles[lesson.CourseID],
			Text:        text,
		})
	}
	return excerpts
}

// queryTerms tokenizes a query by splitting on anything outside ASCII
// alphanumerics and the Arabic block, dropping tokens of three characters or
// fewer. No stemming and no stopword list beyond the length cutoff.
func queryTerms(query string) []string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !isTermRune(r)
	})
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) <= 3 {
			continue
		}
		terms = append(terms, strings.ToLower(token))
	}
	return terms
}

func isTermRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 0x0600 && r <= 0x06FF:
		return true
	}
	return false
}

// scoreLessons orders lessons by descending term overlap. Each term counts
// once per lesson regardless of how often it occurs. The sort is stable so
// ties keep their original order.
func scoreLessons(terms []string, lessons []models.Lesson) []models.Lesson {
	type scored struct {
		lesson models.Lesson
		score  int
	}
	entries := make([]scored, 0, len(lessons))
	for _, lesson := range lessons {
		haystack := strings.ToLower(lesson.Name + " " + lesson.Description + " " + lesson.ContentText)
		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		entries = append(entries, scored{lesson: lesson, score: score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
	ranked := make([]models.Lesson, 0, len(entries))
	for _, entry := range entries {
		ranked = append(ranked, entry.lesson)
	}
	return ranked
}

// truncateOnRuneBoundary cuts text to at most limit bytes without splitting a
// multibyte rune.
func truncateOnRuneBoundary(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

// lessonText concatenates the lesson's text fields in priority order.
func lessonText(lesson models.Lesson) string {
	parts := make([]string, 0, 2)
	if body := strings.TrimSpace(lesson.ContentText); body != "" {
		parts = append(parts, body)
	}
	if desc := strings.TrimSpace(lesson.Description); desc != "" {
		parts = append(parts, desc)
	}
	return strings.Join(parts, "\n")
}
