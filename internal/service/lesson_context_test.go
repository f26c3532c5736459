package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tawjihi-go-api/internal/models"
)

func TestQueryTermsDropsShortTokensAndLowercases(t *testing.T) {
	terms := queryTerms("What IS the Photosynthesis, eh?")
	require.Equal(t, []string{"what", "photosynthesis"}, terms)
}

func TestQueryTermsKeepsArabicTokens(t *testing.T) {
	// U+061F (the Arabic question mark) sits inside the 0600-06FF block, so
	// it stays attached to the final token instead of splitting it.
	terms := queryTerms("ما هو التمثيل الضوئي؟")
	require.Equal(t, []string{"التمثيل", "الضوئي؟"}, terms)
}

func TestScoreLessonsIsCaseInsensitiveAndStable(t *testing.T) {
	lessons := []models.Lesson{
		{ID: 1, Name: "Intro", Description: "nothing relevant"},
		{ID: 2, Name: "Sorting", ContentText: "The ALGORITHM, explained with examples."},
		{ID: 3, Name: "Else", Description: "also nothing"},
	}

	ranked := scoreLessons([]string{"algorithm"}, lessons)
	require.Equal(t, uint(2), ranked[0].ID)
	require.Equal(t, uint(1), ranked[1].ID, "ties keep original order")
	require.Equal(t, uint(3), ranked[2].ID)
}

func TestCollectRespectsBudgetAndLessonCount(t *testing.T) {
	builder := NewContextBuilder(1, 40)
	lessons := []models.Lesson{
		{ID: 1, CourseID: 5, Name: "Photosynthesis", ContentText: strings.Repeat("photosynthesis details ", 20)},
		{ID: 2, CourseID: 5, Name: "Respiration", ContentText: "breathing"},
	}
	titles := map[uint]string{5: "Biology"}

	excerpts := builder.Collect("photosynthesis", lessons, titles)
	require.Len(t, excerpts, 1)
	require.LessOrEqual(t, len(excerpts[0].Text), 40)
	require.Equal(t, uint(1), excerpts[0].LessonID)
	require.Equal(t, "Biology", excerpts[0].CourseTitle)
}

func TestCollectZeroBudgetProducesNoExcerpts(t *testing.T) {
	builder := NewContextBuilder(1, 0)
	lessons := []models.Lesson{{ID: 1, CourseID: 2, Name: "A", ContentText: "text"}}

	require.Empty(t, builder.Collect("anything", lessons, nil))
}

func TestCollectSkipsLessonsWithoutText(t *testing.T) {
	builder := NewContextBuilder(2, 400)
	lessons := []models.Lesson{
		{ID: 1, CourseID: 2, Name: "Empty"},
		{ID: 2, CourseID: 2, Name: "Full", Description: "has a description"},
	}

	excerpts := builder.Collect("anything", lessons, nil)
	require.Len(t, excerpts, 1)
	require.Equal(t, uint(2), excerpts[0].LessonID)
}

func TestCollectArabicEndToEnd(t *testing.T) {
	builder := NewContextBuilder(1, 400)
	lessons := []models.Lesson{
		{ID: 7, CourseID: 3, Name: "درس آخر", ContentText: "محتوى لا علاقة له"},
		{ID: 9, CourseID: 3, Name: "التمثيل الضوئي", ContentText: "التمثيل الضوئي هو عملية تقوم بها النباتات"},
	}
	titles := map[uint]string{3: "الأحياء"}

	excerpts := builder.Collect("ما هو التمثيل الضوئي", lessons, titles)
	require.Len(t, excerpts, 1)
	require.Equal(t, uint(9), excerpts[0].LessonID)
}

func TestCollectAllZeroScoresStillReturnsTopLessons(t *testing.T) {
	builder := NewContextBuilder(1, 400)
	lessons := []models.Lesson{
		{ID: 1, CourseID: 2, Name: "First", ContentText: "alpha"},
		{ID: 2, CourseID: 2, Name: "Second", ContentText: "beta"},
	}

	excerpts := builder.Collect("so it is", lessons, nil)
	require.Len(t, excerpts, 1)
	require.Equal(t, uint(1), excerpts[0].LessonID, "zero-score fallback keeps original order")
}
