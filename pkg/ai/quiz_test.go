package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuizOutputMapsTypedQuestions(t *testing.T) {
	output := `noise before {
		"questions": [
			{"type":"mcq","question":"ما ناتج التمثيل الضوئي؟","options":["الأكسجين","النيتروجين","الهيدروجين"],"answer":"الأكسجين","explanation":"ينتج الأكسجين."},
			{"type":"true_false","question":"النباتات تحتاج الضوء.","answer":true},
			{"type":"fill_blank","question":"يحدث التمثيل الضوئي في ____.","answer":"البلاستيدات الخضراء"},
			{"type":"short_answer","question":"عرّف التمثيل الضوئي.","answer":"تحويل الطاقة الضوئية إلى كيميائية"}
		],
		"metadata": {"language":"Arabic","grade":"12","subject":"Biology","lessonTitle":"التمثيل الضوئي","courseTitle":"الأحياء"}
	}`

	questions, metadata, err := ParseQuizOutput(output)
	require.NoError(t, err)
	require.Len(t, questions, 4)

	require.Equal(t, QuestionTypeMCQ, questions[0].Type)
	require.Equal(t, "الأكسجين", questions[0].Answer.Text)
	require.False(t, questions[0].Answer.IsBool)

	require.Equal(t, QuestionTypeTrueFalse, questions[1].Type)
	require.True(t, questions[1].Answer.IsBool)
	require.True(t, questions[1].Answer.Bool)

	require.Equal(t, QuestionTypeFillBlank, questions[2].Type)
	require.Equal(t, QuestionTypeShortAnswer, questions[3].Type)

	require.NotNil(t, metadata)
	require.Equal(t, "Biology", metadata.Subject)
	require.Equal(t, "التمثيل الضوئي", metadata.LessonTitle)
}

func TestParseQuizOutputRejectsMCQWithoutOptions(t *testing.T) {
	output := `{"questions":[{"type":"mcq","question":"سؤال بلا خيارات","answer":"جواب"}]}`

	_, _, err := ParseQuizOutput(output)
	require.Error(t, err)
	require.Contains(t, err.Error(), "question #1")
	require.Contains(t, err.Error(), "options")
}

func TestParseQuizOutputRejectsMCQAnswerOutsideOptions(t *testing.T) {
	output := `{"questions":[{"type":"mcq","question":"سؤال","options":["أ","ب"],"answer":"ج"}]}`

	_, _, err := ParseQuizOutput(output)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match any option")
}

func TestParseQuizOutputRejectsStringTrueFalseAnswer(t *testing.T) {
	output := `{"questions":[{"type":"true_false","question":"سؤال","answer":"صح"}]}`

	_, _, err := ParseQuizOutput(output)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boolean")
}

func TestParseQuizOutputRejectsMissingQuestionsArray(t *testing.T) {
	_, _, err := ParseQuizOutput(`{"metadata":{"language":"Arabic"}}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "questions")
}

func TestParseQuizOutputAcceptsLegacyCorrectAnswerKey(t *testing.T) {
	output := `{"questions":[{"question":"سؤال","options":["أ","ب","ج","د"],"correctAnswer":"ب"}]}`

	questions, _, err := ParseQuizOutput(output)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Equal(t, QuestionTypeMCQ, questions[0].Type, "type defaults to mcq")
	require.Equal(t, "ب", questions[0].Answer.Text)
}

func TestParseQuizOutputMapsSingleQuestionShape(t *testing.T) {
	output := `{"question":"ما هو الضوء؟","answers":[{"text":"موجة"},{"text":"جسيم"},{"text":""},{"text":"كلاهما"}]}`

	questions, _, err := ParseQuizOutput(output)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Equal(t, []string{"موجة", "جسيم", "كلاهما"}, questions[0].Options)
	require.Equal(t, "موجة", questions[0].Answer.Text)
}

func TestValidateQuestionsRejectsEmptyList(t *testing.T) {
	require.Error(t, ValidateQuestions(nil))

	valid := []Question{{
		Type:     QuestionTypeShortAnswer,
		Question: "عرّف الخلية.",
		Answer:   Answer{Text: "وحدة بناء الكائن الحي"},
	}}
	require.NoError(t, ValidateQuestions(valid))
}

func TestAnswerJSONRoundTrip(t *testing.T) {
	boolAnswer := Answer{Bool: false, IsBool: true}
	data, err := boolAnswer.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, "false", string(data))

	var decoded Answer
	require.NoError(t, decoded.UnmarshalJSON([]byte("false")))
	require.True(t, decoded.IsBool)
	require.False(t, decoded.Bool)

	require.NoError(t, decoded.UnmarshalJSON([]byte(`"نص"`)))
	require.False(t, decoded.IsBool)
	require.Equal(t, "نص", decoded.Text)

	require.Error(t, decoded.UnmarshalJSON([]byte("[1,2]")))
}
