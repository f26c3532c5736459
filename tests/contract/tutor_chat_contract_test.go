package contract_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/handler"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
)

type stubTutorService struct {
	response dto.ChatResponse
}

func (s stubTutorService) Chat(context.Context, uint, dto.ChatRequest) (dto.ChatResponse, error) {
	return s.response, nil
}

func (s stubTutorService) History(context.Context, uint, int) ([]dto.ChatLogResponse, error) {
	return nil, nil
}

func TestTutorChatContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "tutor_chat.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	cases := []struct {
		name     string
		response dto.ChatResponse
	}{
		{
			name: "in scope answer",
			response: dto.NewChatResponse(ai.ChatResult{
				InScope: true,
				Answer:  "تتكون الخلية من غشاء ونواة وسيتوبلازم.",
				Citations: []ai.Citation{
					{LessonID: 7, CourseID: 3, LessonTitle: "الخلية", CourseTitle: "الأحياء"},
				},
				Model:        "phi3:mini",
				DurationMs:   120,
				TokensApprox: 42,
			}),
		},
		{
			name:     "out of scope null answer",
			response: dto.NewChatResponse(ai.ChatResult{InScope: false}),
		},
		{
			name: "degraded apology",
			response: dto.NewChatResponse(ai.ChatResult{
				InScope:  true,
				Answer:   "تعذر الوصول لمزوّد الذكاء الاصطناعي حالياً.",
				Model:    "phi3:mini",
				Degraded: true,
			}),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := stubTutorService{response: tc.response}
			tutorHandler := handler.NewTutorHandler(svc, zerolog.Nop())

			app := fiber.New()
			group := app.Group("/api/v1/ai", func(c *fiber.Ctx) error {
				c.Locals("user_id", uint(1))
				c.Locals("user_role", "student")
				return c.Next()
			})
			tutorHandler.Register(group)

			body, err := json.Marshal(dto.ChatRequest{Message: "ما مكونات الخلية؟"})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/chat", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()

			var payload interface{}
			require.NoError(t, json.Unmarshal(raw, &payload))
			require.NoError(t, schema.Validate(payload))
		})
	}
}
