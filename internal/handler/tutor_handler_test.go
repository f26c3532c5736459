package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/handler"
	"github.com/noah-isme/tawjihi-go-api/internal/service"
)

type mockTutorService struct {
	lastUserID uint
	response   dto.ChatResponse
	history    []dto.ChatLogResponse
	err        error
}

func (m *mockTutorService) Chat(_ context.Context, userID uint, _ dto.ChatRequest) (dto.ChatResponse, error) {
	m.lastUserID = userID
	if m.err != nil {
		return dto.ChatResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockTutorService) History(_ context.Context, userID uint, _ int) ([]dto.ChatLogResponse, error) {
	m.lastUserID = userID
	return m.history, m.err
}

func newTutorApp(svc service.TutorService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/ai", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(42))
		c.Locals("user_role", "student")
		return c.Next()
	})
	handler.NewTutorHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestTutorHandlerChatSuccess(t *testing.T) {
	answer := "التمثيل الضوئي هو عملية"
	svc := &mockTutorService{response: dto.ChatResponse{InScope: true, Answer: &answer, Model: "llama3"}}
	app := newTutorApp(svc)

	resp := postJSON(t, app, "/api/v1/ai/chat", dto.ChatRequest{Message: "ما هو التمثيل الضوئي"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(42), svc.lastUserID)

	var response struct {
		Success bool             `json:"success"`
		Data    dto.ChatResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.True(t, response.Data.InScope)
	require.NotNil(t, response.Data.Answer)
	require.Equal(t, answer, *response.Data.Answer)
}

func TestTutorHandlerChatMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"no enrollments", service.ErrNoEnrolledCourses, fiber.StatusForbidden},
		{"not enrolled", service.ErrNotEnrolled, fiber.StatusForbidden},
		{"too long", service.ErrMessageTooLong, fiber.StatusBadRequest},
		{"empty", service.ErrEmptyMessage, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTutorService{err: tc.err}
			app := newTutorApp(svc)

			resp := postJSON(t, app, "/api/v1/ai/chat", dto.ChatRequest{Message: "question"})
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestTutorHandlerChatRejectsMalformedBody(t *testing.T) {
	svc := &mockTutorService{}
	app := newTutorApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/chat", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTutorHandlerHistory(t *testing.T) {
	svc := &mockTutorService{history: []dto.ChatLogResponse{{ID: 1, Message: "q", Answer: "a"}}}
	app := newTutorApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/chat/history?limit=5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data []dto.ChatLogResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 1)
}
