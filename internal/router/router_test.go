package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tawjihi-go-api/internal/config"
	"github.com/noah-isme/tawjihi-go-api/internal/dto"
	"github.com/noah-isme/tawjihi-go-api/internal/handler"
	"github.com/noah-isme/tawjihi-go-api/internal/router"
)

type noopTutorService struct{}

func (noopTutorService) Chat(context.Context, uint, dto.ChatRequest) (dto.ChatResponse, error) {
	return dto.ChatResponse{InScope: false}, nil
}

func (noopTutorService) History(context.Context, uint, int) ([]dto.ChatLogResponse, error) {
	return nil, nil
}

func authAs(userID uint, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	}
}

func chatRequest(t *testing.T) *http.Request {
	t.Helper()
	body, err := json.Marshal(dto.ChatRequest{Message: "ما مكونات الخلية؟"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newChatApp(role string) *fiber.App {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "test"}, router.Dependencies{
		TutorHandler:  handler.NewTutorHandler(noopTutorService{}, zerolog.Nop()),
		JWTMiddleware: authAs(1, role),
	})
	return app
}

func TestChatRouteAllowsStudents(t *testing.T) {
	resp, err := newChatApp("student").Test(chatRequest(t))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChatRouteForbidsTeachers(t *testing.T) {
	resp, err := newChatApp("teacher").Test(chatRequest(t))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
