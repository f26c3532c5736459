package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/tawjihi-go-api/internal/config"
	"github.com/noah-isme/tawjihi-go-api/internal/handler"
	"github.com/noah-isme/tawjihi-go-api/internal/middleware"
	"github.com/noah-isme/tawjihi-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TutorHandler   *handler.TutorHandler
	QuizHandler    *handler.QuizHandler
	CourseHandler  *handler.CourseHandler
	LessonHandler  *handler.LessonHandler
	PaymentHandler *handler.PaymentHandler
	MessageHandler *handler.MessageHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// AI tutor: students only, rate limited per user.
	if deps.TutorHandler != nil {
		tutor := api.Group("/ai", jwtMiddleware,
			middleware.RequireRole("student"),
			middleware.RateLimit("ai_chat", cfg.ChatRateLimit, cfg.ChatRateWindow),
		)
		deps.TutorHandler.Register(tutor)
	}

	// Quizzes: generation and editing are teacher-only, reads are shared.
	if deps.QuizHandler != nil {
		quizzes := api.Group("/quizzes", jwtMiddleware)
		teacherQuizzes := quizzes.Group("",
			middleware.RequireRole("teacher", "admin"),
			middleware.RateLimit("quiz_generate", cfg.QuizGenRateLimit, cfg.QuizGenRateWindow),
		)
		deps.QuizHandler.RegisterTeacher(teacherQuizzes)
		deps.QuizHandler.Register(quizzes)
	}

	// Courses and lessons: catalogue is authenticated, mutation is teacher-only.
	if deps.CourseHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)
		deps.CourseHandler.RegisterAdmin(courses.Group("", middleware.RequireRole("teacher", "admin")))
	}
	if deps.LessonHandler != nil {
		lessons := api.Group("/lessons", jwtMiddleware)
		deps.LessonHandler.Register(lessons)
		deps.LessonHandler.RegisterAdmin(lessons.Group("", middleware.RequireRole("teacher", "admin")))
	}

	// Payments: the webhook stays outside authentication, everything else in.
	if deps.PaymentHandler != nil {
		deps.PaymentHandler.RegisterWebhook(api.Group("/payments"))
		deps.PaymentHandler.Register(api.Group("/payments", jwtMiddleware))
	}

	// Messaging.
	if deps.MessageHandler != nil {
		deps.MessageHandler.Register(api.Group("/messages", jwtMiddleware))
	}
}
