package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tawjihi-go-api/internal/config"
	"github.com/noah-isme/tawjihi-go-api/internal/database"
	"github.com/noah-isme/tawjihi-go-api/internal/handler"
	"github.com/noah-isme/tawjihi-go-api/internal/middleware"
	"github.com/noah-isme/tawjihi-go-api/internal/models"
	"github.com/noah-isme/tawjihi-go-api/internal/repository"
	"github.com/noah-isme/tawjihi-go-api/internal/router"
	"github.com/noah-isme/tawjihi-go-api/internal/service"
	"github.com/noah-isme/tawjihi-go-api/pkg/ai"
	cloud "github.com/noah-isme/tawjihi-go-api/pkg/cloudinary"
	"github.com/noah-isme/tawjihi-go-api/pkg/payments"
	"github.com/noah-isme/tawjihi-go-api/pkg/pdftext"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.Quiz{},
		&models.ChatLog{},
		&models.Payment{},
		&models.Message{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, caching disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSAddress)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, events disabled")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	completer, quizGenerator, err := buildAIProviders(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create ai provider: %v", err)
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	} else {
		logger.Warn().Msg("cloudinary not configured, lesson document upload disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	chatLogRepo := repository.NewChatLogRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)

	extractor := pdftext.New(cfg.AIRequestTimeout, logger)

	tutorService := service.NewTutorService(lessonRepo, courseRepo, enrollmentRepo, chatLogRepo, completer, redisClient, natsConn, service.TutorConfig{
		MaxMessageChars:     cfg.MaxChatMessageChars,
		MaxLessons:          cfg.MaxLessons,
		MaxContextChars:     cfg.MaxContextChars,
		AnswerCacheTTL:      cfg.LastAnswerCacheTTL,
		ExposeFailureDetail: !cfg.IsProduction(),
	}, validate, logger)
	quizService := service.NewQuizService(quizRepo, lessonRepo, courseRepo, quizGenerator, extractor, redisClient, natsConn, service.QuizConfig{
		MaxSourceChars: cfg.MaxQuizSourceChars,
		ReuseWindow:    cfg.QuizReuseWindow,
		ListCacheTTL:   cfg.QuizListCacheTTL,
	}, validate, logger)
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, validate, logger)
	lessonService := service.NewLessonService(lessonRepo, courseRepo, uploader, validate, logger)
	messageService := service.NewMessageService(messageRepo, userRepo, validate, logger)

	var paymentHandler *handler.PaymentHandler
	if cfg.StripeSecretKey != "" {
		gateway, err := payments.NewStripeGateway(payments.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create stripe gateway: %v", err)
		}
		paymentService := service.NewPaymentService(paymentRepo, courseRepo, enrollmentRepo, gateway, service.PaymentConfig{
			FrontendURL: cfg.FrontendURL,
		}, validate, logger)
		paymentHandler = handler.NewPaymentHandler(paymentService, logger)
	} else {
		logger.Warn().Msg("stripe not configured, payment routes disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TutorHandler:   handler.NewTutorHandler(tutorService, logger),
		QuizHandler:    handler.NewQuizHandler(quizService, logger),
		CourseHandler:  handler.NewCourseHandler(courseService, logger),
		LessonHandler:  handler.NewLessonHandler(lessonService, logger),
		PaymentHandler: paymentHandler,
		MessageHandler: handler.NewMessageHandler(messageService, logger),
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildAIProviders selects the completion backend for both the tutor chat
// path and quiz generation based on configuration.
func buildAIProviders(cfg config.Config, logger zerolog.Logger) (service.ChatCompleter, service.QuizGenerator, error) {
	switch cfg.AIProvider {
	case "openai":
		generator, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		completer := ai.TextCompleter{Generator: generator, ModelName: generator.Model(), Logger: logger}
		return completer, ai.TextQuizGenerator{Generator: generator, ModelName: generator.Model()}, nil
	default:
		client, err := ai.NewClient(ai.ClientConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.AIRequestTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
