package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service. It is built
// once at process start and handed to component constructors; pipeline code
// never reads the environment directly.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DatabaseURL string
	RedisURL    string
	NATSAddress string

	JWTSecret        string
	JWTRefreshSecret string

	OllamaBaseURL    string
	OllamaModel      string
	AIProvider       string
	OpenAIAPIKey     string
	OpenAIModel      string
	AIRequestTimeout time.Duration
	MaxContextChars  int
	MaxLessons       int

	MaxChatMessageChars int
	MaxQuizSourceChars  int
	QuizReuseWindow     time.Duration

	ChatRateLimit      int
	ChatRateWindow     time.Duration
	QuizGenRateLimit   int
	QuizGenRateWindow  time.Duration
	QuizListCacheTTL   time.Duration
	LastAnswerCacheTTL time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURL         string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production hardening,
// which hides internal AI failure details from end-user responses.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TAWJIHI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Tawjihi Tutor API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ollama.base_url", "http://127.0.0.1:11434")
	v.SetDefault("ollama.model", "phi3:mini")
	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.request_timeout", "60s")
	v.SetDefault("ai.max_context_chars", 400)
	v.SetDefault("ai.max_lessons", 1)
	v.SetDefault("chat.max_message_chars", 800)
	v.SetDefault("quiz.max_source_chars", 20000)
	v.SetDefault("quiz.reuse_window", "30m")
	v.SetDefault("chat.rate_limit", 30)
	v.SetDefault("chat.rate_window", "10m")
	v.SetDefault("quiz.rate_limit", 50)
	v.SetDefault("quiz.rate_window", "5m")
	v.SetDefault("quiz.list_cache_ttl", "2m")
	v.SetDefault("chat.last_answer_ttl", "30m")
	v.SetDefault("cloudinary.folder", "tawjihi/lessons")
	v.SetDefault("openai.model", "gpt-4o-mini")

	durationFor := func(key string) (time.Duration, error) {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return parsed, nil
	}

	requestTimeout, err := durationFor("ai.request_timeout")
	if err != nil {
		return Config{}, err
	}
	reuseWindow, err := durationFor("quiz.reuse_window")
	if err != nil {
		return Config{}, err
	}
	chatWindow, err := durationFor("chat.rate_window")
	if err != nil {
		return Config{}, err
	}
	quizWindow, err := durationFor("quiz.rate_window")
	if err != nil {
		return Config{}, err
	}
	quizListTTL, err := durationFor("quiz.list_cache_ttl")
	if err != nil {
		return Config{}, err
	}
	lastAnswerTTL, err := durationFor("chat.last_answer_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSAddress:            v.GetString("nats.address"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		OllamaBaseURL:          strings.TrimRight(v.GetString("ollama.base_url"), "/"),
		OllamaModel:            v.GetString("ollama.model"),
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		OpenAIModel:            v.GetString("openai.model"),
		AIRequestTimeout:       requestTimeout,
		MaxContextChars:        v.GetInt("ai.max_context_chars"),
		MaxLessons:             v.GetInt("ai.max_lessons"),
		MaxChatMessageChars:    v.GetInt("chat.max_message_chars"),
		MaxQuizSourceChars:     v.GetInt("quiz.max_source_chars"),
		QuizReuseWindow:        reuseWindow,
		ChatRateLimit:          v.GetInt("chat.rate_limit"),
		ChatRateWindow:         chatWindow,
		QuizGenRateLimit:       v.GetInt("quiz.rate_limit"),
		QuizGenRateWindow:      quizWindow,
		QuizListCacheTTL:       quizListTTL,
		LastAnswerCacheTTL:     lastAnswerTTL,
		StripeSecretKey:        v.GetString("stripe.secret_key"),
		StripeWebhookSecret:    v.GetString("stripe.webhook_secret"),
		FrontendURL:            strings.TrimRight(v.GetString("frontend.url"), "/"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.MaxContextChars < 0 {
		cfg.MaxContextChars = 0
	}

	if cfg.MaxLessons <= 0 {
		cfg.MaxLessons = 1
	}

	if cfg.MaxChatMessageChars <= 0 {
		cfg.MaxChatMessageChars = 800
	}

	if cfg.MaxQuizSourceChars <= 0 {
		cfg.MaxQuizSourceChars = 20000
	}

	return cfg, nil
}
