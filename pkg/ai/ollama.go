package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tawjihi",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of text generation requests",
	}, []string{"model"})

	generationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tawjihi",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of failed text generation requests",
	}, []string{"model", "reason"})

	degradedAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tawjihi",
		Subsystem: "ai",
		Name:      "degraded_answers_total",
		Help:      "Number of chat turns answered with the apology fallback",
	}, []string{"model"})
)

var (
	// ErrEndpointOffline indicates the endpoint answered with HTML, which means
	// a reverse proxy or tunnel is serving an error page instead of the model.
	ErrEndpointOffline = errors.New("text generation endpoint offline or misconfigured")
	// ErrModelError indicates the endpoint returned an explicit error field.
	ErrModelError = errors.New("model returned an error")
	// ErrEmptyAnswer indicates the endpoint produced no usable text.
	ErrEmptyAnswer = errors.New("model returned an empty answer")
)

// apologyAnswer is returned to learners whenever the external model cannot be
// reached or produces garbage. Matching the platform language, it is Arabic.
const apologyAnswer = "تعذر الوصول لمزوّد الذكاء الاصطناعي حالياً.\nيمكنك إعادة المحاولة لاحقاً أو تحديد جزء أدق من الدرس."

// ClientConfig defines configuration options for the Ollama gateway client.
type ClientConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to an Ollama-compatible /api/generate endpoint. All chat-path
// failures are normalised into degraded results; only quiz generation
// propagates hard errors.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewClient builds a gateway client for the configured endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama base url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    httpClient,
		tracer:  otel.Tracer("github.com/noah-isme/tawjihi-go-api/pkg/ai/ollama"),
		logger:  logger.With().Str("component", "ollama_client").Logger(),
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate issues one synchronous completion request and returns the model's
// raw text output. Failure taxonomy: transport errors, non-success statuses,
// HTML bodies (ErrEndpointOffline) and explicit model errors (ErrModelError)
// each surface as distinct errors for the caller to absorb or propagate.
func (c *Client) Generate(parent context.Context, prompt string) (string, error) {
	ctx, span := c.tracer.Start(parent, "ollama.generate", trace.WithAttributes(
		attribute.String("model", c.model),
		attribute.Int("prompt_chars", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	text, err := c.generate(ctx, prompt)
	generationDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		generationFailures.WithLabelValues(c.model, failureReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}

	raw := strings.TrimSpace(string(body))

	// A reverse proxy or tunnel serving an error page is a distinct failure
	// mode from the model misbehaving; detect it before any parsing.
	if looksLikeHTML(raw) {
		return "", fmt.Errorf("%w (status %d)", ErrEndpointOffline, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generate request failed with status %d: %s", resp.StatusCode, truncate(raw, 400))
	}

	var envelope generateResponse
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrModelError, envelope.Error)
		}
		if answer := strings.TrimSpace(envelope.Response); answer != "" {
			return answer, nil
		}
	}

	// Some deployments return the bare text body instead of the envelope.
	if raw == "" {
		return "", ErrEmptyAnswer
	}

	return raw, nil
}

// chatEnvelope is the strict output contract the tutor prompt demands.
type chatEnvelope struct {
	Answer    string `json:"answer"`
	Citations []int  `json:"citations"`
}

// Complete runs a tutoring turn against the model and normalises every
// failure mode into a degraded-but-valid result; it never returns an error.
// The scope flag is preserved from whatever the context assembler computed.
func (c *Client) Complete(ctx context.Context, prompt string, excerpts []Excerpt) ChatResult {
	started := time.Now()

	result := ChatResult{
		InScope:        len(excerpts) > 0,
		Model:          c.model,
		SourceTextHash: HashExcerpts(excerpts),
	}

	text, err := c.Generate(ctx, prompt)
	if err != nil {
		degradedAnswers.WithLabelValues(c.model).Inc()
		c.logger.Warn().Err(err).Msg("chat completion degraded to apology answer")

		result.Answer = apologyAnswer
		result.Citations = citationsFor(excerpts)
		result.Degraded = true
		result.Detail = err.Error()
		result.DurationMs = time.Since(started).Milliseconds()
		result.TokensApprox = approximateTokens(prompt, result.Answer)
		return result
	}

	answer, citations := normaliseChatOutput(text, excerpts)

	result.Answer = answer
	result.Citations = citations
	result.DurationMs = time.Since(started).Milliseconds()
	result.TokensApprox = approximateTokens(prompt, answer)
	return result
}

// normaliseChatOutput applies the strict-envelope contract with graceful
// fallbacks: direct parse, then brace-matching recovery, then the raw text as
// the literal answer. Citation indices are 1-based; unknown indices are
// dropped and an empty list defaults to the first excerpt.
func normaliseChatOutput(text string, excerpts []Excerpt) (string, []Citation) {
	var envelope chatEnvelope
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		extracted, extractErr := ExtractJSONObject(text)
		if extractErr != nil || json.Unmarshal([]byte(extracted), &envelope) != nil {
			return strings.TrimSpace(text), citationsFor(excerpts)
		}
	}

	answer := strings.TrimSpace(envelope.Answer)
	if answer == "" {
		return strings.TrimSpace(text), citationsFor(excerpts)
	}

	citations := make([]Citation, 0, len(envelope.Citations))
	for _, index := range envelope.Citations {
		if index < 1 || index > len(excerpts) {
			continue
		}
		excerpt := excerpts[index-1]
		citations = append(citations, Citation{
			LessonID:    excerpt.LessonID,
			CourseID:    excerpt.CourseID,
			LessonTitle: excerpt.LessonTitle,
			CourseTitle: excerpt.CourseTitle,
		})
	}

	if len(citations) == 0 {
		citations = citationsFor(excerpts)
	}

	return answer, citations
}

func looksLikeHTML(body string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(trimmed, "<html") || strings.HasPrefix(trimmed, "<!doctype")
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEndpointOffline):
		return "endpoint_offline"
	case errors.Is(err, ErrModelError):
		return "model_error"
	case errors.Is(err, ErrEmptyAnswer):
		return "empty_answer"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
