package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TextCompleter adapts any TextGenerator into a tutoring completer with the
// same never-fails contract as the built-in client: generation errors degrade
// into an apology answer instead of propagating.
type TextCompleter struct {
	Generator TextGenerator
	ModelName string
	Logger    zerolog.Logger
}

func (c TextCompleter) Complete(ctx context.Context, prompt string, excerpts []Excerpt) ChatResult {
	started := time.Now()

	result := ChatResult{
		InScope:        len(excerpts) > 0,
		Model:          c.ModelName,
		SourceTextHash: HashExcerpts(excerpts),
	}

	text, err := c.Generator.Generate(ctx, prompt)
	if err != nil {
		degradedAnswers.WithLabelValues(c.ModelName).Inc()
		c.Logger.Warn().Err(err).Msg("chat completion degraded to apology answer")

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
