// Package pdftext extracts plain text from lesson PDF assets so quiz
// generation can source questions from uploaded documents.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

const maxPDFBytes = 25 << 20 // 25 MiB

// Extractor fetches PDF documents over HTTP and extracts their plain text.
type Extractor struct {
	http   *http.Client
	logger zerolog.Logger
}

// New constructs an extractor with a bounded fetch timeout.
func New(timeout time.Duration, logger zerolog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Extractor{
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "pdftext").Logger(),
	}
}

// ExtractText downloads the document at url and returns its text content.
func (e *Extractor) ExtractText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build pdf request: %w", err)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch pdf: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return "", fmt.Errorf("read pdf body: %w", err)
	}

	text, err := ExtractFromBytes(data)
	if err != nil {
		return "", err
	}

	e.logger.Debug().Str("url", url).Int("chars", len(text)).Msg("extracted pdf text")
	return text, nil
}

// ExtractFromBytes parses an in-memory PDF document into plain text.
func ExtractFromBytes(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return strings.TrimSpace(builder.String()), nil
}
