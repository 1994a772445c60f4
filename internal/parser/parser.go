package parser

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// StatementParser turns raw statement text into transaction candidates.
// It is the single external-service call in the pipeline and therefore an
// interface, so tests can substitute a deterministic stand-in.
type StatementParser interface {
	Extract(ctx context.Context, rawText string, knownCategories []string) ([]domain.Candidate, error)
}

// Config bounds the external call. The zero value is not usable; use
// DefaultConfig as a base.
type Config struct {
	Model    string
	Timeout  time.Duration
	Attempts int
}

// DefaultConfig returns the settings used in production.
func DefaultConfig() Config {
	return Config{
		Model:    "gemini-2.5-flash",
		Timeout:  60 * time.Second,
		Attempts: 3,
	}
}

// GeminiParser is the concrete StatementParser backed by the Gemini API.
type GeminiParser struct {
	cfg Config
}

func NewGeminiParser(cfg Config) *GeminiParser {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	return &GeminiParser{cfg: cfg}
}

// Extract sends the statement text to the model and decodes the reply into
// validated candidates. Transport failures are retried with doubling backoff
// up to the configured attempt count; a reply that arrives but fails shape
// validation is not retried (the decode error is final).
func (p *GeminiParser) Extract(ctx context.Context, rawText string, knownCategories []string) ([]domain.Candidate, error) {
	prompt := buildPrompt(rawText, knownCategories)

	var lastErr error
	backoff := time.Second
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		raw, err := p.generate(ctx, prompt)
		if err == nil {
			return DecodeCandidates(raw)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < p.cfg.Attempts {
			if err := sleepContext(ctx, backoff); err != nil {
				break
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("parser: %d attempts failed (%v): %w",
		p.cfg.Attempts, lastErr, domain.ErrExtractionUnavailable)
}

// sleepContext waits for d or until ctx is canceled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// generate performs one model call under the per-attempt timeout.
func (p *GeminiParser) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("parser: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("parser: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("parser: empty response from model")
	}
	return rawText, nil
}
