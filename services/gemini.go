package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// contentModel is the slice of *genai.Models the service uses.
type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiService runs single-turn, stateless completions. Credentials and the
// model name are fixed at construction.
type GeminiService struct {
	models      contentModel
	model       string
	temperature float32
	timeout     time.Duration
	apiKey      string
}

func NewGeminiService(ctx context.Context, cfg AIConfig) (*GeminiService, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newGeminiService(client.Models, apiKey, cfg), nil
}

func newGeminiService(models contentModel, apiKey string, cfg AIConfig) *GeminiService {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &GeminiService{
		models:      models,
		model:       model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		apiKey:      apiKey,
	}
}

// Complete sends prompt to the model and returns its text.
func (g *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temperature := g.temperature
	config := &genai.GenerateContentConfig{Temperature: &temperature}

	start := time.Now()
	result, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini request timed out after %s: %w", g.timeout, err)
		}
		return "", &redactedError{msg: "gemini generate content: " + RedactSecrets(err.Error(), g.apiKey), err: err}
	}

	text, err := extractText(result)
	if err != nil {
		return "", err
	}

	slog.Debug("Gemini completion", "model", g.model, "duration", time.Since(start), "response_length", len(text))
	return text, nil
}

// extractText prefers the response's aggregated text, then any candidate
// part text, and fails when the model returned nothing usable.
func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil {
		return "", errors.New("gemini api returned no response")
	}

	if text := strings.TrimSpace(result.Text()); text != "" {
		return text, nil
	}

	var builder strings.Builder
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(strings.TrimSpace(part.Text))
		}
	}
	if builder.Len() > 0 {
		return builder.String(), nil
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini api blocked the prompt: %s", result.PromptFeedback.BlockReason)
	}
	return "", errors.New("gemini api returned empty response")
}

// redactedError keeps the original error for errors.Is while hiding secrets in its text.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
