package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const defaultMaxLogLength = 200

// Completer runs one stateless prompt-in, text-out model call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TruncateForLog shortens s to at most limit runes for log previews.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// Classifier answers yes/no questions about free text with the model.
type Classifier struct {
	completer Completer
	prompts   *Prompts
	maxLogLen int
}

func NewClassifier(completer Completer, prompts *Prompts, maxLogLength int) *Classifier {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Classifier{completer: completer, prompts: prompts, maxLogLen: maxLogLength}
}

// Classify renders the named prompt with text and parses the model output.
// Model errors are returned as is; unparseable output is VerdictAmbiguous.
func (c *Classifier) Classify(ctx context.Context, name, text string) (Verdict, error) {
	prompt, err := c.prompts.Prompt(name, Vars{"Text": text})
	if err != nil {
		return VerdictAmbiguous, err
	}

	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return VerdictAmbiguous, fmt.Errorf("failed to classify with %s: %w", name, err)
	}

	verdict := ParseVerdict(raw)
	slog.Debug("Classification finished",
		"prompt", name,
		"verdict", verdict.String(),
		"response_preview", TruncateForLog(raw, c.maxLogLen),
	)
	return verdict, nil
}

// Generator produces free text from a templated prompt. Every call is
// independent: all context comes in through vars.
type Generator struct {
	completer Completer
	prompts   *Prompts
	maxLogLen int
}

func NewGenerator(completer Completer, prompts *Prompts, maxLogLength int) *Generator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Generator{completer: completer, prompts: prompts, maxLogLen: maxLogLength}
}

func (g *Generator) Generate(ctx context.Context, name string, vars Vars) (string, error) {
	prompt, err := g.prompts.Prompt(name, vars)
	if err != nil {
		return "", err
	}

	slog.Debug("Generating text",
		"prompt", name,
		"prompt_length", utf8.RuneCountInString(prompt),
		"prompt_preview", TruncateForLog(prompt, g.maxLogLen),
	)

	text, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", name, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty message for " + name)
	}
	return text, nil
}
