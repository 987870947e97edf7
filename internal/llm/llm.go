// Package llm abstracts the completion providers that turn a composed
// prompt into advice text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/sage/internal/persona"
)

// Options carries per-request completion settings.
type Options struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Completer produces a completion for a composed prompt.
type Completer interface {
	// Complete sends the prompt and returns its text response.
	Complete(ctx context.Context, prompt *persona.FinalPrompt, opts Options) (string, error)

	// Name returns the provider identifier.
	Name() string
}

// ProviderError wraps a completion provider failure with a retryability
// classification. Rate limits, timeouts and server errors are transient;
// auth and validation failures are not.
type ProviderError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a provider failure worth retrying.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// transientStatus classifies an HTTP status from a provider API.
func transientStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// NewCompleter builds the configured provider.
func NewCompleter(provider, apiKey string, logger *slog.Logger) (Completer, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicCompleter(apiKey, logger), nil
	case "openai":
		return NewOpenAICompleter(apiKey, logger), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", provider)
	}
}
