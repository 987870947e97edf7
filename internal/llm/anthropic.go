package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/persona"
)

// AnthropicCompleter implements Completer backed by the Anthropic API.
type AnthropicCompleter struct {
	client *anthropic.Client
	logger *slog.Logger
}

// NewAnthropicCompleter creates an Anthropic-backed completer.
func NewAnthropicCompleter(apiKey string, logger *slog.Logger) *AnthropicCompleter {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCompleter{
		client: &c,
		logger: logger,
	}
}

// Name returns the provider identifier.
func (a *AnthropicCompleter) Name() string {
	return "anthropic"
}

// Complete sends the composed prompt as a system block plus alternating
// messages and returns the text of the response.
func (a *AnthropicCompleter) Complete(ctx context.Context, prompt *persona.FinalPrompt, opts Options) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == models.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: int64(opts.MaxOutputTokens),
		System: []anthropic.TextBlockParam{
			{Text: prompt.System},
		},
		Temperature: anthropic.Float(opts.Temperature),
		Messages:    msgs,
	})
	if err != nil {
		return "", a.wrapErr(err)
	}

	var text strings.Builder
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			text.WriteString(resp.Content[i].Text)
		}
	}
	if text.Len() == 0 {
		return "", &ProviderError{Provider: a.Name(), Transient: true, Err: fmt.Errorf("empty response")}
	}

	a.logger.Debug("completion received", "provider", a.Name(), "model", opts.Model, "chars", text.Len())
	return text.String(), nil
}

func (a *AnthropicCompleter) wrapErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &ProviderError{Provider: a.Name(), Transient: transientStatus(apierr.StatusCode), Err: err}
	}
	// Transport-level failures are worth retrying.
	return &ProviderError{Provider: a.Name(), Transient: true, Err: err}
}
