package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/povarna/generative-ai-agents/chart-agent/internal/config"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm"
	"github.com/rs/zerolog"
)

// Config is an opaque chart configuration document.
type Config = json.RawMessage

// Adapter turns prompts into chart configurations through a completion model.
// It holds no mutable state and is safe for concurrent use.
type Adapter struct {
	client         llm.Client
	model          string
	temperature    float64
	maxTokens      int
	generatePrompt string
	updatePrompt   *template.Template
	timeout        time.Duration
	logger         *zerolog.Logger
}

func NewAdapter(
	client llm.Client,
	prompts *config.PromptsConfig,
	timeout time.Duration,
	logger *zerolog.Logger,
) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if prompts == nil {
		prompts = config.DefaultPromptsConfig()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	tmpl, err := template.New("update").Parse(prompts.Prompts.Update)
	if err != nil {
		return nil, fmt.Errorf("failed to parse update prompt template: %w", err)
	}

	return &Adapter{
		client:         client,
		model:          prompts.Model.Name,
		temperature:    prompts.Temperature(),
		maxTokens:      prompts.Model.MaxTokens,
		generatePrompt: prompts.Prompts.Generate,
		updatePrompt:   tmpl,
		timeout:        timeout,
		logger:         logger,
	}, nil
}

// Generate asks the model for a new chart configuration described by prompt.
func (a *Adapter) Generate(ctx context.Context, prompt string) (Config, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &InvalidInputError{Field: "prompt", Reason: "Prompt is required"}
	}

	return a.complete(ctx, "generate", a.generatePrompt, prompt)
}

// Update asks the model to modify currentConfig according to instruction.
func (a *Adapter) Update(ctx context.Context, currentConfig json.RawMessage, instruction string) (Config, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, &InvalidInputError{Field: "instruction", Reason: "Instruction is required"}
	}

	current := bytes.TrimSpace(currentConfig)
	if len(current) == 0 || bytes.Equal(current, []byte("null")) {
		return nil, &InvalidInputError{Field: "currentConfig", Reason: "CurrentConfig is required"}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, current); err != nil {
		return nil, &InvalidInputError{Field: "currentConfig", Reason: "CurrentConfig is not valid JSON"}
	}

	var system bytes.Buffer
	if err := a.updatePrompt.Execute(&system, struct{ CurrentConfig string }{compact.String()}); err != nil {
		return nil, &UnclassifiedError{Err: fmt.Errorf("template execution failed: %w", err)}
	}

	return a.complete(ctx, "update", system.String(), instruction)
}

func (a *Adapter) complete(ctx context.Context, operation string, system string, user string) (Config, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.client.Complete(ctx, llm.CompletionRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		classified := classify(err)
		a.logger.Error().
			Err(err).
			Str("operation", operation).
			Str("kind", string(KindOf(classified))).
			Dur("duration", time.Since(start)).
			Msg("completion call failed")
		return nil, classified
	}

	event := a.logger.Info().
		Str("operation", operation).
		Str("stop_reason", resp.StopReason).
		Dur("duration", time.Since(start))
	if json.Valid(resp.Raw) {
		event = event.RawJSON("raw_response", resp.Raw)
	}
	event.Msg("completion received")

	cleaned := Sanitize(resp.Content)
	a.logger.Debug().
		Str("operation", operation).
		Str("content", resp.Content).
		Str("sanitized", cleaned).
		Msg("completion content")

	var out bytes.Buffer
	if err := json.Compact(&out, []byte(cleaned)); err != nil {
		a.logger.Error().
			Err(err).
			Str("operation", operation).
			Str("content", resp.Content).
			Str("sanitized", cleaned).
			Msg("invalid JSON content received")
		return nil, &MalformedResponseError{RawContent: resp.Content, Err: err}
	}

	return Config(out.Bytes()), nil
}

func classify(err error) error {
	var statusErr *llm.StatusError
	var urlErr *url.Error
	var netErr net.Error

	switch {
	case errors.As(err, &statusErr):
		return &UpstreamError{StatusCode: statusErr.StatusCode, Body: statusErr.Body, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &UpstreamError{StatusCode: http.StatusGatewayTimeout, Body: "upstream request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &UnclassifiedError{Err: err}
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return &UpstreamError{Body: err.Error(), Err: err}
	default:
		return &UnclassifiedError{Err: err}
	}
}
