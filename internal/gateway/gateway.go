// Package gateway is the single entry point for outbound LLM calls.
// It resolves model ids to registered provider clients and records every
// call for observability. It does not retry: retry semantics differ between
// evaluation and conversion callers, so retry policy belongs to them.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/awilliams/curator/internal/llmcall"
	"github.com/awilliams/curator/internal/providers"
)

// Gateway wraps the provider registry with call recording.
type Gateway struct {
	registry *providers.Registry
	recorder *llmcall.Recorder
	logger   *slog.Logger

	// defaultProvider is used when a model id carries no "provider/" prefix
	// match against a registered client name.
	defaultProvider string
}

// Config configures a new Gateway.
type Config struct {
	Registry        *providers.Registry
	Recorder        *llmcall.Recorder
	Logger          *slog.Logger
	DefaultProvider string
}

// New creates a new Gateway.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = llmcall.NewRecorder(0)
	}
	defaultProvider := cfg.DefaultProvider
	if defaultProvider == "" {
		defaultProvider = providers.OpenRouterName
	}

	return &Gateway{
		registry:        cfg.Registry,
		recorder:        recorder,
		logger:          logger,
		defaultProvider: defaultProvider,
	}
}

// CallOptions carries per-call recording context and generation parameters.
type CallOptions struct {
	ItemID      string
	PromptKey   string
	Temperature float64
	MaxTokens   int

	// ResponseFormat requests structured JSON output.
	ResponseFormat *providers.ResponseFormat
}

// Invoke sends messages to the given model and records the call.
// A model id of the form "client!model" routes to a specific registered
// client; otherwise the default provider client is used with the id as the
// provider-side model name. Errors from the underlying client propagate
// unchanged.
func (g *Gateway) Invoke(ctx context.Context, modelID string, msgs []providers.Message, opts CallOptions) (*providers.ChatResult, error) {
	clientName, model := g.resolve(modelID)

	client, err := g.registry.GetLLM(clientName)
	if err != nil {
		return nil, fmt.Errorf("no client for model %q: %w", modelID, err)
	}

	req := &providers.ChatRequest{
		Messages:       msgs,
		Model:          model,
		Temperature:    opts.Temperature,
		MaxTokens:      opts.MaxTokens,
		ResponseFormat: opts.ResponseFormat,
	}

	result, callErr := client.Chat(ctx, req)

	if result != nil {
		if result.ModelUsed == "" {
			result.ModelUsed = model
		}
		g.recorder.Record(llmcall.FromChatResult(result, llmcall.RecordOptions{
			ItemID:    opts.ItemID,
			PromptKey: opts.PromptKey,
		}))

		g.logger.Debug("llm call",
			"model", result.ModelUsed,
			"prompt_key", opts.PromptKey,
			"latency_ms", result.ExecutionTime.Milliseconds(),
			"success", result.Success,
		)
	}

	return result, callErr
}

// Recorder exposes the call recorder for status endpoints.
func (g *Gateway) Recorder() *llmcall.Recorder {
	return g.recorder
}

// resolve splits a "client!model" id into client name and model.
func (g *Gateway) resolve(modelID string) (clientName, model string) {
	if name, rest, ok := strings.Cut(modelID, "!"); ok && g.registry.HasLLM(name) {
		return name, rest
	}
	return g.defaultProvider, modelID
}
