// Package oracle talks to the external text-generation services that answer
// survey questions.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"

	DefaultEndpoint     = "https://api-inference.huggingface.co/models/microsoft/DialoGPT-large"
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultMaxNewTokens = 20
	DefaultTemperature  = 0.3
	DefaultTimeout      = 30 * time.Second
)

// Oracle answers a prompt with free text.
type Oracle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Factory builds an Oracle bound to a credential.
type Factory func(apiKey string) (Oracle, error)

// Options configures oracle construction.
type Options struct {
	Provider     string
	Endpoint     string
	Model        string
	MaxNewTokens int
	Temperature  float64
	DoSample     bool
	Timeout      time.Duration

	// BaseURL overrides the Gemini API host; empty uses the SDK default.
	BaseURL string
}

// DefaultOptions mirrors the parameters of the hosted inference endpoint.
func DefaultOptions() Options {
	return Options{
		Provider:     ProviderHuggingFace,
		Endpoint:     DefaultEndpoint,
		MaxNewTokens: DefaultMaxNewTokens,
		Temperature:  DefaultTemperature,
		DoSample:     true,
		Timeout:      DefaultTimeout,
	}
}

// NewFactory returns a Factory for opts. An empty credential yields an
// oracle whose every call fails with a credential error.
func NewFactory(opts Options, logger *zap.Logger) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(apiKey string) (Oracle, error) {
		if strings.TrimSpace(apiKey) == "" {
			return Unavailable{Provider: opts.Provider}, nil
		}
		switch opts.Provider {
		case ProviderHuggingFace, "":
			return NewHuggingFace(apiKey, opts, logger), nil
		case ProviderGemini:
			return NewGemini(context.Background(), apiKey, opts, logger)
		default:
			return nil, fmt.Errorf("unknown oracle provider %q", opts.Provider)
		}
	}
}

// Unavailable is the oracle used when no credential is configured.
type Unavailable struct {
	Provider string
}

// Ask always fails with a credential error.
func (u Unavailable) Ask(context.Context, string) (string, error) {
	return "", &Error{Type: ErrorTypeCredential, Provider: u.Provider, Message: "cannot call oracle", Err: ErrMissingCredential}
}

// stripPrompt removes the first occurrence of prompt from generated text and trims the rest.
func stripPrompt(generated, prompt string) string {
	return strings.TrimSpace(strings.Replace(generated, prompt, "", 1))
}
