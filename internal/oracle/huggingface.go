package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// HuggingFace calls a hosted text-generation inference endpoint.
type HuggingFace struct {
	endpoint   string
	apiKey     string
	params     generationParams
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHuggingFace creates a client for the endpoint in opts.
func NewHuggingFace(apiKey string, opts Options, logger *zap.Logger) *HuggingFace {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFace{
		endpoint: opts.Endpoint,
		apiKey:   apiKey,
		params: generationParams{
			MaxNewTokens: opts.MaxNewTokens,
			Temperature:  opts.Temperature,
			DoSample:     opts.DoSample,
		},
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

type generationParams struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	DoSample     bool    `json:"do_sample"`
}

type generateRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters generationParams `json:"parameters"`
}

type generateResult struct {
	GeneratedText *string `json:"generated_text"`
}

// Ask posts prompt and returns the generated continuation.
func (h *HuggingFace) Ask(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(generateRequest{Inputs: prompt, Parameters: h.params})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", h.fail(ErrorTypeTransport, 0, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", h.fail(ErrorTypeTransport, 0, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", h.fail(ErrorTypeTransport, resp.StatusCode, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", h.fail(ErrorTypeStatus, resp.StatusCode, truncate(string(body), 200), nil)
	}

	var results []generateResult
	if err := json.Unmarshal(body, &results); err != nil {
		return "", h.fail(ErrorTypeSchema, resp.StatusCode, "decode response", err)
	}
	if len(results) != 1 || results[0].GeneratedText == nil {
		return "", h.fail(ErrorTypeSchema, resp.StatusCode, "expected one result with generated_text", nil)
	}

	reply := stripPrompt(*results[0].GeneratedText, prompt)
	h.logger.Debug("oracle replied", zap.String("provider", ProviderHuggingFace), zap.Int("reply_len", len(reply)))
	return reply, nil
}

func (h *HuggingFace) fail(typ ErrorType, status int, msg string, err error) error {
	return &Error{Type: typ, Provider: ProviderHuggingFace, StatusCode: status, Message: msg, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
