package oracle

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini answers prompts with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	logger *zap.Logger
}

// NewGemini creates a Gemini oracle with the temperature and token budget in opts.
func NewGemini(ctx context.Context, apiKey string, opts Options, logger *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		return nil, &Error{Type: ErrorTypeTransport, Provider: ProviderGemini, Message: "create client", Err: err}
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(opts.Temperature)),
			MaxOutputTokens: int32(opts.MaxNewTokens),
		},
		logger: logger,
	}, nil
}

// Ask sends prompt as a single user turn.
func (g *Gemini) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", &Error{Type: ErrorTypeTransport, Provider: ProviderGemini, Message: "generate content", Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &Error{Type: ErrorTypeSchema, Provider: ProviderGemini, Message: "no candidates returned"}
	}

	reply := stripPrompt(resp.Text(), prompt)
	g.logger.Debug("oracle replied", zap.String("provider", ProviderGemini), zap.String("model", g.model), zap.Int("reply_len", len(reply)))
	return reply, nil
}
