package archie

import (
	"context"
	"time"

	"github.com/oraraka-deko/archie/internal/logger"
)

// GenerationClient owns the credentials and the backend handle for one provider.
type GenerationClient struct {
	provider Provider
	model    string
	backend  providerClient
	log      *logger.Logger
}

// NewGenerationClient validates the credentials in cfg and builds the backend
// handle. A missing key fails with KindEnvironment before any network activity;
// a handle construction failure is reported as KindAPI.
func NewGenerationClient(ctx context.Context, cfg Config) (*GenerationClient, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderGoogle
	}
	if cfg.APIKey == "" {
		return nil, EnvironmentError("%s not found. Check your .env file or environment.", apiKeyEnv(provider))
	}
	cfg.Provider = provider

	var (
		backend providerClient
		err     error
	)
	switch provider {
	case ProviderGoogle:
		backend, err = newGoogleProvider(ctx, cfg.APIKey, cfg.BaseURL, cfg.HTTPClient)
	case ProviderOpenAI:
		backend = newOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient)
	default:
		return nil, EnvironmentError("unknown provider %q", provider)
	}
	if err != nil {
		return nil, err
	}
	return &GenerationClient{
		provider: provider,
		model:    cfg.model(),
		backend:  backend,
		log:      logger.OrNop(cfg.Logger),
	}, nil
}

// Model returns the fixed model identifier requests are sent to.
func (g *GenerationClient) Model() string { return g.model }

// Generate sends prompt as a single user message and returns the first text
// reply, or NoTextSentinel when the reply has none.
func (g *GenerationClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.backend.Generate(ctx, g.model, prompt)
	if err != nil {
		g.log.Debug("generation failed", "provider", g.provider, "model", g.model, "error", err)
		return "", err
	}
	g.log.Debug("generation done", "provider", g.provider, "model", g.model,
		"prompt_chars", len(prompt), "reply_chars", len(text), "elapsed", time.Since(start))
	return text, nil
}
