package archie

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/oraraka-deko/archie/internal/logger"
)

// Provider identifies which generation backend to use.
type Provider string

const (
	ProviderGoogle Provider = "google"
	// ProviderOpenAI talks to any OpenAI-compatible chat endpoint (OpenAI, a local Ollama, ...).
	ProviderOpenAI Provider = "openai"
)

const (
	DefaultModelGoogle = "gemini-2.5-flash-lite"
	DefaultModelOpenAI = "gemma3:27b"
	DefaultEnvFile     = ".env"
)

// Config holds secrets, sources and HTTP knobs. Build it once with LoadConfig
// (or by hand) and treat it as read-only afterwards.
type Config struct {
	Provider Provider
	APIKey   string // credential for Provider
	Model    string // defaults per provider when empty
	BaseURL  string // optional custom endpoint for the generation backend

	// Sources fetched for every query, in order. DefaultSources when nil.
	Sources []Source

	// ParallelFetch fetches all sources concurrently; composition order is unchanged.
	ParallelFetch bool

	// Shared HTTP client for page fetches and the generation backend.
	HTTPClient *http.Client
	Timeout    time.Duration // 0 keeps the transport defaults

	// AnalyticsDir enables the CSV interaction log when set.
	AnalyticsDir string

	LogMode string
	Logger  *logger.Logger
}

// apiKeyEnv is the environment variable holding the credential for p.
func apiKeyEnv(p Provider) string {
	if p == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return lo.Ternary(c.Provider == ProviderOpenAI, DefaultModelOpenAI, DefaultModelGoogle)
}

func (c Config) sources() []Source {
	if c.Sources == nil {
		return DefaultSources
	}
	return c.Sources
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

// LoadOptions tweaks where LoadConfig looks.
type LoadOptions struct {
	EnvFile  string   // DefaultEnvFile when empty
	Provider Provider // overrides ARCHIE_PROVIDER when set
}

// LoadConfig reads configuration from the environment and an optional
// .env-format file. Environment variables win over file values. A missing
// file is fine; an unreadable or malformed one is an Environment error. The
// API key is not validated here: NewGenerationClient reports a missing key.
func LoadConfig(opts LoadOptions) (Config, error) {
	envFile := lo.Ternary(opts.EnvFile == "", DefaultEnvFile, opts.EnvFile)

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetDefault("archie_provider", string(ProviderGoogle))
	v.SetDefault("archie_log_mode", "production")

	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, EnvironmentError("failed to read %s: %v", envFile, err)
		}
	}

	if opts.Provider != "" {
		v.Set("archie_provider", string(opts.Provider))
	}
	provider := Provider(strings.ToLower(strings.TrimSpace(v.GetString("archie_provider"))))
	if provider != ProviderGoogle && provider != ProviderOpenAI {
		return Config{}, EnvironmentError("unknown provider %q (want %q or %q)", provider, ProviderGoogle, ProviderOpenAI)
	}

	var timeout time.Duration
	if raw := strings.TrimSpace(v.GetString("archie_timeout")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, EnvironmentError("invalid ARCHIE_TIMEOUT %q: %v", raw, err)
		}
		timeout = d
	}

	return Config{
		Provider:      provider,
		APIKey:        strings.TrimSpace(v.GetString(strings.ToLower(apiKeyEnv(provider)))),
		Model:         v.GetString("archie_model"),
		BaseURL:       v.GetString("archie_base_url"),
		ParallelFetch: v.GetBool("archie_parallel_fetch"),
		Timeout:       timeout,
		AnalyticsDir:  v.GetString("archie_analytics_dir"),
		LogMode:       v.GetString("archie_log_mode"),
	}, nil
}
