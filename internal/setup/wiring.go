package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/povarna/generative-ai-agents/chart-agent/internal/chart"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/config"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm/bedrock"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm/gpt"
	"github.com/rs/zerolog"
)

type Config struct {
	Provider        string
	OpenAIKey       string
	OpenAIBaseURL   string
	OpenAIModelID   string
	AWSRegion       string
	ClaudeModelID   string
	UpstreamTimeout time.Duration
	APIPort         int
	AllowedOrigin   string
	LogLevel        string
	RedisAddr       string
	RedisPassword   string
	Stream          string
	Group           string
	ConsumerName    string
}

type Dependencies struct {
	Adapter *chart.Adapter
	Logger  *zerolog.Logger
}

func LoadConfig() *Config {
	return &Config{
		Provider:        getEnv("CHART_LLM_PROVIDER", "openai"),
		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		OpenAIModelID:   getEnv("OPENAI_MODEL_ID", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:   getEnv("CLAUDE_MODEL_ID", ""),
		UpstreamTimeout: getEnvDuration("CHART_UPSTREAM_TIMEOUT", 30*time.Second),
		APIPort:         getEnvInt("CHART_API_PORT", 18080),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		Stream:          getEnv("CHART_STREAM", "chart-requests"),
		Group:           getEnv("CHART_GROUP", "chart-group"),
		ConsumerName:    getEnv("HOSTNAME", "chart-worker-1"),
	}
}

func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	llmClient, err := createLLMClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	// Load prompt and model configuration from YAML
	prompts, err := config.LoadPromptsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts config: %w", err)
	}
	if cfg.OpenAIModelID != "" {
		prompts.Model.Name = cfg.OpenAIModelID
	}

	adapter, err := chart.NewAdapter(llmClient, prompts, cfg.UpstreamTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart adapter: %w", err)
	}

	logger.Info().
		Str("provider", cfg.Provider).
		Str("model", prompts.Model.Name).
		Dur("upstream_timeout", cfg.UpstreamTimeout).
		Msg("Dependencies wired")

	return &Dependencies{
		Adapter: adapter,
		Logger:  logger,
	}, nil
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}

// getEnvDuration accepts Go durations ("45s") or a plain number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

func createLLMClient(ctx context.Context, cfg *Config) (llm.Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return gpt.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	case "bedrock":
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
