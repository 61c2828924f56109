package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 600
	DefaultTemperature = 0.7

	DefaultGeneratePrompt = "You are a Highcharts expert. Return ONLY the JSON object (no extra text) for Highcharts.chart config based on user's prompt."

	DefaultUpdatePrompt = `You are a Highcharts expert.
Here is the current Highcharts config JSON:
{{.CurrentConfig}}
Modify this JSON according to the user's instruction and return ONLY the updated JSON object, no extra text.`
)

// PromptsConfig holds the model parameters and system prompts used for chart generation.
type PromptsConfig struct {
	Model   ModelConfig `yaml:"model"`
	Prompts Prompts     `yaml:"prompts"`
}

type ModelConfig struct {
	Name        string   `yaml:"name"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
}

// Prompts holds the system instructions. Update is a text/template executed
// with the current chart config available as {{.CurrentConfig}}.
type Prompts struct {
	Generate string `yaml:"generate"`
	Update   string `yaml:"update"`
}

// LoadPromptsConfig reads the file named by CHART_PROMPTS_CONFIG_PATH
// (default configs/prompts.yaml). A missing file yields the built-in defaults.
func LoadPromptsConfig() (*PromptsConfig, error) {
	path := os.Getenv("CHART_PROMPTS_CONFIG_PATH")
	if path == "" {
		path = "configs/prompts.yaml"
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPromptsConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	return ParsePromptsConfig(data)
}

func ParsePromptsConfig(data []byte) (*PromptsConfig, error) {
	var cfg PromptsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func DefaultPromptsConfig() *PromptsConfig {
	cfg := &PromptsConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *PromptsConfig) {
	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModel
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = DefaultMaxTokens
	}
	if cfg.Model.Temperature == nil {
		t := DefaultTemperature
		cfg.Model.Temperature = &t
	}
	if strings.TrimSpace(cfg.Prompts.Generate) == "" {
		cfg.Prompts.Generate = DefaultGeneratePrompt
	}
	if strings.TrimSpace(cfg.Prompts.Update) == "" {
		cfg.Prompts.Update = DefaultUpdatePrompt
	}
}

func (c *PromptsConfig) Validate() error {
	if c.Model.MaxTokens < 0 {
		return fmt.Errorf("model.max_tokens must be positive, got %d", c.Model.MaxTokens)
	}
	if t := *c.Model.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("model.temperature must be within [0, 2], got %g", t)
	}
	if _, err := template.New("update").Parse(c.Prompts.Update); err != nil {
		return fmt.Errorf("invalid update prompt template: %w", err)
	}
	if !strings.Contains(c.Prompts.Update, ".CurrentConfig") {
		return fmt.Errorf("update prompt must reference {{.CurrentConfig}}")
	}
	return nil
}

func (c *PromptsConfig) Temperature() float64 {
	if c.Model.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Model.Temperature
}
