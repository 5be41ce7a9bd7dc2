// Package config loads runtime settings for the indexer, query engine and
// MCP server from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Qdrant  QdrantConfig  `mapstructure:"qdrant"`
	Index   IndexConfig   `mapstructure:"index"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Server  ServerConfig  `mapstructure:"server"`
	GitHub  GitHubConfig  `mapstructure:"github"`
}

// OpenAIConfig configures the embedding and text-generation providers.
// Setting AzureEndpoint switches the client to Azure OpenAI.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	AzureEndpoint  string `mapstructure:"azure_endpoint"`
	APIVersion     string `mapstructure:"api_version"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	ChatModel      string `mapstructure:"chat_model"`
}

type QdrantConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
	UseTLS bool   `mapstructure:"use_tls"`
}

// IndexConfig controls how a source tree is walked and embedded.
type IndexConfig struct {
	Extension     string   `mapstructure:"extension"`
	AuxiliaryFile string   `mapstructure:"auxiliary_file"`
	Exclude       []string `mapstructure:"exclude"`
	BatchSize     int      `mapstructure:"batch_size"`
	Concurrency   int      `mapstructure:"concurrency"`
	MaxInputChars int      `mapstructure:"max_input_chars"`
	Collection    string   `mapstructure:"collection"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// GitHubConfig authenticates remote sources; an empty token is allowed.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

type ServerConfig struct {
	Port       string `mapstructure:"port"`
	ServerMode bool   `mapstructure:"server_mode"`
}

// DefaultExclude lists directories that never hold project sources.
var DefaultExclude = []string{
	"**/.git/**",
	"**/.venv/**",
	"**/venv/**",
	"**/__pycache__/**",
	"**/node_modules/**",
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"openai.api_key":         "OPENAI_API_KEY",
	"openai.base_url":        "OPENAI_BASE_URL",
	"openai.azure_endpoint":  "OPENAI_ENDPOINT",
	"openai.api_version":     "OPENAI_API_VERSION",
	"openai.embedding_model": "EMBEDDING_MODEL",
	"openai.chat_model":      "CHAT_MODEL",
	"qdrant.host":            "QDRANT_HOST",
	"qdrant.port":            "QDRANT_PORT",
	"qdrant.api_key":         "QDRANT_API_KEY",
	"qdrant.use_tls":         "QDRANT_USE_TLS",
	"index.collection":       "COLLECTION",
	"log.level":              "LOG_LEVEL",
	"log.format":             "LOG_FORMAT",
	"tracing.otlp_endpoint":  "OTEL_EXPORTER_OTLP_ENDPOINT",
	"server.port":            "PORT",
	"server.server_mode":     "SERVER_MODE",
	"github.token":           "GITHUB_TOKEN",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.api_version", "2024-02-01")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("index.extension", ".py")
	v.SetDefault("index.auxiliary_file", "main.py")
	v.SetDefault("index.exclude", DefaultExclude)
	v.SetDefault("index.batch_size", 100)
	v.SetDefault("index.concurrency", 4)
	v.SetDefault("index.max_input_chars", 32000)
	v.SetDefault("index.collection", "default_project")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.port", "8080")
}

// Load reads configuration from the environment and, when path is not
// empty, from a YAML file. Environment variables win over file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if !strings.HasPrefix(cfg.Index.Extension, ".") {
		cfg.Index.Extension = "." + cfg.Index.Extension
	}

	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	return &cfg, nil
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.OpenAI.APIKey == "" {
		warnings = append(warnings, "OPENAI_API_KEY is not set; embedding and description calls will fail")
	}
	if c.OpenAI.AzureEndpoint != "" && c.OpenAI.BaseURL != "" {
		warnings = append(warnings, "both OPENAI_ENDPOINT and OPENAI_BASE_URL are set; the Azure endpoint is used")
	}
	if c.Index.BatchSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("index batch_size %d is not positive; the embedder default is used", c.Index.BatchSize))
	}
	switch {
	case c.Index.Concurrency <= 0:
		warnings = append(warnings, fmt.Sprintf("index concurrency %d is not positive; the embedder default is used", c.Index.Concurrency))
	case c.Index.Concurrency > 32:
		warnings = append(warnings, fmt.Sprintf("index concurrency %d exceeds 32; it is clamped to 32", c.Index.Concurrency))
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		warnings = append(warnings, fmt.Sprintf("qdrant port %d is not a valid port", c.Qdrant.Port))
	}

	return warnings
}
