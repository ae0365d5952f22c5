// Package config loads HealthGuard settings from defaults, an optional YAML
// file and HEALTHGUARD_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/output"
)

// EnvPrefix prefixes every environment variable, e.g. HEALTHGUARD_LLM_MODEL.
const EnvPrefix = "HEALTHGUARD"

// Config holds all HealthGuard configuration.
type Config struct {
	Connector ConnectorConfig `mapstructure:"connector"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Store     StoreConfig     `mapstructure:"store"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Log       LogConfig       `mapstructure:"log"`
}

// ConnectorConfig selects and configures the raw event source.
type ConnectorConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	Endpoint     string        `mapstructure:"endpoint"`
	Path         string        `mapstructure:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LLMConfig configures the chat-completion client.
type LLMConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

// StoreConfig selects the repository backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "jsonfile"
	Dir    string `mapstructure:"dir"`
}

// AuditConfig configures the audit sinks. An empty Path keeps records in memory only.
type AuditConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int64  `mapstructure:"max_size"`
	WebhookURL string `mapstructure:"webhook_url"`
	Stdout     bool   `mapstructure:"stdout"`
	Pretty     bool   `mapstructure:"pretty"`
	Verbosity  string `mapstructure:"verbosity"` // for stdout: "minimal", "standard", "full"
}

// EngineConfig holds triage settings.
type EngineConfig struct {
	TopK         int           `mapstructure:"top_k"`
	IndexLimit   int           `mapstructure:"index_limit"`
	StreamWindow time.Duration `mapstructure:"stream_window"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig is the static system load used when an analysis supplies none.
type MetricsConfig struct {
	DBLatencyMS   float64 `mapstructure:"db_latency_ms"`
	CPUPercent    float64 `mapstructure:"cpu_percent"`
	MemoryPercent float64 `mapstructure:"memory_percent"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"connector.provider":            "seed",
	"connector.api_key":             "",
	"connector.endpoint":            "",
	"connector.path":                "",
	"connector.poll_interval":       "30s",
	"llm.api_key":                   "",
	"llm.base_url":                  "https://api.groq.com/openai/v1",
	"llm.model":                     "llama-3.1-8b-instant",
	"llm.timeout":                   "15s",
	"llm.rate_per_second":           2.0,
	"store.driver":                  "memory",
	"store.dir":                     "./data",
	"audit.path":                    "",
	"audit.max_size":                int64(0),
	"audit.webhook_url":             "",
	"audit.stdout":                  false,
	"audit.pretty":                  false,
	"audit.verbosity":               "standard",
	"engine.top_k":                  5,
	"engine.index_limit":            1000,
	"engine.stream_window":          "0s",
	"engine.metrics.db_latency_ms":  120.0,
	"engine.metrics.cpu_percent":    45.0,
	"engine.metrics.memory_percent": 60.0,
	"log.level":                     "info",
	"log.format":                    "json",
}

// Load reads configuration. path names an optional YAML file; an empty path
// reads healthguard.yaml from the working directory when present.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("healthguard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}
	return cfg, nil
}

var knownProviders = map[string]bool{"seed": true, "file": true, "sandbox": true}

// Validate checks the loaded configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	switch {
	case !knownProviders[c.Connector.Provider]:
		errs = append(errs, fmt.Errorf("config: unknown connector provider %q", c.Connector.Provider))
	case c.Connector.Provider == "file" && c.Connector.Path == "":
		errs = append(errs, errors.New("config: connector.path is required for the file provider"))
	case c.Connector.Provider == "sandbox" && c.Connector.Endpoint == "":
		errs = append(errs, errors.New("config: connector.endpoint is required for the sandbox provider"))
	}
	if c.Connector.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: connector.poll_interval must be positive, got %s", c.Connector.PollInterval))
	}

	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("config: llm.timeout must be positive, got %s", c.LLM.Timeout))
	}
	if c.LLM.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("config: llm.rate_per_second must not be negative, got %g", c.LLM.RatePerSecond))
	}

	switch c.Store.Driver {
	case "memory":
	case "jsonfile":
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("config: store.dir is required for the jsonfile driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store driver %q", c.Store.Driver))
	}

	if _, err := output.ParseVerbosity(c.Audit.Verbosity); err != nil {
		errs = append(errs, fmt.Errorf("config: audit.verbosity: %w", err))
	}
	if c.Audit.MaxSize < 0 {
		errs = append(errs, errors.New("config: audit.max_size must not be negative"))
	}

	if c.Engine.TopK <= 0 {
		errs = append(errs, fmt.Errorf("config: engine.top_k must be positive, got %d", c.Engine.TopK))
	}
	if c.Engine.IndexLimit <= 0 {
		errs = append(errs, fmt.Errorf("config: engine.index_limit must be positive, got %d", c.Engine.IndexLimit))
	}
	if c.Engine.StreamWindow < 0 {
		errs = append(errs, errors.New("config: engine.stream_window must not be negative"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ConnectorSettings converts the connector section for a connector.
func (c Config) ConnectorSettings() connector.ConnectorConfig {
	extra := map[string]string{}
	if c.Connector.Path != "" {
		extra["path"] = c.Connector.Path
	}
	if c.Connector.PollInterval > 0 {
		extra["poll_interval"] = c.Connector.PollInterval.String()
	}
	return connector.ConnectorConfig{
		Provider: c.Connector.Provider,
		APIKey:   c.Connector.APIKey,
		Endpoint: c.Connector.Endpoint,
		Extra:    extra,
	}
}
