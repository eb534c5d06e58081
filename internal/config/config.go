package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// JSONORDER_STORAGE_PATH overrides storage.path.
const EnvPrefix = "JSONORDER"

// DefaultDir is the directory searched for config.{json,yaml,toml}.
const DefaultDir = ".jsonorder"

// Config represents the complete jsonorder configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Retry   RetryConfig   `json:"retry" mapstructure:"retry"`
	Import  ImportConfig  `json:"import" mapstructure:"import"`
	Output  OutputConfig  `json:"output" mapstructure:"output"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// StorageConfig contains database settings
type StorageConfig struct {
	Path          string `json:"path" mapstructure:"path"`
	BusyTimeoutMs int    `json:"busyTimeoutMs" mapstructure:"busyTimeoutMs"`
}

// RetryConfig controls retries of transient persistence failures
type RetryConfig struct {
	MaxRetries  int `json:"maxRetries" mapstructure:"maxRetries"`
	BaseDelayMs int `json:"baseDelayMs" mapstructure:"baseDelayMs"`
	MaxDelayMs  int `json:"maxDelayMs" mapstructure:"maxDelayMs"`
}

// ImportConfig contains batch import settings
type ImportConfig struct {
	Concurrency int    `json:"concurrency" mapstructure:"concurrency"`
	Pattern     string `json:"pattern" mapstructure:"pattern"`
}

// OutputConfig contains CLI presentation settings
type OutputConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Color  string `json:"color" mapstructure:"color"`
	Indent string `json:"indent" mapstructure:"indent"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Path:          filepath.Join(DefaultDir, "jsonorder.db"),
			BusyTimeoutMs: 5000,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BaseDelayMs: 50,
			MaxDelayMs:  2000,
		},
		Import: ImportConfig{
			Concurrency: 4,
			Pattern:     "*.json",
		},
		Output: OutputConfig{
			Format: "human",
			Color:  "auto",
			Indent: "  ",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadResult describes where the loaded configuration came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// EnvOverride records an environment variable that replaced a value
type EnvOverride struct {
	Key   string `json:"key"`
	Var   string `json:"var"`
	Value string `json:"value"`
}

// LoadConfig loads configuration from path, or from .jsonorder/config.* under
// dir when path is empty, and validates it. A missing file yields the defaults.
func LoadConfig(dir, path string) (*Config, error) {
	result, err := LoadConfigWithDetails(dir, path)
	if err != nil {
		return nil, err
	}
	if err := result.Config.Validate(); err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails is LoadConfig plus provenance information. The result
// is not validated; callers apply their own overrides first and then call
// Validate.
func LoadConfigWithDetails(dir, path string) (*LoadResult, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(dir, DefaultDir))
	}

	result := &LoadResult{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	result.Config = &cfg
	result.EnvOverrides = envOverrides(v)
	return result, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.busyTimeoutMs", d.Storage.BusyTimeoutMs)
	v.SetDefault("retry.maxRetries", d.Retry.MaxRetries)
	v.SetDefault("retry.baseDelayMs", d.Retry.BaseDelayMs)
	v.SetDefault("retry.maxDelayMs", d.Retry.MaxDelayMs)
	v.SetDefault("import.concurrency", d.Import.Concurrency)
	v.SetDefault("import.pattern", d.Import.Pattern)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("output.indent", d.Output.Indent)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

func envOverrides(v *viper.Viper) []EnvOverride {
	var out []EnvOverride
	for _, key := range v.AllKeys() {
		name := EnvVarName(key)
		if val, ok := os.LookupEnv(name); ok {
			out = append(out, EnvOverride{Key: key, Var: name, Value: val})
		}
	}
	return out
}

// EnvVarName returns the environment variable that overrides a config key,
// e.g. storage.path -> JSONORDER_STORAGE_PATH.
func EnvVarName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Save writes the configuration as JSON to dir/.jsonorder/config.json
func (c *Config) Save(dir string) error {
	configDir := filepath.Join(dir, DefaultDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Storage.Path == "" {
		return &ConfigError{Field: "storage.path", Message: "must not be empty"}
	}
	if c.Storage.BusyTimeoutMs < 0 {
		return &ConfigError{Field: "storage.busyTimeoutMs", Message: "must not be negative"}
	}
	if c.Retry.MaxRetries < 0 {
		return &ConfigError{Field: "retry.maxRetries", Message: "must not be negative"}
	}
	if c.Retry.BaseDelayMs < 0 || c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		return &ConfigError{Field: "retry", Message: "delays must satisfy 0 <= baseDelayMs <= maxDelayMs"}
	}
	if c.Import.Concurrency < 1 {
		return &ConfigError{Field: "import.concurrency", Message: "must be at least 1"}
	}
	switch c.Output.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "output.format", Message: "must be human or json"}
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return &ConfigError{Field: "output.color", Message: "must be auto, always or never"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
