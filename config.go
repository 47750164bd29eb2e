package modindex

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables read by LoadConfig, e.g.
// MODINDEX_MAX_WORKERS.
const EnvPrefix = "MODINDEX"

// Config is the file and environment form of the options.
type Config struct {
	ValidateOnOpen  bool          `mapstructure:"validate_on_open"`
	VerifyChecksums bool          `mapstructure:"verify_checksums"`
	Compression     string        `mapstructure:"compression"`
	MaxWorkers      int           `mapstructure:"max_workers"`
	ReadRateLimit   int64         `mapstructure:"read_rate_limit"`
	ModuleExtension string        `mapstructure:"module_extension"`
	StaleLockAfter  time.Duration `mapstructure:"stale_lock_after"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is text, json, console or none.
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns the configuration equivalent to passing no options.
func DefaultConfig() Config {
	return Config{
		ValidateOnOpen:  true,
		Compression:     CompressionNone.String(),
		ModuleExtension: ModuleExtension,
		StaleLockAfter:  10 * time.Minute,
		LogLevel:        "info",
		LogFormat:       "none",
	}
}

// LoadConfig reads configuration from the file at path (YAML, TOML or JSON,
// by extension) and from MODINDEX_* environment variables, which take
// precedence. An empty path reads the environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if _, err := cfg.Options(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("validate_on_open", d.ValidateOnOpen)
	v.SetDefault("verify_checksums", d.VerifyChecksums)
	v.SetDefault("compression", d.Compression)
	v.SetDefault("max_workers", d.MaxWorkers)
	v.SetDefault("read_rate_limit", d.ReadRateLimit)
	v.SetDefault("module_extension", d.ModuleExtension)
	v.SetDefault("stale_lock_after", d.StaleLockAfter)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Options converts the configuration to options for ReadIndex and WriteIndex.
func (c *Config) Options() ([]Option, error) {
	comp, err := ParseCompression(c.Compression)
	if err != nil {
		return nil, fmt.Errorf("config compression: %w", err)
	}
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	if c.MaxWorkers < 0 || c.ReadRateLimit < 0 || c.StaleLockAfter < 0 {
		return nil, fmt.Errorf("config: max_workers, read_rate_limit and stale_lock_after must not be negative")
	}
	return []Option{
		WithValidateOnOpen(c.ValidateOnOpen),
		WithVerifyChecksums(c.VerifyChecksums),
		WithCompression(comp),
		WithMaxWorkers(c.MaxWorkers),
		WithReadRateLimit(c.ReadRateLimit),
		WithModuleExtension(c.ModuleExtension),
		WithStaleLockAfter(c.StaleLockAfter),
		WithLogger(logger),
	}, nil
}

func (c *Config) logger() (*Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("config log_level: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "none":
		return NoopLogger(), nil
	case "text":
		return NewTextLogger(level), nil
	case "json":
		return NewJSONLogger(level), nil
	case "console":
		return NewConsoleLogger(level), nil
	default:
		return nil, fmt.Errorf("config log_format: unknown format %q", c.LogFormat)
	}
}
