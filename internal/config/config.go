// Package config provides the configuration system for BrainScan
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/brainscan/pkg/analysis"
	"github.com/ChrisMcGann/brainscan/pkg/classify"
	"github.com/ChrisMcGann/brainscan/pkg/fft"
	"github.com/ChrisMcGann/brainscan/pkg/filter"
	"github.com/ChrisMcGann/brainscan/pkg/reader/mrs"
)

// EnvPrefix is prepended to environment variable overrides, e.g. BRAINSCAN_SERVER_ADDR.
const EnvPrefix = "BRAINSCAN"

// Config holds the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Parser     ParserConfig     `mapstructure:"parser" yaml:"parser"`
	FFT        FFTConfig        `mapstructure:"fft" yaml:"fft"`
	Filter     FilterConfig     `mapstructure:"filter" yaml:"filter"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console, json
}

// ParserConfig holds MRS parser settings
type ParserConfig struct {
	IncompleteHeader string `mapstructure:"incomplete_header" yaml:"incomplete_header"` // fail, empty
}

// FFTConfig holds frequency transform settings
type FFTConfig struct {
	Component string `mapstructure:"component" yaml:"component"` // complex, real
	Bins      int    `mapstructure:"bins" yaml:"bins"`
}

// FilterConfig holds spectrum preprocessing settings
type FilterConfig struct {
	Cutoff    float64 `mapstructure:"cutoff" yaml:"cutoff"`
	Normalize bool    `mapstructure:"normalize" yaml:"normalize"`
}

// ClassifierConfig holds training defaults
type ClassifierConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	K    int    `mapstructure:"k" yaml:"k"`
}

// DefaultConfig returns a new configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			MaxUploadMB:     32,
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{
			Path: "database.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Parser: ParserConfig{
			IncompleteHeader: "fail",
		},
		FFT: FFTConfig{
			Component: "complex",
			Bins:      0,
		},
		Filter: FilterConfig{
			Cutoff:    0,
			Normalize: true,
		},
		Classifier: ClassifierConfig{
			Type: string(classify.KindCentroid),
			K:    classify.DefaultK,
		},
	}
}

// New returns a viper instance with defaults, environment overrides and the
// config file search path set up. configPath may be empty.
func New(configPath string) *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("brainscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/brainscan")
	}

	return v
}

// Load reads configuration from file and environment into a Config
func Load(v *viper.Viper) (*Config, error) {
	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	if _, err := mrs.ParsePolicy(c.Parser.IncompleteHeader); err != nil {
		return fmt.Errorf("parser.incomplete_header: %w", err)
	}
	if _, err := fft.ParseComponent(c.FFT.Component); err != nil {
		return fmt.Errorf("fft.component: %w", err)
	}
	if c.FFT.Bins < 0 {
		return fmt.Errorf("fft.bins must be non-negative, got %d", c.FFT.Bins)
	}
	if c.Filter.Cutoff < 0 || c.Filter.Cutoff > 100 {
		return fmt.Errorf("filter.cutoff must be between 0 and 100, got %.2f", c.Filter.Cutoff)
	}
	if _, err := classify.ParseKind(c.Classifier.Type); err != nil {
		return fmt.Errorf("classifier.type: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// Analyzer builds the parse/transform/filter chain described by the config.
func (c *Config) Analyzer() (*analysis.Analyzer, error) {
	policy, err := mrs.ParsePolicy(c.Parser.IncompleteHeader)
	if err != nil {
		return nil, err
	}
	component, err := fft.ParseComponent(c.FFT.Component)
	if err != nil {
		return nil, err
	}

	return &analysis.Analyzer{
		Policy: policy,
		FFT: fft.Options{
			Bins:      c.FFT.Bins,
			Component: component,
		},
		Filter: filter.Config{
			IntensityCutoff: c.Filter.Cutoff,
			Normalize:       c.Filter.Normalize,
		},
	}, nil
}

// ShutdownDuration returns the parsed server shutdown timeout.
func (s ServerConfig) ShutdownDuration() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// SaveToFile writes the configuration as YAML
func (c *Config) SaveToFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("parser.incomplete_header", d.Parser.IncompleteHeader)
	v.SetDefault("fft.component", d.FFT.Component)
	v.SetDefault("fft.bins", d.FFT.Bins)
	v.SetDefault("filter.cutoff", d.Filter.Cutoff)
	v.SetDefault("filter.normalize", d.Filter.Normalize)
	v.SetDefault("classifier.type", d.Classifier.Type)
	v.SetDefault("classifier.k", d.Classifier.K)
}
