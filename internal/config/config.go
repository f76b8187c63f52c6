// Package config loads the optional .shellgate.yaml file and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up from the working directory upward.
const FileName = ".shellgate.yaml"

// Default values.
const (
	DefaultAddr              = ":5000"
	DefaultTimeout           = 30 * time.Second
	DefaultMaxOutput         = 1 << 20 // 1 MB
	DefaultHistorySize       = 100
	DefaultAPIKeyEnv         = "GEMINI_API_KEY"
	DefaultTranslatorTimeout = 10 * time.Second
)

// Config holds the parsed configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Addr           string           `yaml:"addr"`
	GRPCHealthAddr string           `yaml:"grpc_health_addr"` // empty disables the gRPC health service
	RawTimeout     string           `yaml:"timeout"`          // e.g. "30s"
	RawMaxOutput   int              `yaml:"max_output"`       // bytes per stream
	Workdir        string           `yaml:"workdir"`          // empty means the process cwd
	HistorySize    int              `yaml:"history_size"`     // runs kept in memory
	HistoryDir     string           `yaml:"history_dir"`      // empty means a temp dir
	Log            LogConfig        `yaml:"log"`
	Translator     TranslatorConfig `yaml:"translator"`

	// APIKey is read from the environment variable named by
	// Translator.APIKeyEnv, never from the file.
	APIKey string `yaml:"-"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// TranslatorConfig controls the language-model translator.
type TranslatorConfig struct {
	Model      string `yaml:"model"`
	Endpoint   string `yaml:"endpoint"`
	RawTimeout string `yaml:"timeout"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

// ListenAddr returns the configured HTTP address or the default.
func (c *Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return DefaultAddr
}

// Timeout returns the configured execution timeout or the default.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.RawTimeout, DefaultTimeout)
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// HistoryCapacity returns the configured in-memory history size or the default.
func (c *Config) HistoryCapacity() int {
	if c.HistorySize > 0 {
		return c.HistorySize
	}
	return DefaultHistorySize
}

// Timeout returns the configured upstream request timeout or the default.
func (t TranslatorConfig) Timeout() time.Duration {
	return parseDuration(t.RawTimeout, DefaultTranslatorTimeout)
}

// KeyEnv returns the name of the environment variable holding the API key.
func (t TranslatorConfig) KeyEnv() string {
	if t.APIKeyEnv != "" {
		return t.APIKeyEnv
	}
	return DefaultAPIKeyEnv
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// LoadResult holds the parsed config and the file it came from.
type LoadResult struct {
	Config *Config
	Path   string // empty when no file was found
}

// Load discovers .shellgate.yaml by walking upward from dir. If no file
// exists, a default Config is returned. Environment overrides are applied
// in both cases.
func Load(dir string) (*LoadResult, error) {
	path, err := findConfig(dir)
	if err != nil {
		cfg := &Config{}
		applyEnv(cfg)
		return &LoadResult{Config: cfg}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the configuration from an explicit path.
func LoadFile(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyEnv(cfg)
	return &LoadResult{Config: cfg, Path: path}, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SHELLGATE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SHELLGATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SHELLGATE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	cfg.APIKey = os.Getenv(cfg.Translator.KeyEnv())
}

// findConfig walks upward from dir looking for FileName.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
