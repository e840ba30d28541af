package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pysentry configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	GitHub  GitHubConfig  `yaml:"github"`
	Checks  ChecksConfig  `yaml:"checks"`
	Results ResultsConfig `yaml:"results"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// GitHubConfig defines the GitHub App identity and webhook credentials.
type GitHubConfig struct {
	// AppID is the GitHub App ID (informational; not used past auth).
	AppID string `yaml:"app_id"`

	// WebhookSecret is the shared secret used for HMAC signature verification.
	WebhookSecret string `yaml:"webhook_secret"`

	// PrivateKeyPath points at the App private key on disk.
	PrivateKeyPath string `yaml:"private_key_path"`
}

// ChecksConfig defines how candidate files are fetched and checked.
type ChecksConfig struct {
	// GitBin is the source-control executable used for cloning.
	GitBin string `yaml:"git_bin"`

	// PythonBin is the interpreter used for syntax and runtime checks.
	PythonBin string `yaml:"python_bin"`

	// RunTimeout bounds the wall-clock time of a runtime check.
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// ResultsConfig defines where the result log lives.
type ResultsConfig struct {
	// Path is the SQLite path backing the result log. The default
	// ":memory:" keeps results for the process lifetime only.
	Path string `yaml:"path"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Listen:    "127.0.0.1:5000",
			LogLevel:  "INFO",
			LogFormat: "json",
		},
		Checks: ChecksConfig{
			GitBin:     "git",
			PythonBin:  "python3",
			RunTimeout: 10 * time.Second,
		},
		Results: ResultsConfig{
			Path: ":memory:",
		},
	}
}

// Load reads configuration from an optional YAML file, applies defaults,
// then lets environment variables override file values. An empty path
// yields defaults plus environment.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", absPath)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the environment variables the service has always
// honored on top of file-provided values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ID"); v != "" {
		cfg.GitHub.AppID = v
	}
	if v := os.Getenv("GITHUB_WEBHOOK_SECRET"); v != "" {
		cfg.GitHub.WebhookSecret = v
	}
	if v := os.Getenv("PRIVATE_KEY_PATH"); v != "" {
		cfg.GitHub.PrivateKeyPath = v
	}
	if v := os.Getenv("PYSENTRY_LISTEN"); v != "" {
		cfg.Service.Listen = v
	}
}

// applyDefaults backfills zero values left after file + env merging.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Service.Listen == "" {
		cfg.Service.Listen = d.Service.Listen
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = d.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = d.Service.LogFormat
	}
	if cfg.Checks.GitBin == "" {
		cfg.Checks.GitBin = d.Checks.GitBin
	}
	if cfg.Checks.PythonBin == "" {
		cfg.Checks.PythonBin = d.Checks.PythonBin
	}
	if cfg.Checks.RunTimeout <= 0 {
		cfg.Checks.RunTimeout = d.Checks.RunTimeout
	}
	if cfg.Results.Path == "" {
		cfg.Results.Path = d.Results.Path
	}
}

func validate(cfg *Config) error {
	if cfg.GitHub.WebhookSecret == "" {
		return fmt.Errorf("github.webhook_secret is required (or set GITHUB_WEBHOOK_SECRET)")
	}
	return nil
}
