package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Output format names accepted by the report emitter
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatAll      = "all"
)

// Config represents the run configuration shared by every component
type Config struct {
	OutputDir   string        `mapstructure:"output_dir" yaml:"output_dir"`
	Output      string        `mapstructure:"output" yaml:"output"`
	DBPath      string        `mapstructure:"db_path" yaml:"db_path"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Stages      StagesConfig  `mapstructure:"stages" yaml:"stages"`
	Tools       ToolsConfig   `mapstructure:"tools" yaml:"tools"`
	RateLimits  RateLimits    `mapstructure:"rate_limits" yaml:"rate_limits"`
	Headers     HeadersConfig `mapstructure:"headers" yaml:"headers"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
	Notify      NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Scope       []string      `mapstructure:"scope" yaml:"scope"`
	Metrics     bool          `mapstructure:"metrics" yaml:"metrics"`
}

// StagesConfig toggles the optional pipeline stages
type StagesConfig struct {
	Ports   bool `mapstructure:"ports" yaml:"ports"`
	Headers bool `mapstructure:"headers" yaml:"headers"`
}

// ToolConfig represents configuration for a single external tool
type ToolConfig struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
}

// TimeoutDuration parses Timeout, falling back to def when unset or invalid
func (t ToolConfig) TimeoutDuration(def time.Duration) time.Duration {
	if t.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ToolsConfig contains configuration for all external tools
type ToolsConfig struct {
	Subfinder ToolConfig `mapstructure:"subfinder" yaml:"subfinder"`
	Httpx     ToolConfig `mapstructure:"httpx" yaml:"httpx"`
	Nmap      ToolConfig `mapstructure:"nmap" yaml:"nmap"`
}

// RateLimits contains concurrency and pacing settings for the stages
type RateLimits struct {
	HttpxThreads     int     `mapstructure:"httpx_threads" yaml:"httpx_threads"`
	NmapMaxParallel  int     `mapstructure:"nmap_max_parallel" yaml:"nmap_max_parallel"`
	NmapTopPorts     int     `mapstructure:"nmap_top_ports" yaml:"nmap_top_ports"`
	HeaderRequestsPS float64 `mapstructure:"header_requests_per_second" yaml:"header_requests_per_second"`
}

// HeadersConfig controls the in-process security header checker
type HeadersConfig struct {
	Timeout            string `mapstructure:"timeout" yaml:"timeout"`
	UserAgent          string `mapstructure:"user_agent" yaml:"user_agent"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// LogConfig controls console verbosity and the optional rotated log file
type LogConfig struct {
	Silent     bool   `mapstructure:"silent" yaml:"silent"`
	Verbose    bool   `mapstructure:"verbose" yaml:"verbose"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// NotifyConfig holds the completion webhook settings
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// Load reads configuration from a YAML file layered over DefaultConfig.
// If path is empty, searches for reconx.yaml in the current directory and
// ~/.config/reconx/. A missing file in the search path is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reconx")
		v.AddConfigPath(".")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "reconx"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default value with viper so partial files
// only override what they mention.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("output", d.Output)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("stages.ports", d.Stages.Ports)
	v.SetDefault("stages.headers", d.Stages.Headers)
	v.SetDefault("tools.subfinder.path", d.Tools.Subfinder.Path)
	v.SetDefault("tools.subfinder.timeout", d.Tools.Subfinder.Timeout)
	v.SetDefault("tools.httpx.path", d.Tools.Httpx.Path)
	v.SetDefault("tools.httpx.timeout", d.Tools.Httpx.Timeout)
	v.SetDefault("tools.nmap.path", d.Tools.Nmap.Path)
	v.SetDefault("tools.nmap.timeout", d.Tools.Nmap.Timeout)
	v.SetDefault("rate_limits.httpx_threads", d.RateLimits.HttpxThreads)
	v.SetDefault("rate_limits.nmap_max_parallel", d.RateLimits.NmapMaxParallel)
	v.SetDefault("rate_limits.nmap_top_ports", d.RateLimits.NmapTopPorts)
	v.SetDefault("rate_limits.header_requests_per_second", d.RateLimits.HeaderRequestsPS)
	v.SetDefault("headers.timeout", d.Headers.Timeout)
	v.SetDefault("headers.user_agent", d.Headers.UserAgent)
	v.SetDefault("headers.insecure_skip_verify", d.Headers.InsecureSkipVerify)
	v.SetDefault("log.silent", d.Log.Silent)
	v.SetDefault("log.verbose", d.Log.Verbose)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
	v.SetDefault("scope", d.Scope)
	v.SetDefault("metrics", d.Metrics)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir cannot be empty"))
	}

	if _, err := ParseFormats(c.Output); err != nil {
		errs = append(errs, err)
	}

	if c.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}

	if c.RateLimits.HttpxThreads <= 0 {
		errs = append(errs, errors.New("httpx_threads must be positive"))
	}

	if c.RateLimits.NmapMaxParallel <= 0 {
		errs = append(errs, errors.New("nmap_max_parallel must be positive"))
	}

	if c.RateLimits.NmapTopPorts <= 0 {
		errs = append(errs, errors.New("nmap_top_ports must be positive"))
	}

	if c.RateLimits.HeaderRequestsPS < 0 {
		errs = append(errs, errors.New("header_requests_per_second cannot be negative"))
	}

	for name, t := range map[string]string{
		"tools.subfinder.timeout": c.Tools.Subfinder.Timeout,
		"tools.httpx.timeout":     c.Tools.Httpx.Timeout,
		"tools.nmap.timeout":      c.Tools.Nmap.Timeout,
		"headers.timeout":         c.Headers.Timeout,
	} {
		if t == "" {
			continue
		}
		if _, err := time.ParseDuration(t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.Log.Silent && c.Log.Verbose {
		errs = append(errs, errors.New("silent and verbose are mutually exclusive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ParseFormats expands an output selector into the list of report formats.
// "txt" is accepted as an alias for "text".
func ParseFormats(selector string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case FormatText, "txt", "":
		return []string{FormatText}, nil
	case FormatJSON:
		return []string{FormatJSON}, nil
	case FormatCSV:
		return []string{FormatCSV}, nil
	case FormatMarkdown, "md":
		return []string{FormatMarkdown}, nil
	case FormatAll:
		return []string{FormatText, FormatJSON, FormatCSV, FormatMarkdown}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text|json|csv|markdown|all)", selector)
	}
}
