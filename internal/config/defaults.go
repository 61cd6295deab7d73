package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default timeouts applied when a tool timeout is unset
const (
	DefaultSubfinderTimeout = "5m"
	DefaultHttpxTimeout     = "10m"
	DefaultNmapTimeout      = "5m"
	DefaultHeaderTimeout    = "10s"
	DefaultUserAgent        = "ReconX Security Scanner"
)

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   "output",
		Output:      FormatText,
		DBPath:      "reconx.db",
		Concurrency: 1,
		Stages: StagesConfig{
			Ports:   false,
			Headers: false,
		},
		Tools: ToolsConfig{
			Subfinder: ToolConfig{
				Path:    "subfinder",
				Timeout: DefaultSubfinderTimeout,
			},
			Httpx: ToolConfig{
				Path:    "httpx",
				Timeout: DefaultHttpxTimeout,
			},
			Nmap: ToolConfig{
				Path:    "nmap",
				Timeout: DefaultNmapTimeout,
			},
		},
		RateLimits: RateLimits{
			HttpxThreads:     50,
			NmapMaxParallel:  4,
			NmapTopPorts:     100,
			HeaderRequestsPS: 10,
		},
		Headers: HeadersConfig{
			Timeout:            DefaultHeaderTimeout,
			UserAgent:          DefaultUserAgent,
			InsecureSkipVerify: false,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Scope: []string{},
	}
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
