package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reconx.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
concurrency: 3
stages:
  ports: true
rate_limits:
  nmap_top_ports: 1000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Concurrency != 3 || !cfg.Stages.Ports || cfg.RateLimits.NmapTopPorts != 1000 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Stages.Headers {
		t.Error("headers stage should stay off")
	}
	if cfg.RateLimits.HttpxThreads != 50 || cfg.OutputDir != "output" || cfg.Output != FormatText {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Headers.UserAgent != DefaultUserAgent || cfg.Headers.InsecureSkipVerify {
		t.Errorf("header defaults lost: %+v", cfg.Headers)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "concurrency: 0\noutput: pdf\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"concurrency", "pdf"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty output dir", func(c *Config) { c.OutputDir = "" }},
		{"zero threads", func(c *Config) { c.RateLimits.HttpxThreads = 0 }},
		{"zero nmap parallelism", func(c *Config) { c.RateLimits.NmapMaxParallel = 0 }},
		{"negative header rate", func(c *Config) { c.RateLimits.HeaderRequestsPS = -1 }},
		{"bad timeout", func(c *Config) { c.Tools.Nmap.Timeout = "soon" }},
		{"silent and verbose", func(c *Config) { c.Log.Silent, c.Log.Verbose = true, true }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{FormatText}},
		{"text", []string{FormatText}},
		{"txt", []string{FormatText}},
		{"JSON", []string{FormatJSON}},
		{"csv", []string{FormatCSV}},
		{"md", []string{FormatMarkdown}},
		{"all", []string{FormatText, FormatJSON, FormatCSV, FormatMarkdown}},
	}
	for _, tt := range tests {
		got, err := ParseFormats(tt.in)
		if err != nil {
			t.Errorf("ParseFormats(%q): %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormats("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTimeoutDuration(t *testing.T) {
	t.Parallel()

	def := 5 * time.Minute
	for in, want := range map[string]time.Duration{
		"":    def,
		"90s": 90 * time.Second,
		"bad": def,
		"-1m": def,
	} {
		if got := (ToolConfig{Timeout: in}).TimeoutDuration(def); got != want {
			t.Errorf("TimeoutDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reconx.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading written default: %v", err)
	}
	def := DefaultConfig()
	if !reflect.DeepEqual(cfg.Tools, def.Tools) || !reflect.DeepEqual(cfg.RateLimits, def.RateLimits) {
		t.Errorf("round trip changed values:\n got %+v\nwant %+v", cfg, def)
	}
	if cfg.DBPath != def.DBPath || cfg.Headers != def.Headers {
		t.Errorf("round trip changed paths or headers: %+v", cfg)
	}
}
