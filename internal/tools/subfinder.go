package tools

import (
	"context"
	"fmt"
	"strings"
)

// RunSubfinder executes subfinder for the given domain and returns the
// discovered hostnames, normalized and deduplicated in output order.
func RunSubfinder(ctx context.Context, domain string, binaryPath string) ([]string, error) {
	binary := "subfinder"
	if binaryPath != "" {
		binary = binaryPath
	}

	args := []string{
		"-d", domain,
		"-silent",
	}

	result, err := RunTool(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("subfinder execution failed: %w", err)
	}

	seen := make(map[string]bool)
	var hosts []string
	for _, line := range Lines(result.Stdout) {
		host := NormalizeHostname(line)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}

	return hosts, nil
}

// NormalizeHostname normalizes a hostname for deduplication.
// It converts to lowercase, strips trailing dots and whitespace.
// Returns empty string for invalid entries (wildcards, embedded spaces).
func NormalizeHostname(name string) string {
	s := strings.TrimSpace(name)

	if strings.HasPrefix(s, "*") || strings.ContainsAny(s, " \t") {
		return ""
	}

	s = strings.ToLower(s)
	s = strings.TrimSuffix(s, ".")

	return s
}
