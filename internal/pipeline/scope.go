package pipeline

import (
	"fmt"
	"strings"
)

// ScopeConfig defines allowed scanning boundaries.
// An empty ScopeConfig (no rules) allows any target.
type ScopeConfig struct {
	// AllowedDomains is a list of domain patterns the target must match.
	// Wildcard prefix ("*.example.com") matches any subdomain at any depth.
	// Exact entry ("example.com") matches only that literal value.
	AllowedDomains []string
}

// ValidateTarget checks if a domain is within scope.
// Returns nil if allowed, error if out of scope.
func (s *ScopeConfig) ValidateTarget(target string) error {
	if s == nil || len(s.AllowedDomains) == 0 {
		return nil
	}
	for _, pattern := range s.AllowedDomains {
		if domainMatches(target, pattern) {
			return nil
		}
	}
	return fmt.Errorf("target %q is outside allowed scope (domains: %s)",
		target, strings.Join(s.AllowedDomains, ", "))
}

// Filter splits targets into in-scope and rejected, preserving order.
func (s *ScopeConfig) Filter(targets []string) (allowed []string, rejected []error) {
	for _, t := range targets {
		if err := s.ValidateTarget(t); err != nil {
			rejected = append(rejected, err)
			continue
		}
		allowed = append(allowed, t)
	}
	return allowed, rejected
}

// domainMatches returns true when target satisfies the scope pattern.
//
//   - "*.example.com" matches "foo.example.com" and "a.b.example.com" but
//     not "example.com".
//   - "example.com" matches only the exact string "example.com".
//   - Comparison is case-insensitive.
func domainMatches(target, pattern string) bool {
	target = strings.ToLower(strings.TrimSpace(target))
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	if !strings.HasPrefix(pattern, "*.") {
		return target == pattern
	}

	suffix := pattern[1:] // ".example.com"
	return len(target) > len(suffix) && strings.HasSuffix(target, suffix)
}
