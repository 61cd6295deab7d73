// Package targets loads and validates the domains a run operates on.
package targets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrNoTargets is returned when no valid target remains after loading
var ErrNoTargets = errors.New("no valid targets")

var domainPattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9\-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// Rejection is an input entry that was dropped during loading
type Rejection struct {
	Line  int
	Value string
	Err   error
}

func (r Rejection) Error() string {
	if r.Line > 0 {
		return fmt.Sprintf("line %d: %q: %v", r.Line, r.Value, r.Err)
	}
	return fmt.Sprintf("%q: %v", r.Value, r.Err)
}

// Set is the loaded, deduplicated target list in input order
type Set struct {
	Targets  []string
	Rejected []Rejection
	// Duplicates counts entries dropped because an earlier line had the
	// same domain.
	Duplicates int
}

// Load reads targets from exactly one of a single domain or a list file.
func Load(domain, listPath string) (*Set, error) {
	switch {
	case domain != "" && listPath != "":
		return nil, errors.New("use either a single domain or a target list, not both")
	case domain != "":
		return FromLines(strings.NewReader(domain))
	case listPath != "":
		f, err := os.Open(listPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading target list: %v", ErrNoTargets, err)
		}
		defer f.Close()
		return FromLines(f)
	default:
		return nil, fmt.Errorf("%w: provide a domain or a target list", ErrNoTargets)
	}
}

// FromLines parses one domain per line. Blank lines and lines starting with
// '#' are ignored; invalid entries are collected in Rejected.
func FromLines(r io.Reader) (*Set, error) {
	set := &Set{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		d := Normalize(raw)
		if err := Validate(d); err != nil {
			set.Rejected = append(set.Rejected, Rejection{Line: line, Value: raw, Err: err})
			continue
		}
		if seen[d] {
			set.Duplicates++
			continue
		}
		seen[d] = true
		set.Targets = append(set.Targets, d)
	}
	if err := scanner.Err(); err != nil {
		return set, fmt.Errorf("reading targets: %w", err)
	}

	if len(set.Targets) == 0 {
		return set, ErrNoTargets
	}
	return set, nil
}

// Normalize lowercases a domain and strips a URL scheme, path, port and
// trailing dot if present.
func Normalize(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSuffix(d, ".")
}

// Validate checks that d is a syntactically valid registrable domain name
func Validate(d string) error {
	if len(d) > 253 || !domainPattern.MatchString(d) {
		return errors.New("not a valid domain name")
	}
	if ps, _ := publicsuffix.PublicSuffix(d); ps == d {
		return errors.New("is a public suffix")
	}
	return nil
}
