package models

import (
	"encoding/json"
	"net/url"
	"strings"
)

// LiveHost represents a subdomain that answered an HTTP(S) probe
type LiveHost struct {
	URL           string   `json:"url"`
	StatusCode    int      `json:"status_code"`
	Title         string   `json:"title"`
	Technologies  []string `json:"tech"`
	ContentLength int64    `json:"content_length"`
	Host          string   `json:"host"`
}

// Hostname returns the bare hostname of the live host URL, falling back to
// the Host field when the URL cannot be parsed.
func (h LiveHost) Hostname() string {
	if u, err := url.Parse(h.URL); err == nil {
		if name := u.Hostname(); name != "" {
			return strings.ToLower(name)
		}
		if u.Host != "" {
			return strings.ToLower(u.Host)
		}
	}
	return strings.ToLower(h.Host)
}

// Port represents an open port with service information
type Port struct {
	Port     int      `json:"port"`
	Protocol Protocol `json:"protocol"`
	Service  string   `json:"service"`
}

// HeaderFinding is the security header analysis for a single URL.
// When the request itself failed only Error is set.
type HeaderFinding struct {
	StatusCode      int               `json:"status_code"`
	HeadersFound    map[string]string `json:"headers_found"`
	HeadersMissing  []string          `json:"headers_missing"`
	SecurityScore   int               `json:"security_score"`
	Recommendations []string          `json:"recommendations"`
	Error           string            `json:"error,omitempty"`
}

// Failed reports whether the finding is the error variant
func (f HeaderFinding) Failed() bool {
	return f.Error != ""
}

type headerFindingError struct {
	Error string `json:"error"`
}

type headerFindingAlias HeaderFinding

// MarshalJSON emits only the error field for the error variant so the two
// shapes stay distinct on disk.
func (f HeaderFinding) MarshalJSON() ([]byte, error) {
	if f.Failed() {
		return json.Marshal(headerFindingError{Error: f.Error})
	}
	return json.Marshal(headerFindingAlias(f))
}
