// Package headers scores HTTP responses against a fixed table of security
// headers and fetches live URLs for analysis.
package headers

import (
	"fmt"
	"net/http"

	"github.com/hakim/reconx/internal/models"
)

// Policy pairs a response header with the short name used in reports
type Policy struct {
	Header string
	Name   string
}

// trackedHeaders is the fixed policy table, in report order.
var trackedHeaders = []Policy{
	{Header: "Strict-Transport-Security", Name: "HSTS"},
	{Header: "Content-Security-Policy", Name: "CSP"},
	{Header: "X-Frame-Options", Name: "X-Frame-Options"},
	{Header: "X-Content-Type-Options", Name: "X-Content-Type-Options"},
	{Header: "X-XSS-Protection", Name: "X-XSS-Protection"},
	{Header: "Referrer-Policy", Name: "Referrer-Policy"},
	{Header: "Permissions-Policy", Name: "Permissions-Policy"},
}

// Tracked returns a copy of the policy table
func Tracked() []Policy {
	out := make([]Policy, len(trackedHeaders))
	copy(out, trackedHeaders)
	return out
}

// MaxScore is the best achievable security score
func MaxScore() int {
	return len(trackedHeaders)
}

// Analysis is the outcome of scoring one set of response headers
type Analysis struct {
	Found           map[string]string
	Missing         []string
	Score           int
	Recommendations []string
}

// Analyze scores response headers against the policy table. It has no
// failure mode; an empty or nil header set scores zero.
func Analyze(h http.Header) Analysis {
	a := Analysis{
		Found:           make(map[string]string),
		Missing:         []string{},
		Recommendations: []string{},
	}

	h = canonical(h)

	for _, p := range trackedHeaders {
		if values, ok := h[http.CanonicalHeaderKey(p.Header)]; ok && len(values) > 0 {
			a.Found[p.Name] = values[0]
			continue
		}
		a.Missing = append(a.Missing, p.Name)
		a.Recommendations = append(a.Recommendations, fmt.Sprintf("Add %s header", p.Name))
	}
	a.Score = len(a.Found)

	if _, ok := h["X-Powered-By"]; ok {
		a.Recommendations = append(a.Recommendations, "Remove X-Powered-By header (information disclosure)")
	}

	if server := h.Get("Server"); server != "" {
		a.Recommendations = append(a.Recommendations, fmt.Sprintf("Consider hiding/obfuscating Server header: %s", server))
	}

	return a
}

// Finding converts the analysis into the report record for a response
func (a Analysis) Finding(statusCode int) models.HeaderFinding {
	return models.HeaderFinding{
		StatusCode:      statusCode,
		HeadersFound:    a.Found,
		HeadersMissing:  a.Missing,
		SecurityScore:   a.Score,
		Recommendations: a.Recommendations,
	}
}

// canonical rekeys h so lookups work for hand-built maps with
// non-canonical names.
func canonical(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		key := http.CanonicalHeaderKey(k)
		out[key] = append(out[key], v...)
	}
	return out
}
