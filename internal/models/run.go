package models

import (
	"time"

	"github.com/google/uuid"
)

// RunResult is the run-wide aggregate of every target's stage outputs.
//
// A target missing from LiveHosts, Ports or Headers means that stage never
// ran for it. A stage that ran and failed is present with an empty value and
// has a matching entry in StageErrors.
type RunResult struct {
	ID          string                              `json:"id"`
	Targets     []string                            `json:"targets"`
	Subdomains  map[string][]string                 `json:"subdomains"`
	LiveHosts   map[string][]LiveHost               `json:"live_hosts"`
	Ports       map[string]map[string][]Port        `json:"ports"`
	Headers     map[string]map[string]HeaderFinding `json:"headers"`
	StageErrors map[string]map[StageKind]string     `json:"stage_errors"`
	Timestamp   time.Time                           `json:"timestamp"`
}

// NewRunResult creates an empty run for the given targets
func NewRunResult(targets []string) *RunResult {
	t := make([]string, len(targets))
	copy(t, targets)
	return &RunResult{
		ID:          uuid.New().String(),
		Targets:     t,
		Subdomains:  make(map[string][]string),
		LiveHosts:   make(map[string][]LiveHost),
		Ports:       make(map[string]map[string][]Port),
		Headers:     make(map[string]map[string]HeaderFinding),
		StageErrors: make(map[string]map[StageKind]string),
		Timestamp:   time.Now().UTC().Truncate(time.Second),
	}
}

// HasTarget reports whether target is part of this run
func (r *RunResult) HasTarget(target string) bool {
	for _, t := range r.Targets {
		if t == target {
			return true
		}
	}
	return false
}

// TotalSubdomains returns the number of subdomains across all targets
func (r *RunResult) TotalSubdomains() int {
	total := 0
	for _, subs := range r.Subdomains {
		total += len(subs)
	}
	return total
}

// TotalLiveHosts returns the number of live hosts across all targets
func (r *RunResult) TotalLiveHosts() int {
	total := 0
	for _, hosts := range r.LiveHosts {
		total += len(hosts)
	}
	return total
}

// HostsWithOpenPorts returns the number of hostnames that reported at least
// one open port.
func (r *RunResult) HostsWithOpenPorts() int {
	total := 0
	for _, hosts := range r.Ports {
		total += len(hosts)
	}
	return total
}

// HeaderChecks returns the number of URLs checked for security headers
func (r *RunResult) HeaderChecks() int {
	total := 0
	for _, urls := range r.Headers {
		total += len(urls)
	}
	return total
}

// Meta returns the summary record persisted in the run history store
func (r *RunResult) Meta(status RunStatus, elapsed time.Duration) RunMeta {
	return RunMeta{
		ID:             r.ID,
		Targets:        append([]string(nil), r.Targets...),
		StartedAt:      r.Timestamp,
		Status:         status,
		ElapsedSeconds: elapsed.Seconds(),
		Subdomains:     r.TotalSubdomains(),
		LiveHosts:      r.TotalLiveHosts(),
		HostsWithPorts: r.HostsWithOpenPorts(),
		HeaderChecks:   r.HeaderChecks(),
	}
}

// RunMeta contains metadata about a completed run
type RunMeta struct {
	ID             string    `json:"id"`
	Targets        []string  `json:"targets"`
	StartedAt      time.Time `json:"started_at"`
	Status         RunStatus `json:"status"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Subdomains     int       `json:"subdomains"`
	LiveHosts      int       `json:"live_hosts"`
	HostsWithPorts int       `json:"hosts_with_ports"`
	HeaderChecks   int       `json:"header_checks"`
	Reports        []string  `json:"reports,omitempty"`
}
