// Package results accumulates per-target stage outputs into a single run
// result that can be handed to the report emitter.
package results

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hakim/reconx/internal/models"
)

var (
	// ErrUnknownTarget is returned when merging data for a target that is not
	// part of the run.
	ErrUnknownTarget = errors.New("target is not part of this run")
	// ErrRecordType is returned when the records do not match the stage kind.
	ErrRecordType = errors.New("records do not match stage kind")
)

// Aggregator is a concurrency-safe wrapper around a RunResult. Each
// (target, stage) pair holds the most recent merge; re-merging overwrites.
type Aggregator struct {
	mu  sync.Mutex
	run *models.RunResult
}

// New creates an aggregator for an empty run over targets. Every target
// starts with an empty subdomain list so report totals account for it.
func New(targets []string) *Aggregator {
	run := models.NewRunResult(targets)
	for _, t := range run.Targets {
		run.Subdomains[t] = []string{}
	}
	return &Aggregator{run: run}
}

// Merge stores records for a target's stage. The records type must match
// the kind: []string for enumerate, []models.LiveHost for probe,
// map[string][]models.Port for portscan and map[string]models.HeaderFinding
// for headers.
func (a *Aggregator) Merge(target string, kind models.StageKind, records any) error {
	switch kind {
	case models.StageEnumerate:
		subs, ok := records.([]string)
		if !ok {
			return fmt.Errorf("%w: %s got %T", ErrRecordType, kind, records)
		}
		return a.MergeSubdomains(target, subs)
	case models.StageProbe:
		live, ok := records.([]models.LiveHost)
		if !ok {
			return fmt.Errorf("%w: %s got %T", ErrRecordType, kind, records)
		}
		return a.MergeLiveHosts(target, live)
	case models.StagePortScan:
		ports, ok := records.(map[string][]models.Port)
		if !ok {
			return fmt.Errorf("%w: %s got %T", ErrRecordType, kind, records)
		}
		return a.MergePorts(target, ports)
	case models.StageHeaders:
		findings, ok := records.(map[string]models.HeaderFinding)
		if !ok {
			return fmt.Errorf("%w: %s got %T", ErrRecordType, kind, records)
		}
		return a.MergeHeaders(target, findings)
	default:
		return fmt.Errorf("unknown stage kind %q", kind)
	}
}

// MergeSubdomains sets the subdomain list for target
func (a *Aggregator) MergeSubdomains(target string, subdomains []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.run.HasTarget(target) {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	a.run.Subdomains[target] = cloneStrings(subdomains)
	a.clearError(target, models.StageEnumerate)
	return nil
}

// MergeLiveHosts sets the live host list for target
func (a *Aggregator) MergeLiveHosts(target string, live []models.LiveHost) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.run.HasTarget(target) {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	a.run.LiveHosts[target] = cloneLiveHosts(live)
	a.clearError(target, models.StageProbe)
	return nil
}

// MergePorts sets the per-hostname open ports for target
func (a *Aggregator) MergePorts(target string, ports map[string][]models.Port) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.run.HasTarget(target) {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	a.run.Ports[target] = clonePorts(ports)
	a.clearError(target, models.StagePortScan)
	return nil
}

// MergeHeaders sets the per-URL header findings for target
func (a *Aggregator) MergeHeaders(target string, findings map[string]models.HeaderFinding) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.run.HasTarget(target) {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	a.run.Headers[target] = cloneFindings(findings)
	a.clearError(target, models.StageHeaders)
	return nil
}

// RecordError notes that a stage ran for target and failed
func (a *Aggregator) RecordError(target string, kind models.StageKind, err error) error {
	if err == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.run.HasTarget(target) {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	if a.run.StageErrors[target] == nil {
		a.run.StageErrors[target] = make(map[models.StageKind]string)
	}
	a.run.StageErrors[target][kind] = err.Error()
	return nil
}

// clearError drops a stale error for (target, kind) so that a later merge
// replaces an earlier failed attempt. Callers hold a.mu.
func (a *Aggregator) clearError(target string, kind models.StageKind) {
	errs, ok := a.run.StageErrors[target]
	if !ok {
		return
	}
	delete(errs, kind)
	if len(errs) == 0 {
		delete(a.run.StageErrors, target)
	}
}

// Snapshot returns a deep copy of the current run
func (a *Aggregator) Snapshot() *models.RunResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	src := a.run
	out := &models.RunResult{
		ID:          src.ID,
		Targets:     cloneStrings(src.Targets),
		Subdomains:  make(map[string][]string, len(src.Subdomains)),
		LiveHosts:   make(map[string][]models.LiveHost, len(src.LiveHosts)),
		Ports:       make(map[string]map[string][]models.Port, len(src.Ports)),
		Headers:     make(map[string]map[string]models.HeaderFinding, len(src.Headers)),
		StageErrors: make(map[string]map[models.StageKind]string, len(src.StageErrors)),
		Timestamp:   src.Timestamp,
	}
	for t, subs := range src.Subdomains {
		out.Subdomains[t] = cloneStrings(subs)
	}
	for t, live := range src.LiveHosts {
		out.LiveHosts[t] = cloneLiveHosts(live)
	}
	for t, ports := range src.Ports {
		out.Ports[t] = clonePorts(ports)
	}
	for t, findings := range src.Headers {
		out.Headers[t] = cloneFindings(findings)
	}
	for t, errs := range src.StageErrors {
		m := make(map[models.StageKind]string, len(errs))
		for k, v := range errs {
			m[k] = v
		}
		out.StageErrors[t] = m
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneLiveHosts(in []models.LiveHost) []models.LiveHost {
	out := make([]models.LiveHost, len(in))
	for i, h := range in {
		h.Technologies = cloneStrings(h.Technologies)
		out[i] = h
	}
	return out
}

func clonePorts(in map[string][]models.Port) map[string][]models.Port {
	out := make(map[string][]models.Port, len(in))
	for host, ports := range in {
		cp := make([]models.Port, len(ports))
		copy(cp, ports)
		out[host] = cp
	}
	return out
}

func cloneFindings(in map[string]models.HeaderFinding) map[string]models.HeaderFinding {
	out := make(map[string]models.HeaderFinding, len(in))
	for url, f := range in {
		if !f.Failed() {
			found := make(map[string]string, len(f.HeadersFound))
			for k, v := range f.HeadersFound {
				found[k] = v
			}
			f.HeadersFound = found
			f.HeadersMissing = cloneStrings(f.HeadersMissing)
			f.Recommendations = cloneStrings(f.Recommendations)
		}
		out[url] = f
	}
	return out
}
