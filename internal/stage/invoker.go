// Package stage wraps each external capability call with a per-invocation
// timeout, classifies its failures, and normalizes its output into the
// report data model.
package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/tools"
)

// HeaderChecker fetches one URL and analyzes its security headers
type HeaderChecker interface {
	Check(ctx context.Context, url string) (models.HeaderFinding, error)
}

// Timeouts are independent per-invocation budgets
type Timeouts struct {
	Enumerate time.Duration
	Probe     time.Duration
	// PortScanHost applies to each host's scan separately.
	PortScanHost time.Duration
}

// Invoker runs single stages for a single target
type Invoker struct {
	backend         Backend
	headers         HeaderChecker
	timeouts        Timeouts
	portParallelism int
	log             logrus.FieldLogger
}

// Option configures an Invoker
type Option func(*Invoker)

// WithLogger sets the logger used for per-host warnings
func WithLogger(l logrus.FieldLogger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.log = l
		}
	}
}

// WithPortParallelism bounds concurrent per-host port scans
func WithPortParallelism(n int) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.portParallelism = n
		}
	}
}

// NewInvoker creates an Invoker over the given capabilities
func NewInvoker(backend Backend, headers HeaderChecker, timeouts Timeouts, opts ...Option) *Invoker {
	inv := &Invoker{
		backend:         backend,
		headers:         headers,
		timeouts:        timeouts,
		portParallelism: 1,
		log:             logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// withBudget derives a child context carrying the invocation timeout
func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Enumerate discovers subdomains for domain. On success the domain itself is
// always the first entry.
func (i *Invoker) Enumerate(ctx context.Context, domain string) ([]string, error) {
	domain = tools.NormalizeHostname(domain)
	if domain == "" {
		return []string{}, nil
	}

	sctx, cancel := withBudget(ctx, i.timeouts.Enumerate)
	defer cancel()

	found, err := i.backend.Enumerate(sctx, domain)
	if err != nil {
		return []string{}, classify(ctx, models.StageEnumerate, domain, err)
	}

	subdomains := []string{domain}
	for _, name := range found {
		name = tools.NormalizeHostname(name)
		if name == "" || name == domain {
			continue
		}
		subdomains = append(subdomains, name)
	}

	return dedupe(subdomains), nil
}

// Probe finds the live HTTP(S) services among subdomains. Results whose host
// is not one of the given subdomains are dropped.
func (i *Invoker) Probe(ctx context.Context, subdomains []string) ([]models.LiveHost, error) {
	if len(subdomains) == 0 {
		return []models.LiveHost{}, nil
	}

	allowed := make(map[string]bool, len(subdomains))
	for _, s := range subdomains {
		allowed[strings.ToLower(s)] = true
	}

	sctx, cancel := withBudget(ctx, i.timeouts.Probe)
	defer cancel()

	results, err := i.backend.Probe(sctx, subdomains)
	if err != nil {
		return []models.LiveHost{}, classify(ctx, models.StageProbe, fmt.Sprintf("%d hosts", len(subdomains)), err)
	}

	live := []models.LiveHost{}
	seen := make(map[string]bool)
	for _, r := range results {
		host := normalizeLiveHost(r)
		if host.URL == "" || seen[host.URL] {
			continue
		}
		if !allowed[host.Hostname()] {
			i.log.WithField("url", host.URL).Debug("dropping probe result outside the subdomain set")
			continue
		}
		seen[host.URL] = true
		live = append(live, host)
	}

	return live, nil
}

// normalizeLiveHost maps raw prober fields onto the data model, applying
// documented defaults for missing fields.
func normalizeLiveHost(r tools.HttpxResult) models.LiveHost {
	tech := r.Technologies
	if tech == nil {
		tech = []string{}
	}
	return models.LiveHost{
		URL:           strings.TrimSpace(r.URL),
		StatusCode:    r.StatusCode,
		Title:         r.Title,
		Technologies:  tech,
		ContentLength: r.ContentLength,
		Host:          r.Host,
	}
}

// ScanPorts scans each unique hostname of the live hosts with its own
// timeout. Only hosts with at least one open port appear in the result. A
// failed host is logged and omitted; an error is returned only when every
// host failed or the run was interrupted.
func (i *Invoker) ScanPorts(ctx context.Context, live []models.LiveHost) (map[string][]models.Port, error) {
	result := make(map[string][]models.Port)

	hosts := uniqueHostnames(live)
	if len(hosts) == 0 {
		return result, nil
	}

	var (
		mu     sync.Mutex
		failed []error
	)

	g := new(errgroup.Group)
	g.SetLimit(i.portParallelism)

	for _, host := range hosts {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				failed = append(failed, classify(ctx, models.StagePortScan, host, ctx.Err()))
				mu.Unlock()
				return nil
			}

			hctx, cancel := withBudget(ctx, i.timeouts.PortScanHost)
			defer cancel()

			open, err := i.backend.ScanHost(hctx, host)
			if err != nil {
				serr := classify(ctx, models.StagePortScan, host, err)
				i.log.WithFields(logrus.Fields{"host": host, "error": serr}).Warn("port scan failed")
				mu.Lock()
				failed = append(failed, serr)
				mu.Unlock()
				return nil
			}

			ports := normalizePorts(open)
			if len(ports) == 0 {
				return nil
			}

			mu.Lock()
			result[host] = ports
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return result, &Error{Kind: models.StagePortScan, Class: ErrInterrupted, Err: ctx.Err()}
	}
	for _, err := range failed {
		if IsFatal(err) {
			return result, err
		}
	}
	if len(failed) == len(hosts) {
		return result, errors.Join(failed...)
	}

	return result, nil
}

func normalizePorts(open []tools.NmapResult) []models.Port {
	ports := make([]models.Port, 0, len(open))
	for _, p := range open {
		if p.Port < 1 || p.Port > 65535 {
			continue
		}
		proto := models.Protocol(strings.ToLower(p.Protocol))
		if proto != models.ProtocolUDP {
			proto = models.ProtocolTCP
		}
		service := p.Service
		if service == "" {
			service = models.UnknownService
		}
		ports = append(ports, models.Port{Port: p.Port, Protocol: proto, Service: service})
	}
	return ports
}

// CheckHeaders fetches every live URL and analyzes its security headers.
// Request failures become error findings for that URL.
func (i *Invoker) CheckHeaders(ctx context.Context, live []models.LiveHost) (map[string]models.HeaderFinding, error) {
	result := make(map[string]models.HeaderFinding)

	for _, host := range live {
		if _, done := result[host.URL]; done || host.URL == "" {
			continue
		}
		if ctx.Err() != nil {
			return result, &Error{Kind: models.StageHeaders, Class: ErrInterrupted, Err: ctx.Err()}
		}

		finding, err := i.headers.Check(ctx, host.URL)
		if err != nil {
			if ctx.Err() != nil {
				return result, &Error{Kind: models.StageHeaders, Input: host.URL, Class: ErrInterrupted, Err: err}
			}
			i.log.WithFields(logrus.Fields{"url": host.URL, "error": err}).Debug("header check failed")
			finding = models.HeaderFinding{Error: err.Error()}
		}
		result[host.URL] = finding
	}

	return result, nil
}

// uniqueHostnames returns the bare hostnames of live hosts in first-seen order
func uniqueHostnames(live []models.LiveHost) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range live {
		name := h.Hostname()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
