package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hakim/reconx/internal/headers"
	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/stage"
	"github.com/hakim/reconx/internal/tools"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// scriptedBackend answers stage calls from fixed per-target tables.
type scriptedBackend struct {
	subdomains map[string][]string
	enumErr    map[string]error
	live       map[string][]tools.HttpxResult
	ports      map[string][]tools.NmapResult
	block      chan struct{}
}

func (b *scriptedBackend) Enumerate(ctx context.Context, domain string) ([]string, error) {
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, fmt.Errorf("subfinder: %w", ctx.Err())
		}
	}
	if err := b.enumErr[domain]; err != nil {
		return nil, err
	}
	return b.subdomains[domain], nil
}

func (b *scriptedBackend) Probe(ctx context.Context, hosts []string) ([]tools.HttpxResult, error) {
	var out []tools.HttpxResult
	for _, h := range hosts {
		out = append(out, b.live[h]...)
	}
	return out, nil
}

func (b *scriptedBackend) ScanHost(ctx context.Context, host string) ([]tools.NmapResult, error) {
	return b.ports[host], nil
}

// bareHeaders answers every URL with a response carrying no tracked headers.
type bareHeaders struct{}

func (bareHeaders) Check(ctx context.Context, url string) (models.HeaderFinding, error) {
	return headers.Analyze(http.Header{}).Finding(200), nil
}

func newPipeline(b stage.Backend, cfg PipelineConfig) *Pipeline {
	inv := stage.NewInvoker(b, bareHeaders{}, stage.Timeouts{}, stage.WithLogger(quietLogger()))
	cfg.Logger = quietLogger()
	return New(inv, cfg)
}

func TestRunExampleScenario(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{
		subdomains: map[string][]string{"example.com": {"example.com", "www.example.com"}},
		live: map[string][]tools.HttpxResult{
			"www.example.com": {{URL: "https://www.example.com", StatusCode: 200}},
		},
	}
	p := newPipeline(b, PipelineConfig{HeaderCheck: true})

	summary, err := p.Run(context.Background(), []string{"example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	run := summary.Run

	if got := len(run.Subdomains["example.com"]); got != 2 {
		t.Errorf("expected 2 subdomains, got %d", got)
	}
	if got := len(run.LiveHosts["example.com"]); got != 1 {
		t.Errorf("expected 1 live host, got %d", got)
	}
	if _, ok := run.Ports["example.com"]; ok {
		t.Error("ports must be absent when port scanning is disabled")
	}

	finding, ok := run.Headers["example.com"]["https://www.example.com"]
	if !ok {
		t.Fatal("missing header finding")
	}
	if finding.SecurityScore != 0 || len(finding.HeadersMissing) != 7 {
		t.Errorf("unexpected finding: %+v", finding)
	}
	if summary.Status != models.StatusComplete {
		t.Errorf("status = %s", summary.Status)
	}

	want := []State{StateEnumerating, StateProbing, StateSkipped, StateHeaderChecking, StateDone}
	if !reflect.DeepEqual(summary.Outcomes[0].Trace, want) {
		t.Errorf("trace = %v, want %v", summary.Outcomes[0].Trace, want)
	}
}

func TestRunZeroSubdomainTarget(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{
		subdomains: map[string][]string{"example.com": {"www.example.com"}},
		enumErr:    map[string]error{"empty.example": errors.New("exit status 1")},
		live: map[string][]tools.HttpxResult{
			"www.example.com": {{URL: "https://www.example.com", StatusCode: 200}},
		},
	}
	p := newPipeline(b, PipelineConfig{PortScan: true, HeaderCheck: true})

	summary, err := p.Run(context.Background(), []string{"empty.example", "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	run := summary.Run

	subs, ok := run.Subdomains["empty.example"]
	if !ok || len(subs) != 0 {
		t.Errorf("expected empty subdomain list, got %v (present=%v)", subs, ok)
	}
	for name, present := range map[string]bool{
		"live_hosts": hasKey(run.LiveHosts, "empty.example"),
		"ports":      hasKey(run.Ports, "empty.example"),
		"headers":    hasKey(run.Headers, "empty.example"),
	} {
		if present {
			t.Errorf("empty.example should be absent from %s", name)
		}
	}
	if _, ok := run.StageErrors["empty.example"][models.StageEnumerate]; !ok {
		t.Error("enumeration failure should be recorded")
	}
	if summary.Status != models.StatusPartial {
		t.Errorf("status = %s, want partial", summary.Status)
	}

	// The failing target must not affect the next one.
	if len(run.LiveHosts["example.com"]) != 1 {
		t.Errorf("example.com live hosts = %v", run.LiveHosts["example.com"])
	}
	// Root domain is prepended even when the enumerator omits it.
	if run.Subdomains["example.com"][0] != "example.com" {
		t.Errorf("subdomains = %v", run.Subdomains["example.com"])
	}
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}

func TestRunNoLiveHosts(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{subdomains: map[string][]string{"example.com": {"www.example.com"}}}
	p := newPipeline(b, PipelineConfig{PortScan: true, HeaderCheck: true})

	summary, err := p.Run(context.Background(), []string{"example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	run := summary.Run

	live, ok := run.LiveHosts["example.com"]
	if !ok || len(live) != 0 {
		t.Errorf("probing ran, expected empty live host list, got %v", live)
	}
	if hasKey(run.Ports, "example.com") || hasKey(run.Headers, "example.com") {
		t.Error("scanning and header checks must not run without live hosts")
	}
}

func TestRunToolMissingIsFatal(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{enumErr: map[string]error{
		"example.com": fmt.Errorf("running subfinder: %w", exec.ErrNotFound),
	}}
	p := newPipeline(b, PipelineConfig{})

	_, err := p.Run(context.Background(), []string{"example.com", "example.org"})
	if !errors.Is(err, stage.ErrToolMissing) {
		t.Errorf("expected ErrToolMissing, got %v", err)
	}
}

func TestRunInterrupted(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{
		subdomains: map[string][]string{"example.com": {"www.example.com"}},
		block:      make(chan struct{}),
	}
	p := newPipeline(b, PipelineConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	summary, err := p.Run(ctx, []string{"example.com", "example.org"})
	if !errors.Is(err, stage.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if summary == nil || summary.Status != models.StatusInterrupted {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !reflect.DeepEqual(summary.Run.Targets, []string{"example.com", "example.org"}) {
		t.Errorf("targets = %v", summary.Run.Targets)
	}
}

// panicRunner blows up during probing.
type panicRunner struct{ StageRunner }

func (panicRunner) Enumerate(ctx context.Context, domain string) ([]string, error) {
	return []string{domain}, nil
}

func (panicRunner) Probe(ctx context.Context, subdomains []string) ([]models.LiveHost, error) {
	panic("boom")
}

func TestRunRecoversStagePanic(t *testing.T) {
	t.Parallel()

	p := New(panicRunner{}, PipelineConfig{Logger: quietLogger()})

	summary, err := p.Run(context.Background(), []string{"example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := summary.Run.StageErrors["example.com"][models.StageProbe]
	if msg == "" {
		t.Fatal("expected probe error to be recorded")
	}
	if summary.Status != models.StatusPartial {
		t.Errorf("status = %s", summary.Status)
	}
}

func TestRunConcurrentTargetsKeepOrder(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{subdomains: map[string][]string{}}
	var targets []string
	for i := 0; i < 8; i++ {
		d := fmt.Sprintf("t%d.example", i)
		targets = append(targets, d)
		b.subdomains[d] = []string{"www." + d}
	}

	var mu sync.Mutex
	started := map[string]int{}
	p := newPipeline(b, PipelineConfig{
		Concurrency: 4,
		OnStageStart: func(target string, kind models.StageKind) {
			mu.Lock()
			started[target]++
			mu.Unlock()
		},
	})

	summary, err := p.Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(summary.Run.Targets, targets) {
		t.Errorf("target order changed: %v", summary.Run.Targets)
	}
	for _, d := range targets {
		if started[d] != 2 {
			t.Errorf("%s: expected enumerate and probe, got %d stages", d, started[d])
		}
		if len(summary.Run.Subdomains[d]) != 2 {
			t.Errorf("%s: subdomains = %v", d, summary.Run.Subdomains[d])
		}
	}
}

func TestSendCompletion(t *testing.T) {
	t.Parallel()

	got := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	summary := &RunSummary{
		Run:     models.NewRunResult([]string{"example.com"}),
		Status:  models.StatusComplete,
		Elapsed: 2 * time.Second,
	}
	n := &NotifyConfig{WebhookURL: srv.URL}
	if err := n.SendCompletion(context.Background(), summary, []string{"output/report.txt"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := <-got
	if body["status"] != "complete" || body["id"] != summary.Run.ID {
		t.Errorf("unexpected payload: %v", body)
	}

	var empty *NotifyConfig
	if err := empty.SendCompletion(context.Background(), summary, nil); err != nil {
		t.Errorf("nil config should be a no-op: %v", err)
	}
}

func TestScope(t *testing.T) {
	t.Parallel()

	s := &ScopeConfig{AllowedDomains: []string{"example.com", "*.example.org"}}

	tests := []struct {
		target string
		ok     bool
	}{
		{"example.com", true},
		{"EXAMPLE.com", true},
		{"www.example.com", false},
		{"api.example.org", true},
		{"a.b.example.org", true},
		{"example.org", false},
		{"evil.test", false},
	}
	for _, tt := range tests {
		if err := s.ValidateTarget(tt.target); (err == nil) != tt.ok {
			t.Errorf("ValidateTarget(%q) = %v, want ok=%v", tt.target, err, tt.ok)
		}
	}

	allowed, rejected := s.Filter([]string{"example.com", "evil.test", "api.example.org"})
	if !reflect.DeepEqual(allowed, []string{"example.com", "api.example.org"}) || len(rejected) != 1 {
		t.Errorf("Filter = %v, %v", allowed, rejected)
	}
}

func TestPresets(t *testing.T) {
	t.Parallel()

	p, err := GetPreset("FULL")
	if err != nil {
		t.Fatal(err)
	}
	cfg := PipelineConfig{}
	p.Apply(&cfg)
	if !cfg.PortScan || !cfg.HeaderCheck {
		t.Errorf("full preset should enable every stage: %+v", cfg)
	}

	if _, err := GetPreset("bogus"); err == nil {
		t.Error("expected error for unknown preset")
	}
	if n := len(BuiltinPresets()); n != 3 {
		t.Errorf("expected 3 presets, got %d", n)
	}
}
