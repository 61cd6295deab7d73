package results

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/hakim/reconx/internal/models"
)

func TestNewSeedsEveryTarget(t *testing.T) {
	t.Parallel()

	agg := New([]string{"example.com", "example.org"})
	run := agg.Snapshot()

	if len(run.Subdomains) != 2 {
		t.Fatalf("expected 2 subdomain entries, got %v", run.Subdomains)
	}
	for _, target := range run.Targets {
		subs, ok := run.Subdomains[target]
		if !ok || subs == nil || len(subs) != 0 {
			t.Errorf("%s: expected empty subdomain list, got %v", target, subs)
		}
	}
	if len(run.LiveHosts) != 0 || len(run.Ports) != 0 || len(run.Headers) != 0 {
		t.Error("downstream maps should start empty")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	live := []models.LiveHost{{URL: "https://www.example.com", StatusCode: 200, Technologies: []string{}}}

	once := New([]string{"example.com"})
	twice := New([]string{"example.com"})

	for _, agg := range []*Aggregator{once, twice} {
		if err := agg.Merge("example.com", models.StageProbe, live); err != nil {
			t.Fatalf("merge: %v", err)
		}
	}
	if err := twice.Merge("example.com", models.StageProbe, live); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	a, b := once.Snapshot(), twice.Snapshot()
	if !reflect.DeepEqual(a.LiveHosts, b.LiveHosts) {
		t.Errorf("merging twice changed the result: %v vs %v", a.LiveHosts, b.LiveHosts)
	}
	if b.TotalLiveHosts() != 1 {
		t.Errorf("expected 1 live host, got %d", b.TotalLiveHosts())
	}
}

func TestMergeRejectsBadInput(t *testing.T) {
	t.Parallel()

	agg := New([]string{"example.com"})

	tests := []struct {
		name    string
		target  string
		kind    models.StageKind
		records any
		want    error
	}{
		{"unknown target", "example.net", models.StageEnumerate, []string{"a.example.net"}, ErrUnknownTarget},
		{"wrong records type", "example.com", models.StagePortScan, []string{"x"}, ErrRecordType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := agg.Merge(tt.target, tt.kind, tt.records)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := agg.RecordError("example.net", models.StageProbe, errors.New("x")); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("RecordError on unknown target: %v", err)
	}
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	agg := New([]string{"example.com"})
	if err := agg.MergeLiveHosts("example.com", []models.LiveHost{}); err != nil {
		t.Fatal(err)
	}
	if err := agg.RecordError("example.com", models.StageProbe, errors.New("probe timed out")); err != nil {
		t.Fatal(err)
	}

	run := agg.Snapshot()
	if got := run.StageErrors["example.com"][models.StageProbe]; got != "probe timed out" {
		t.Errorf("stage error = %q", got)
	}
	if _, ok := run.LiveHosts["example.com"]; !ok {
		t.Error("failed stage should still be present with an empty result")
	}
}

func TestMergeClearsEarlierStageError(t *testing.T) {
	t.Parallel()

	agg := New([]string{"example.com", "example.org"})
	if err := agg.MergeLiveHosts("example.com", []models.LiveHost{}); err != nil {
		t.Fatal(err)
	}
	if err := agg.RecordError("example.com", models.StageProbe, errors.New("probe timed out")); err != nil {
		t.Fatal(err)
	}
	if err := agg.RecordError("example.org", models.StageEnumerate, errors.New("subfinder exited 1")); err != nil {
		t.Fatal(err)
	}

	live := []models.LiveHost{{URL: "https://www.example.com", StatusCode: 200, Technologies: []string{}}}
	if err := agg.MergeLiveHosts("example.com", live); err != nil {
		t.Fatal(err)
	}

	run := agg.Snapshot()
	if len(run.LiveHosts["example.com"]) != 1 {
		t.Errorf("retry result should replace the failed one, got %v", run.LiveHosts["example.com"])
	}
	if _, ok := run.StageErrors["example.com"]; ok {
		t.Errorf("retry should clear the earlier error, got %v", run.StageErrors)
	}
	if got := run.StageErrors["example.org"][models.StageEnumerate]; got != "subfinder exited 1" {
		t.Errorf("other targets' errors must be kept, got %q", got)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	agg := New([]string{"example.com"})
	_ = agg.MergePorts("example.com", map[string][]models.Port{
		"www.example.com": {{Port: 443, Protocol: models.ProtocolTCP, Service: "https"}},
	})

	snap := agg.Snapshot()
	snap.Ports["example.com"]["www.example.com"][0].Port = 1
	snap.Targets[0] = "mutated"

	again := agg.Snapshot()
	if again.Ports["example.com"]["www.example.com"][0].Port != 443 {
		t.Error("snapshot shares port slices with the aggregator")
	}
	if again.Targets[0] != "example.com" {
		t.Error("snapshot shares the targets slice")
	}
}

func TestConcurrentMerges(t *testing.T) {
	t.Parallel()

	var targets []string
	for i := 0; i < 20; i++ {
		targets = append(targets, fmt.Sprintf("t%d.example", i))
	}
	agg := New(targets)

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = agg.MergeSubdomains(target, []string{target, "www." + target})
			_ = agg.MergeLiveHosts(target, []models.LiveHost{{URL: "https://www." + target}})
		}()
	}
	wg.Wait()

	run := agg.Snapshot()
	if run.TotalSubdomains() != 40 {
		t.Errorf("expected 40 subdomains, got %d", run.TotalSubdomains())
	}
	if run.TotalLiveHosts() != 20 {
		t.Errorf("expected 20 live hosts, got %d", run.TotalLiveHosts())
	}
	if !reflect.DeepEqual(run.Targets, targets) {
		t.Error("target order changed")
	}
}
