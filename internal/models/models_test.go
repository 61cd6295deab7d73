package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLiveHostHostname(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host LiveHost
		want string
	}{
		{LiveHost{URL: "https://WWW.Example.com"}, "www.example.com"},
		{LiveHost{URL: "http://api.example.com:8080/login"}, "api.example.com"},
		{LiveHost{URL: "::bad", Host: "Fallback.example.com"}, "fallback.example.com"},
	}
	for _, tt := range tests {
		if got := tt.host.Hostname(); got != tt.want {
			t.Errorf("Hostname(%q) = %q, want %q", tt.host.URL, got, tt.want)
		}
	}
}

func TestHeaderFindingJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(HeaderFinding{Error: "connection refused", StatusCode: 500})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"error":"connection refused"}` {
		t.Errorf("error variant = %s", data)
	}

	ok := HeaderFinding{
		StatusCode:      200,
		HeadersFound:    map[string]string{"X-Frame-Options": "DENY"},
		HeadersMissing:  []string{"HSTS"},
		SecurityScore:   1,
		Recommendations: []string{"Add HSTS header"},
	}
	data, err = json.Marshal(ok)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if _, has := fields["error"]; has {
		t.Error("success variant must not carry an error field")
	}
	if fields["security_score"] != float64(1) {
		t.Errorf("security_score = %v", fields["security_score"])
	}
}

func TestRunResultMeta(t *testing.T) {
	t.Parallel()

	run := NewRunResult([]string{"a.example", "b.example"})
	run.Subdomains["a.example"] = []string{"a.example", "www.a.example"}
	run.LiveHosts["a.example"] = []LiveHost{{URL: "https://www.a.example"}}
	run.Ports["a.example"] = map[string][]Port{"www.a.example": {{Port: 443, Protocol: ProtocolTCP, Service: "https"}}}

	meta := run.Meta(StatusPartial, 1500*time.Millisecond)
	if meta.ID != run.ID || meta.Status != StatusPartial || meta.ElapsedSeconds != 1.5 {
		t.Errorf("unexpected meta %+v", meta)
	}
	if meta.Subdomains != 2 || meta.LiveHosts != 1 || meta.HostsWithPorts != 1 || meta.HeaderChecks != 0 {
		t.Errorf("counts wrong: %+v", meta)
	}

	meta.Targets[0] = "changed"
	if run.Targets[0] != "a.example" {
		t.Error("meta must not alias run targets")
	}
	if !run.HasTarget("b.example") || run.HasTarget("c.example") {
		t.Error("HasTarget mismatch")
	}
}
