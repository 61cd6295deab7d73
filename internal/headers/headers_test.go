package headers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	t.Run("empty headers score zero", func(t *testing.T) {
		t.Parallel()

		a := Analyze(nil)
		if a.Score != 0 {
			t.Errorf("score = %d, want 0", a.Score)
		}
		if len(a.Missing) != MaxScore() {
			t.Errorf("missing = %v, want all %d tracked names", a.Missing, MaxScore())
		}
		for i, p := range Tracked() {
			if a.Missing[i] != p.Name {
				t.Errorf("missing[%d] = %q, want %q", i, a.Missing[i], p.Name)
			}
		}
		if len(a.Recommendations) != MaxScore() {
			t.Errorf("expected one recommendation per missing header, got %v", a.Recommendations)
		}
		if a.Found == nil {
			t.Error("found map should be non-nil")
		}
	})

	t.Run("all tracked headers score max", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		for _, p := range Tracked() {
			h.Set(p.Header, "x")
		}

		a := Analyze(h)
		if a.Score != MaxScore() || a.Score != 7 {
			t.Errorf("score = %d, want 7", a.Score)
		}
		if len(a.Missing) != 0 {
			t.Errorf("missing = %v, want none", a.Missing)
		}
		if len(a.Recommendations) != 0 {
			t.Errorf("recommendations = %v, want none", a.Recommendations)
		}
	})

	t.Run("recommendation order", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		for _, p := range Tracked()[1:] {
			h.Set(p.Header, "x")
		}
		h.Set("X-Powered-By", "PHP/8.1")
		h.Set("Server", "nginx/1.25")

		a := Analyze(h)
		want := []string{
			"Add HSTS header",
			"Remove X-Powered-By header (information disclosure)",
			"Consider hiding/obfuscating Server header: nginx/1.25",
		}
		if strings.Join(a.Recommendations, "|") != strings.Join(want, "|") {
			t.Errorf("recommendations = %v, want %v", a.Recommendations, want)
		}
		if a.Score != len(a.Found) {
			t.Errorf("score %d != len(found) %d", a.Score, len(a.Found))
		}
	})

	t.Run("non-canonical keys", func(t *testing.T) {
		t.Parallel()

		a := Analyze(http.Header{"strict-transport-security": {"max-age=1"}})
		if a.Found["HSTS"] != "max-age=1" {
			t.Errorf("expected HSTS to be found, got %v", a.Found)
		}
	})
}

func TestChecker(t *testing.T) {
	t.Parallel()

	t.Run("follows redirects and sends user agent", func(t *testing.T) {
		t.Parallel()

		uaCh := make(chan string, 1)
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final", http.StatusFound)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
			uaCh <- r.UserAgent()
			w.Header().Set("X-Frame-Options", "DENY")
			w.WriteHeader(http.StatusOK)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := NewChecker(CheckerConfig{Timeout: 5 * time.Second, UserAgent: "ReconX Security Scanner"})
		f, err := c.Check(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", f.StatusCode)
		}
		if f.SecurityScore != 1 || f.HeadersFound["X-Frame-Options"] != "DENY" {
			t.Errorf("unexpected finding: %+v", f)
		}
		if ua := <-uaCh; ua != "ReconX Security Scanner" {
			t.Errorf("user agent = %q", ua)
		}
	})

	t.Run("verifies TLS by default", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		c := NewChecker(CheckerConfig{Timeout: 5 * time.Second})
		if _, err := c.Check(context.Background(), srv.URL); err == nil {
			t.Error("expected certificate error with verification enabled")
		}

		insecure := NewChecker(CheckerConfig{Timeout: 5 * time.Second, InsecureSkipVerify: true})
		if _, err := insecure.Check(context.Background(), srv.URL); err != nil {
			t.Errorf("unexpected error with verification disabled: %v", err)
		}
	})
}
