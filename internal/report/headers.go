package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hakim/reconx/internal/headers"
	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/storage"
)

// writeHeaderArtifacts writes security_headers.json and the human-readable
// security_headers_summary.txt.
func writeHeaderArtifacts(dir string, run *models.RunResult) ([]string, error) {
	merged := make(map[string]models.HeaderFinding)
	for _, target := range run.Targets {
		for url, f := range run.Headers[target] {
			merged[url] = f
		}
	}
	if len(merged) == 0 {
		return nil, nil
	}

	js := filepath.Join(dir, "security_headers.json")
	if err := storage.WriteJSON(js, merged); err != nil {
		return nil, err
	}

	summary := filepath.Join(dir, "security_headers_summary.txt")
	err := writeFile(summary, func(w io.Writer) error { return WriteHeaderSummary(w, merged) })
	if err != nil {
		return []string{js}, err
	}

	return []string{js, summary}, nil
}

// WriteHeaderSummary renders per-URL scores, missing headers and
// recommendations.
func WriteHeaderSummary(w io.Writer, findings map[string]models.HeaderFinding) error {
	b := bufio.NewWriter(w)
	bar := strings.Repeat("=", 70)

	fmt.Fprintln(b, bar)
	fmt.Fprintln(b, "SECURITY HEADERS ANALYSIS SUMMARY")
	fmt.Fprintln(b, bar)
	fmt.Fprintln(b)

	for _, url := range sortedKeys(findings) {
		f := findings[url]
		if f.Failed() {
			fmt.Fprintf(b, "\n[!] %s\n", url)
			fmt.Fprintf(b, "    Error: %s\n", f.Error)
			continue
		}

		fmt.Fprintf(b, "\n[*] %s\n", url)
		fmt.Fprintf(b, "    Status: %d\n", f.StatusCode)
		fmt.Fprintf(b, "    Security Score: %d/%d\n", f.SecurityScore, headers.MaxScore())
		if len(f.HeadersMissing) > 0 {
			fmt.Fprintf(b, "    Missing Headers: %s\n", strings.Join(f.HeadersMissing, ", "))
		}
		if len(f.Recommendations) > 0 {
			fmt.Fprintln(b, "    Recommendations:")
			for _, rec := range f.Recommendations {
				fmt.Fprintf(b, "      - %s\n", rec)
			}
		}
		fmt.Fprintln(b, "\n"+strings.Repeat("-", 70))
	}

	return b.Flush()
}
