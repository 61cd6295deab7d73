package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hakim/reconx/internal/headers"
	"github.com/hakim/reconx/internal/models"
)

const titleWidth = 50

var (
	rule = strings.Repeat("=", 80)
	dash = strings.Repeat("-", 80)
)

// WriteText renders the human-readable report
func WriteText(w io.Writer, run *models.RunResult) error {
	b := bufio.NewWriter(w)

	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, "RECONX RECONNAISSANCE REPORT")
	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "Generated: %s\n", run.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(b, "Run ID: %s\n", run.ID)
	fmt.Fprintf(b, "Targets: %s\n", strings.Join(run.Targets, ", "))
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b)

	fmt.Fprintln(b, "SUMMARY")
	fmt.Fprintln(b, dash)
	fmt.Fprintf(b, "Total Subdomains Discovered: %d\n", run.TotalSubdomains())
	fmt.Fprintf(b, "Total Live Hosts: %d\n", run.TotalLiveHosts())
	if len(run.Ports) > 0 {
		fmt.Fprintf(b, "Hosts with Open Ports: %d\n", run.HostsWithOpenPorts())
	}
	if len(run.Headers) > 0 {
		fmt.Fprintf(b, "Hosts Checked for Security Headers: %d\n", run.HeaderChecks())
	}
	fmt.Fprintln(b)
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b)

	for _, target := range run.Targets {
		writeTextTarget(b, run, target)
	}

	return b.Flush()
}

func writeTextTarget(b *bufio.Writer, run *models.RunResult, target string) {
	fmt.Fprintf(b, "\nTARGET: %s\n", target)
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b)

	if subs, ok := run.Subdomains[target]; ok {
		fmt.Fprintf(b, "[+] Subdomains (%d)\n", len(subs))
		fmt.Fprintln(b, dash)
		if len(subs) == 0 {
			fmt.Fprintln(b, "  none found")
		}
		shown := subs
		if len(shown) > SubdomainDisplayCap {
			shown = shown[:SubdomainDisplayCap]
		}
		for _, sub := range shown {
			fmt.Fprintf(b, "  - %s\n", sub)
		}
		if extra := len(subs) - len(shown); extra > 0 {
			fmt.Fprintf(b, "  ... and %d more\n", extra)
		}
		fmt.Fprintln(b)
	}

	if live, probed := run.LiveHosts[target]; probed {
		fmt.Fprintf(b, "[+] Live Hosts (%d)\n", len(live))
		fmt.Fprintln(b, dash)
		if len(live) == 0 {
			fmt.Fprintln(b, "  none found")
		}
		for _, host := range live {
			fmt.Fprintf(b, "  - %s [%d]", host.URL, host.StatusCode)
			if host.Title != "" {
				fmt.Fprintf(b, " - %s", truncate(host.Title, titleWidth))
			}
			fmt.Fprintln(b)
		}
		fmt.Fprintln(b)
	}

	if ports, scanned := run.Ports[target]; scanned {
		fmt.Fprintf(b, "[+] Port Scan Results (%d hosts)\n", len(ports))
		fmt.Fprintln(b, dash)
		if len(ports) == 0 {
			fmt.Fprintln(b, "  no open ports found")
		}
		for _, host := range sortedKeys(ports) {
			fmt.Fprintf(b, "  %s:\n", host)
			for _, p := range ports[host] {
				fmt.Fprintf(b, "    - %d/%s (%s)\n", p.Port, p.Protocol, p.Service)
			}
		}
		fmt.Fprintln(b)
	}

	if findings, checked := run.Headers[target]; checked {
		fmt.Fprintf(b, "[+] Security Headers Analysis (%d URLs)\n", len(findings))
		fmt.Fprintln(b, dash)
		if len(findings) == 0 {
			fmt.Fprintln(b, "  no URLs checked")
		}
		for _, url := range sortedKeys(findings) {
			f := findings[url]
			fmt.Fprintf(b, "  %s\n", url)
			if f.Failed() {
				fmt.Fprintf(b, "    Error: %s\n", f.Error)
				continue
			}
			fmt.Fprintf(b, "    Score: %d/%d\n", f.SecurityScore, headers.MaxScore())
			if len(f.HeadersMissing) > 0 {
				fmt.Fprintf(b, "    Missing: %s\n", strings.Join(f.HeadersMissing, ", "))
			}
		}
		fmt.Fprintln(b)
	}

	if errs := run.StageErrors[target]; len(errs) > 0 {
		fmt.Fprintln(b, "[!] Stage Errors")
		fmt.Fprintln(b, dash)
		for _, kind := range models.Stages() {
			if msg, ok := errs[kind]; ok {
				fmt.Fprintf(b, "  %s: %s\n", kind, msg)
			}
		}
		fmt.Fprintln(b)
	}

	fmt.Fprintln(b)
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b)
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
