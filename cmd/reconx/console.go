package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/hakim/reconx/internal/models"
)

var (
	info    = color.New(color.FgCyan).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	fail    = color.New(color.FgRed).SprintFunc()
	accent  = color.New(color.FgMagenta, color.Bold).SprintFunc()
)

const banner = `
    ____                      _  __
   / __ \___  _________  ____| |/ /
  / /_/ / _ \/ ___/ __ \/ __ \   /
 / _, _/  __/ /__/ /_/ / / / /   |
/_/ |_|\___/\___/\____/_/ /_/_/|_|
`

// console prints human progress lines. Everything is suppressed in silent
// mode except the final summary.
type console struct {
	w      io.Writer
	silent bool
}

func (c console) printf(format string, args ...any) {
	if c.silent {
		return
	}
	fmt.Fprintf(c.w, format, args...)
}

func (c console) banner() {
	c.printf("%s\n", accent(banner))
	c.printf("        %s %s\n\n", info("Automated Reconnaissance Pipeline"), version)
}

var stageLabels = map[models.StageKind]string{
	models.StageEnumerate: "Enumerating subdomains",
	models.StageProbe:     "Probing for live HTTP services",
	models.StagePortScan:  "Scanning ports",
	models.StageHeaders:   "Checking security headers",
}

func stageIndex(kind models.StageKind) int {
	for i, k := range models.Stages() {
		if k == kind {
			return i + 1
		}
	}
	return 0
}

func (c console) stageStart(target string, kind models.StageKind) {
	c.printf("%s %s for %s...\n",
		info(fmt.Sprintf("[%d/%d]", stageIndex(kind), len(models.Stages()))),
		stageLabels[kind], target)
}

func (c console) stageDone(target string, kind models.StageKind, records int, err error, elapsed time.Duration) {
	if err != nil {
		c.printf("%s %s %s failed after %s: %v\n", fail("[!]"), target, kind, elapsed.Round(time.Millisecond), err)
		return
	}

	var what string
	switch kind {
	case models.StageEnumerate:
		what = "subdomains"
	case models.StageProbe:
		what = "live hosts"
	case models.StagePortScan:
		what = "hosts with open ports"
	case models.StageHeaders:
		what = "URLs checked"
	}
	c.printf("%s Found %d %s (%s)\n\n", success("[✓]"), records, what, elapsed.Round(time.Millisecond))
}

func (c console) summary(summary *runOutput) {
	run := summary.Run
	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "%s\n", accent("RECONNAISSANCE COMPLETE"))
	fmt.Fprintf(c.w, "    Run ID:      %s\n", run.ID)
	fmt.Fprintf(c.w, "    Status:      %s\n", statusColor(summary.Status))
	fmt.Fprintf(c.w, "    Elapsed:     %s\n", summary.Elapsed.Round(time.Second))
	fmt.Fprintf(c.w, "    Targets:     %d\n", len(run.Targets))
	fmt.Fprintf(c.w, "    Subdomains:  %d\n", run.TotalSubdomains())
	fmt.Fprintf(c.w, "    Live hosts:  %d\n", run.TotalLiveHosts())
	if len(run.Ports) > 0 {
		fmt.Fprintf(c.w, "    Open ports:  %d hosts\n", run.HostsWithOpenPorts())
	}
	if len(run.Headers) > 0 {
		fmt.Fprintf(c.w, "    Headers:     %d URLs\n", run.HeaderChecks())
	}

	if len(summary.Reports) > 0 {
		fmt.Fprintf(c.w, "\n%s Reports:\n", success("[+]"))
		for _, p := range summary.Reports {
			fmt.Fprintf(c.w, "    - %s\n", p)
		}
	}

	if len(run.StageErrors) > 0 {
		fmt.Fprintf(c.w, "\n%s Stage errors:\n", warn("[!]"))
		for _, target := range run.Targets {
			for _, kind := range models.Stages() {
				if msg, ok := run.StageErrors[target][kind]; ok {
					fmt.Fprintf(c.w, "    %-20s %-10s %s\n", target, kind, msg)
				}
			}
		}
	}
	fmt.Fprintln(c.w)
}

func statusColor(s models.RunStatus) string {
	switch s {
	case models.StatusComplete:
		return success(string(s))
	case models.StatusPartial:
		return warn(string(s))
	default:
		return fail(string(s))
	}
}
