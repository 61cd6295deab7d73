package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/hakim/reconx/internal/headers"
	"github.com/hakim/reconx/internal/models"
)

// WriteMarkdown renders the run as a Markdown document. Unlike the text
// report, subdomain listings are not truncated.
func WriteMarkdown(w io.Writer, run *models.RunResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("ReconX Reconnaissance Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.ID + "`"},
			{"Generated", run.Timestamp.Local().Format("2006-01-02 15:04:05 MST")},
			{"Targets", cell(strings.Join(run.Targets, ", "))},
		},
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	rows := [][]string{
		{"Subdomains", strconv.Itoa(run.TotalSubdomains())},
		{"Live hosts", strconv.Itoa(run.TotalLiveHosts())},
	}
	if len(run.Ports) > 0 {
		rows = append(rows, []string{"Hosts with open ports", strconv.Itoa(run.HostsWithOpenPorts())})
	}
	if len(run.Headers) > 0 {
		rows = append(rows, []string{"Header checks", strconv.Itoa(run.HeaderChecks())})
	}
	md.Table(markdown.TableSet{Header: []string{"Metric", "Count"}, Rows: rows})
	md.PlainText("")

	for _, target := range run.Targets {
		writeMarkdownTarget(md, run, target)
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by reconx*")

	return md.Build()
}

func writeMarkdownTarget(md *markdown.Markdown, run *models.RunResult, target string) {
	md.H2(target)
	md.PlainText("")

	for _, kind := range models.Stages() {
		if msg, ok := run.StageErrors[target][kind]; ok {
			md.Warningf("%s stage failed: %s", kind, msg)
			md.PlainText("")
		}
	}

	subs := run.Subdomains[target]
	md.H3("Subdomains (" + strconv.Itoa(len(subs)) + ")")
	md.PlainText("")
	if len(subs) == 0 {
		md.PlainText("None found.")
	} else {
		md.BulletList(subs...)
	}
	md.PlainText("")

	live, probed := run.LiveHosts[target]
	if !probed {
		return
	}
	md.H3("Live Hosts (" + strconv.Itoa(len(live)) + ")")
	md.PlainText("")
	if len(live) == 0 {
		md.PlainText("No live HTTP services discovered.")
	} else {
		rows := make([][]string, len(live))
		for i, h := range live {
			tech := "-"
			if len(h.Technologies) > 0 {
				tech = strings.Join(h.Technologies, ", ")
			}
			rows[i] = []string{cell(h.URL), strconv.Itoa(h.StatusCode), cell(orDash(h.Title)), cell(tech)}
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Status", "Title", "Technologies"}, Rows: rows})
	}
	md.PlainText("")

	if ports, ok := run.Ports[target]; ok {
		md.H3("Open Ports")
		md.PlainText("")
		if len(ports) == 0 {
			md.PlainText("No hosts with open ports found.")
		} else {
			var rows [][]string
			for _, host := range sortedKeys(ports) {
				for _, p := range ports[host] {
					rows = append(rows, []string{host, strconv.Itoa(p.Port), string(p.Protocol), cell(p.Service)})
				}
			}
			md.Table(markdown.TableSet{Header: []string{"Host", "Port", "Protocol", "Service"}, Rows: rows})
		}
		md.PlainText("")
	}

	if findings, ok := run.Headers[target]; ok {
		md.H3("Security Headers")
		md.PlainText("")
		var rows [][]string
		for _, url := range sortedKeys(findings) {
			f := findings[url]
			if f.Failed() {
				rows = append(rows, []string{cell(url), "-", cell("error: " + f.Error)})
				continue
			}
			score := strconv.Itoa(f.SecurityScore) + "/" + strconv.Itoa(headers.MaxScore())
			rows = append(rows, []string{cell(url), score, cell(orDash(strings.Join(f.HeadersMissing, ", ")))})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Score", "Missing"}, Rows: rows})
		md.PlainText("")
	}
}

// cell escapes pipes so free text cannot break a table row
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
