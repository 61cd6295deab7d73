package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakim/reconx/internal/config"
	"github.com/hakim/reconx/internal/headers"
	"github.com/hakim/reconx/internal/metrics"
	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/pipeline"
	"github.com/hakim/reconx/internal/report"
	"github.com/hakim/reconx/internal/stage"
	"github.com/hakim/reconx/internal/storage"
	"github.com/hakim/reconx/internal/targets"
	"github.com/hakim/reconx/internal/tools"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the reconnaissance pipeline against one or more domains",
	Long: `Run the reconnaissance pipeline for every target.

Each target goes through subdomain enumeration and HTTP probing. Port scanning
(--ports) and security header analysis (--headers) are optional. Targets run
one at a time unless --concurrency is raised.

Results are saved to the output directory:
  <target>_subdomains.txt, live_hosts.txt/.json, ports.json,
  security_headers.json, security_headers_summary.txt and
  report_<timestamp>.{txt,json,md} / live_hosts_<timestamp>.csv

Examples:
  reconx scan -d example.com
  reconx scan -l targets.txt --ports --headers -o all
  reconx scan -d example.com --preset web --scope "*.example.com,example.com"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd)
	},
}

func init() {
	addScanFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}

// addScanFlags registers the scan flags on cmd. The root command carries
// them too so that `reconx -d example.com` works.
func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("domain", "d", "", "single target domain (e.g. example.com)")
	f.StringP("list", "l", "", "file containing one domain per line")
	f.Bool("ports", false, "enable port scanning with nmap")
	f.Bool("headers", false, "enable security header analysis")
	f.Int("threads", 50, "number of httpx threads")
	f.Int("top-ports", 100, "number of top ports nmap scans per host")
	f.StringP("output", "o", config.FormatText, "report format: text, json, csv, markdown or all")
	f.String("output-dir", "output", "output directory")
	f.Bool("no-banner", false, "do not print the banner")
	f.Int("concurrency", 1, "number of targets processed in parallel")
	f.Bool("insecure", false, "skip TLS certificate verification during header checks")
	f.String("preset", "", "scan preset: quick, web or full")
	f.String("scope", "", "comma-separated allowed domain patterns (e.g. example.com,*.example.com)")
	f.String("notify-webhook", "", "HTTP webhook URL to POST a completion summary to")
	f.Bool("metrics", false, "write Prometheus metrics to <output-dir>/metrics.prom")

	cmd.MarkFlagsMutuallyExclusive("domain", "list")
}

// runOutput is the finished run plus the report paths written for it
type runOutput struct {
	*pipeline.RunSummary
	Reports []string
}

func runScan(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Read target flags
	domain, _ := cmd.Flags().GetString("domain")
	list, _ := cmd.Flags().GetString("list")
	noBanner, _ := cmd.Flags().GetBool("no-banner")
	presetName, _ := cmd.Flags().GetString("preset")

	if domain == "" && list == "" {
		return fmt.Errorf("%w: specify a domain with -d or a list with -l", targets.ErrNoTargets)
	}

	out := console{w: cmd.OutOrStdout(), silent: cfg.Log.Silent}
	if !noBanner {
		out.banner()
	}

	// Step 2: Apply flags over the config file
	applyScanFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	pipeCfg := pipeline.PipelineConfig{
		PortScan:    cfg.Stages.Ports,
		HeaderCheck: cfg.Stages.Headers,
		Concurrency: cfg.Concurrency,
		Logger:      log,
	}

	// Step 3: Apply preset (explicit stage flags stay on)
	if presetName != "" {
		preset, err := pipeline.GetPreset(presetName)
		if err != nil {
			return err
		}
		preset.Apply(&pipeCfg)
		if preset.TopPorts > 0 && !cmd.Flags().Changed("top-ports") {
			cfg.RateLimits.NmapTopPorts = preset.TopPorts
		}
		out.printf("%s Using preset: %s (%s)\n", info("[*]"), preset.Name, preset.Description)
	}

	formats, err := config.ParseFormats(cfg.Output)
	if err != nil {
		return err
	}

	// Step 4: Load and scope targets
	set, err := targets.Load(domain, list)
	if set != nil {
		for _, r := range set.Rejected {
			log.WithField("entry", r.Value).Warnf("skipping invalid target: %v", r)
		}
	}
	if err != nil {
		return err
	}

	scope := &pipeline.ScopeConfig{AllowedDomains: cfg.Scope}
	runTargets, rejected := scope.Filter(set.Targets)
	for _, r := range rejected {
		log.Warn(r.Error())
	}
	if len(runTargets) == 0 {
		return fmt.Errorf("%w: every target is outside the allowed scope", targets.ErrNoTargets)
	}
	out.printf("%s Loaded %d target(s)\n", info("[*]"), len(runTargets))

	// Step 5: Pre-flight tool checks, before anything is written
	bin := binaries(cfg)
	if missing := tools.MissingTools(tools.RequiredTools(bin, pipeCfg.PortScan)); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, t := range missing {
			names = append(names, t.Name)
			log.WithField("tool", t.Name).Errorf("required tool not found; install with: %s", t.InstallCmd)
		}
		return fmt.Errorf("%w: %s", stage.ErrToolMissing, strings.Join(names, ", "))
	}

	// Step 6: Build the stage invoker
	invoker := stage.NewInvoker(
		stage.ToolBackend{
			Binaries:     bin,
			HttpxThreads: cfg.RateLimits.HttpxThreads,
			TopPorts:     cfg.RateLimits.NmapTopPorts,
		},
		headers.NewChecker(headers.CheckerConfig{
			Timeout:            durationOr(cfg.Headers.Timeout, 10*time.Second),
			UserAgent:          cfg.Headers.UserAgent,
			InsecureSkipVerify: cfg.Headers.InsecureSkipVerify,
			RequestsPerSecond:  cfg.RateLimits.HeaderRequestsPS,
		}),
		stage.Timeouts{
			Enumerate:    cfg.Tools.Subfinder.TimeoutDuration(5 * time.Minute),
			Probe:        cfg.Tools.Httpx.TimeoutDuration(10 * time.Minute),
			PortScanHost: cfg.Tools.Nmap.TimeoutDuration(5 * time.Minute),
		},
		stage.WithLogger(log),
		stage.WithPortParallelism(cfg.RateLimits.NmapMaxParallel),
	)

	// Step 7: Progress callbacks and metrics
	var recorder *metrics.Recorder
	if cfg.Metrics {
		recorder, err = metrics.NewRecorder()
		if err != nil {
			return err
		}
	}
	pipeCfg.OnStageStart = out.stageStart
	pipeCfg.OnStageDone = func(target string, kind models.StageKind, records int, err error, elapsed time.Duration) {
		out.stageDone(target, kind, records, err, elapsed)
		if recorder != nil {
			recorder.ObserveStage(kind, records, err, elapsed)
		}
	}

	if cfg.Headers.InsecureSkipVerify && pipeCfg.HeaderCheck {
		log.Warn("TLS certificate verification is disabled for header checks")
	}

	// Step 8: Run the pipeline
	summary, runErr := pipeline.New(invoker, pipeCfg).Run(ctx, runTargets)
	if runErr != nil && stage.IsFatal(runErr) {
		return runErr
	}

	// Step 9: Write artifacts and reports (also after an interruption)
	emitter := report.NewEmitter(cfg.OutputDir, log)
	if _, err := emitter.WriteArtifacts(summary.Run); err != nil {
		log.WithError(err).Error("writing stage artifacts")
	}
	reports, renderErr := emitter.Render(summary.Run, formats)

	// Step 10: Record the run in history (non-fatal)
	meta := summary.Run.Meta(summary.Status, summary.Elapsed)
	meta.Reports = reports
	if err := saveRun(cfg.DBPath, &meta); err != nil {
		log.WithError(err).Warn("could not save run history")
	}

	// Step 11: Metrics textfile
	if recorder != nil {
		recorder.ObserveRun(len(runTargets), summary.Status, summary.Elapsed)
		path := filepath.Join(cfg.OutputDir, "metrics.prom")
		if err := recorder.WriteTextfile(path); err != nil {
			log.WithError(err).Warn("could not write metrics")
		} else {
			reports = append(reports, path)
		}
	}

	// Step 12: Webhook notification (non-fatal)
	if cfg.Notify.WebhookURL != "" {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		notifier := pipeline.NotifyConfig{WebhookURL: cfg.Notify.WebhookURL}
		if err := notifier.SendCompletion(notifyCtx, summary, reports); err != nil {
			log.WithError(err).Warn("webhook notification failed")
		} else {
			log.WithField("url", cfg.Notify.WebhookURL).Info("completion notification sent")
		}
		cancel()
	}

	// Step 13: Final summary
	console{w: cmd.OutOrStdout()}.summary(&runOutput{RunSummary: summary, Reports: reports})

	return errors.Join(runErr, renderErr)
}

// applyScanFlags copies explicitly set scan flags onto the config
func applyScanFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("ports") {
		c.Stages.Ports, _ = f.GetBool("ports")
	}
	if f.Changed("headers") {
		c.Stages.Headers, _ = f.GetBool("headers")
	}
	if f.Changed("threads") {
		c.RateLimits.HttpxThreads, _ = f.GetInt("threads")
	}
	if f.Changed("top-ports") {
		c.RateLimits.NmapTopPorts, _ = f.GetInt("top-ports")
	}
	if f.Changed("output") {
		c.Output, _ = f.GetString("output")
	}
	if f.Changed("output-dir") {
		c.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("concurrency") {
		c.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("insecure") {
		c.Headers.InsecureSkipVerify, _ = f.GetBool("insecure")
	}
	if f.Changed("scope") {
		scope, _ := f.GetString("scope")
		c.Scope = splitCSV(scope)
	}
	if f.Changed("notify-webhook") {
		c.Notify.WebhookURL, _ = f.GetString("notify-webhook")
	}
	if f.Changed("metrics") {
		c.Metrics, _ = f.GetBool("metrics")
	}
}

func binaries(c *config.Config) tools.Binaries {
	return tools.Binaries{
		Subfinder: c.Tools.Subfinder.Path,
		Httpx:     c.Tools.Httpx.Path,
		Nmap:      c.Tools.Nmap.Path,
	}
}

func saveRun(dbPath string, meta *models.RunMeta) error {
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(meta)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// splitCSV splits a comma-separated string into a trimmed, non-empty slice.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
