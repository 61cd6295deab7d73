package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/results"
	"github.com/hakim/reconx/internal/stage"
)

// StageRunner is the set of stage operations the pipeline sequences.
// *stage.Invoker satisfies it.
type StageRunner interface {
	Enumerate(ctx context.Context, domain string) ([]string, error)
	Probe(ctx context.Context, subdomains []string) ([]models.LiveHost, error)
	ScanPorts(ctx context.Context, live []models.LiveHost) (map[string][]models.Port, error)
	CheckHeaders(ctx context.Context, live []models.LiveHost) (map[string]models.HeaderFinding, error)
}

// State is a step of the per-target state machine
type State string

const (
	StateEnumerating    State = "enumerating"
	StateProbing        State = "probing"
	StateScanning       State = "scanning"
	StateHeaderChecking State = "header_checking"
	StateSkipped        State = "skipped"
	StateDone           State = "done"
)

// PipelineConfig controls how a run behaves.
type PipelineConfig struct {
	// PortScan enables the port scanning stage.
	PortScan bool

	// HeaderCheck enables the security header stage.
	HeaderCheck bool

	// Concurrency is the number of targets processed at once. Values below
	// one mean sequential.
	Concurrency int

	// OnStageStart is called immediately before each stage executes.
	OnStageStart func(target string, kind models.StageKind)

	// OnStageDone is called immediately after each stage returns (or panics).
	// records is the number of items the stage produced.
	OnStageDone func(target string, kind models.StageKind, records int, err error, elapsed time.Duration)

	Logger logrus.FieldLogger
}

// TargetOutcome records how one target moved through the state machine.
type TargetOutcome struct {
	Target string
	// Trace lists the states visited in order, ending with StateDone.
	Trace []State
	// Failed lists stages that ran and returned an error.
	Failed  []models.StageKind
	Elapsed time.Duration
}

// RunSummary is what Run hands back to the caller.
type RunSummary struct {
	Run      *models.RunResult
	Outcomes []TargetOutcome
	Status   models.RunStatus
	Elapsed  time.Duration
}

// Pipeline runs the per-target state machine for every target and merges the
// results into one aggregate.
type Pipeline struct {
	runner StageRunner
	cfg    PipelineConfig
	log    logrus.FieldLogger
}

// New creates a pipeline over runner
func New(runner StageRunner, cfg PipelineConfig) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{runner: runner, cfg: cfg, log: log}
}

// Run processes targets in input order on a bounded pool and returns the
// aggregate. The summary is always returned. The error is non-nil only when
// a required tool went missing (fatal) or the run was interrupted; in the
// latter case the summary holds everything merged before cancellation.
func (p *Pipeline) Run(ctx context.Context, targets []string) (*RunSummary, error) {
	agg := results.New(targets)
	start := time.Now()

	workers := p.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]TargetOutcome, len(targets))
	wp := pool.New().WithContext(ctx).WithMaxGoroutines(workers).WithCancelOnError()

	for i, target := range targets {
		wp.Go(func(ctx context.Context) error {
			outcome, err := p.RunTarget(ctx, agg, target)
			outcomes[i] = outcome
			return err
		})
	}
	runErr := wp.Wait()

	summary := &RunSummary{
		Run:      agg.Snapshot(),
		Outcomes: outcomes,
		Elapsed:  time.Since(start),
	}

	switch {
	case runErr != nil && stage.IsFatal(runErr):
		summary.Status = models.StatusPartial
		return summary, firstFatal(runErr)
	case ctx.Err() != nil || errors.Is(runErr, stage.ErrInterrupted):
		summary.Status = models.StatusInterrupted
		return summary, fmt.Errorf("run %s: %w", summary.Run.ID, stage.ErrInterrupted)
	case len(summary.Run.StageErrors) > 0:
		summary.Status = models.StatusPartial
	default:
		summary.Status = models.StatusComplete
	}

	return summary, nil
}

// RunTarget drives a single target through
// Enumerating → Probing → (Scanning|Skipped) → (HeaderChecking|Skipped) → Done.
// Stage failures are recorded and the target continues; only a missing tool
// or an interruption is returned.
func (p *Pipeline) RunTarget(ctx context.Context, agg *results.Aggregator, target string) (TargetOutcome, error) {
	outcome := TargetOutcome{Target: target}
	start := time.Now()

	log := p.log.WithField("target", target)

	finish := func(err error) (TargetOutcome, error) {
		outcome.Trace = append(outcome.Trace, StateDone)
		outcome.Elapsed = time.Since(start)
		return outcome, err
	}

	if ctx.Err() != nil {
		return outcome, fmt.Errorf("%s: %w", target, stage.ErrInterrupted)
	}

	// Enumerating
	outcome.Trace = append(outcome.Trace, StateEnumerating)
	var subdomains []string
	err := p.step(ctx, agg, &outcome, models.StageEnumerate, func(ctx context.Context) (int, error) {
		subs, err := p.runner.Enumerate(ctx, target)
		if subs == nil {
			subs = []string{}
		}
		subdomains = subs
		return len(subs), errors.Join(err, agg.MergeSubdomains(target, subs))
	})
	if err != nil {
		return finish(err)
	}
	log.WithField("subdomains", len(subdomains)).Info("enumeration finished")
	if len(subdomains) == 0 {
		return finish(nil)
	}

	// Probing
	outcome.Trace = append(outcome.Trace, StateProbing)
	var live []models.LiveHost
	err = p.step(ctx, agg, &outcome, models.StageProbe, func(ctx context.Context) (int, error) {
		hosts, err := p.runner.Probe(ctx, subdomains)
		if hosts == nil {
			hosts = []models.LiveHost{}
		}
		live = hosts
		return len(hosts), errors.Join(err, agg.MergeLiveHosts(target, hosts))
	})
	if err != nil {
		return finish(err)
	}
	log.WithField("live_hosts", len(live)).Info("probing finished")
	if len(live) == 0 {
		return finish(nil)
	}

	// Scanning
	if p.cfg.PortScan {
		outcome.Trace = append(outcome.Trace, StateScanning)
		err = p.step(ctx, agg, &outcome, models.StagePortScan, func(ctx context.Context) (int, error) {
			ports, err := p.runner.ScanPorts(ctx, live)
			if ports == nil {
				ports = map[string][]models.Port{}
			}
			return len(ports), errors.Join(err, agg.MergePorts(target, ports))
		})
		if err != nil {
			return finish(err)
		}
	} else {
		outcome.Trace = append(outcome.Trace, StateSkipped)
	}

	// HeaderChecking
	if p.cfg.HeaderCheck {
		outcome.Trace = append(outcome.Trace, StateHeaderChecking)
		err = p.step(ctx, agg, &outcome, models.StageHeaders, func(ctx context.Context) (int, error) {
			findings, err := p.runner.CheckHeaders(ctx, live)
			if findings == nil {
				findings = map[string]models.HeaderFinding{}
			}
			return len(findings), errors.Join(err, agg.MergeHeaders(target, findings))
		})
		if err != nil {
			return finish(err)
		}
	} else {
		outcome.Trace = append(outcome.Trace, StateSkipped)
	}

	return finish(nil)
}

// step runs one stage with callbacks and isolation. A stage error is
// recorded against the target; it is returned only when it must stop the
// target (missing tool or interruption).
func (p *Pipeline) step(ctx context.Context, agg *results.Aggregator, outcome *TargetOutcome, kind models.StageKind, run func(context.Context) (int, error)) error {
	if p.cfg.OnStageStart != nil {
		p.cfg.OnStageStart(outcome.Target, kind)
	}

	stageStart := time.Now()
	records, stageErr := runStageIsolated(ctx, kind, run)
	elapsed := time.Since(stageStart)

	if p.cfg.OnStageDone != nil {
		p.cfg.OnStageDone(outcome.Target, kind, records, stageErr, elapsed)
	}

	if stageErr == nil {
		return nil
	}

	outcome.Failed = append(outcome.Failed, kind)
	if err := agg.RecordError(outcome.Target, kind, stageErr); err != nil {
		p.log.WithError(err).Warn("could not record stage error")
	}

	fields := logrus.Fields{"target": outcome.Target, "stage": kind, "elapsed": elapsed.Round(time.Millisecond)}
	switch {
	case stage.IsFatal(stageErr):
		p.log.WithFields(fields).WithError(stageErr).Error("required tool missing")
		return stageErr
	case errors.Is(stageErr, stage.ErrInterrupted) || ctx.Err() != nil:
		p.log.WithFields(fields).Warn("stage interrupted")
		return fmt.Errorf("%s %s: %w", outcome.Target, kind, stage.ErrInterrupted)
	default:
		p.log.WithFields(fields).WithError(stageErr).Warn("stage failed, continuing")
		return nil
	}
}

// runStageIsolated runs a single stage inside a deferred recover so that a
// panic in stage code is returned as an error rather than crashing the run.
func runStageIsolated(ctx context.Context, kind models.StageKind, run func(context.Context) (int, error)) (records int, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("stage %q panicked: %v: %w", kind, r, stage.ErrStage)
		}
	}()
	return run(ctx)
}

// firstFatal digs the missing-tool error out of a joined pool error
func firstFatal(err error) error {
	var serr *stage.Error
	if errors.As(err, &serr) && stage.IsFatal(serr) {
		return serr
	}
	return err
}
