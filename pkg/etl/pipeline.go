package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var _ JobRunner = (*Runner)(nil)

// JobResult is the orchestrator's view of one job run.
type JobResult struct {
	Job     string
	Status  Status
	Rows    int64
	Elapsed time.Duration
}

// Summary aggregates one pipeline run.
type Summary struct {
	Results   []JobResult
	TotalRows int64
	Elapsed   time.Duration
	Stopped   bool
}

// OK reports the overall verdict: a pipeline passes unless some job failed
// or errored. Skips are deliberate and do not fail the run.
func (s Summary) OK() bool {
	for _, r := range s.Results {
		if r.Status == StatusFailed || r.Status == StatusErrored {
			return false
		}
	}
	return true
}

// String renders the human-readable summary table.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("PIPELINE SUMMARY\n")
	for _, r := range s.Results {
		fmt.Fprintf(&b, "%-16s | %-8s | %8d rows | %7.2fs\n",
			r.Job, r.Status, r.Rows, r.Elapsed.Seconds())
	}
	fmt.Fprintf(&b, "total: %d rows in %.2fs\n", s.TotalRows, s.Elapsed.Seconds())
	if s.OK() {
		b.WriteString("verdict: PASS")
	} else {
		b.WriteString("verdict: FAIL")
	}
	return b.String()
}

// JobRunner executes one job under the template envelope. *Runner is the
// production implementation.
type JobRunner interface {
	Run(ctx context.Context, job Job) Outcome
}

// Pipeline runs the four ETL jobs in fixed order, tracking per-job outcomes
// and applying the continuation policy.
type Pipeline struct {
	Logger *zap.Logger
	Runner JobRunner
	Jobs   []Job

	// StopOnError halts the pipeline after a failed job. Default policy.
	StopOnError bool

	// Pace is the delay inserted after each successful job. Negative
	// disables pacing; zero means the default one second.
	Pace time.Duration
}

const defaultPace = time.Second

// Run executes the pipeline and returns the summary. Individual job errors
// never escape; they are normalized into the per-job results.
func (p *Pipeline) Run(ctx context.Context) Summary {
	start := time.Now()
	summary := Summary{}

	pace := p.Pace
	if pace == 0 {
		pace = defaultPace
	}

	for _, job := range p.Jobs {
		p.Logger.Info("Pipeline stage starting", zap.String("job", job.Name()))

		out := p.Runner.Run(ctx, job)
		summary.Results = append(summary.Results, JobResult{
			Job:     job.Name(),
			Status:  out.Status,
			Rows:    out.Rows,
			Elapsed: out.Elapsed,
		})
		summary.TotalRows += out.Rows

		switch out.Status {
		case StatusFailed, StatusErrored:
			p.Logger.Error("Pipeline stage failed",
				zap.String("job", job.Name()),
				zap.Duration("elapsed", out.Elapsed),
				zap.Error(out.Err))
			if p.StopOnError {
				summary.Stopped = true
				p.Logger.Warn("Pipeline stopped on error", zap.String("job", job.Name()))
				summary.Elapsed = time.Since(start)
				return summary
			}
		case StatusSkipped:
			p.Logger.Info("Pipeline stage skipped", zap.String("job", job.Name()))
		default:
			p.Logger.Info("Pipeline stage completed",
				zap.String("job", job.Name()),
				zap.Int64("rows", out.Rows),
				zap.Duration("elapsed", out.Elapsed))
			if pace > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(pace):
				}
			}
		}
	}

	summary.Elapsed = time.Since(start)
	return summary
}
