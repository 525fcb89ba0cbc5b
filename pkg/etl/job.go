package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/db"
	"github.com/coinforge/coindw/pkg/metadata"
	"github.com/coinforge/coindw/pkg/notify"
)

// Status classifies a single job run. Skipped is a deliberate outcome, not a
// failure: it means a concurrent instance held the job's lock. Failed is a
// business-logic error inside Execute; Errored is an envelope error (connect,
// lock protocol) or a recovered panic.
type Status string

const (
	StatusOK      Status = "SUCCESS"
	StatusSkipped Status = "SKIPPED"
	StatusFailed  Status = "FAILED"
	StatusErrored Status = "ERROR"
)

// Job is the unit the runner coordinates. Implementations supply business
// logic only; connection, locking, history logging, notification and cleanup
// belong to the runner.
type Job interface {
	// Name identifies the job in locks, history records and summaries.
	Name() string
	// LockScope is the optional lock suffix; the lock key is
	// "<name>:<scope>", or just "<name>" when the scope is empty.
	LockScope() string
	// LocalInfile reports whether the job's connection needs LOAD DATA
	// LOCAL INFILE enabled.
	LocalInfile() bool
	// Execute runs the business logic and returns the job's row count.
	Execute(ctx context.Context, client *db.Client) (int64, error)
}

// Outcome is the tagged result of one job run.
type Outcome struct {
	Job       string
	Status    Status
	Rows      int64
	Err       error
	StartedAt time.Time
	Elapsed   time.Duration
}

// Runner enforces the uniform execution envelope around heterogeneous jobs:
// connect, acquire the named lock, execute, write exactly one history record,
// notify on failure, release everything. Cleanup happens on every exit path.
type Runner struct {
	Logger *zap.Logger
	Meta   *metadata.Meta

	// Connect opens a database client for one job run. Injected so tests
	// can substitute a mocked pool.
	Connect func(ctx context.Context, localInfile bool) (*db.Client, error)

	// Mailer delivers failure notifications. Nil disables notification.
	Mailer *notify.Mailer

	// LockWaitSec bounds the named-lock wait. Zero means the default 3s.
	LockWaitSec int
}

const defaultLockWaitSec = 3

// Run executes one job under the template. It never returns an
// application-level error; every result is normalized into the Outcome.
func (r *Runner) Run(ctx context.Context, job Job) Outcome {
	out := Outcome{Job: job.Name(), StartedAt: time.Now()}
	defer func() {
		out.Elapsed = time.Since(out.StartedAt)
	}()

	log := r.Logger.With(zap.String("job", job.Name()), zap.String("session", r.Meta.SessionID))
	log.Info("Starting job")

	client, err := r.Connect(ctx, job.LocalInfile())
	if err != nil {
		out.Status = StatusErrored
		out.Err = fmt.Errorf("connect: %w", err)
		log.Error("Job failed before acquiring lock", zap.Error(out.Err))
		// The first connect may have failed transiently; one fresh attempt
		// so even this run leaves a history record.
		if hc, retryErr := r.Connect(ctx, false); retryErr == nil {
			r.writeHistory(ctx, hc, out, out.Err.Error())
			if closeErr := hc.Close(); closeErr != nil {
				log.Warn("Failed to close connection", zap.Error(closeErr))
			}
		} else {
			log.Warn("Run history not recorded, control store unreachable",
				zap.Error(retryErr))
		}
		r.notifyFailure(ctx, job.Name(), out.Err)
		return out
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("Failed to close connection", zap.Error(closeErr))
		}
	}()

	lockName := job.Name()
	if scope := job.LockScope(); scope != "" {
		lockName = job.Name() + ":" + scope
	}

	// Named locks are session-owned; pin one connection for the whole run.
	conn, err := client.DB.Conn(ctx)
	if err != nil {
		out.Status = StatusErrored
		out.Err = fmt.Errorf("pin connection: %w", err)
		r.writeHistory(ctx, client, out, out.Err.Error())
		r.notifyFailure(ctx, job.Name(), out.Err)
		return out
	}
	defer conn.Close()

	wait := r.LockWaitSec
	if wait <= 0 {
		wait = defaultLockWaitSec
	}
	acquired, err := client.AcquireLock(ctx, conn, lockName, wait)
	if err != nil {
		out.Status = StatusErrored
		out.Err = err
		r.writeHistory(ctx, client, out, err.Error())
		r.notifyFailure(ctx, job.Name(), err)
		return out
	}
	if !acquired {
		out.Status = StatusSkipped
		msg := fmt.Sprintf("locked by another job instance (lock=%s)", lockName)
		log.Info("Job skipped", zap.String("lock", lockName))
		r.writeHistory(ctx, client, out, msg)
		return out
	}
	defer client.ReleaseLock(ctx, conn, lockName)

	out.Rows, out.Err = r.execute(ctx, job, client)
	if out.Err != nil {
		out.Status = StatusFailed
		out.Rows = 0
		log.Error("Job failed", zap.Error(out.Err))
		r.writeHistory(ctx, client, out, out.Err.Error())
		r.notifyFailure(ctx, job.Name(), out.Err)
		return out
	}

	out.Status = StatusOK
	log.Info("Job completed", zap.Int64("rows", out.Rows))
	r.writeHistory(ctx, client, out, fmt.Sprintf("completed with %d rows", out.Rows))
	return out
}

// execute isolates the business logic so a panicking job degrades into a
// Failed outcome instead of taking the whole pipeline down.
func (r *Runner) execute(ctx context.Context, job Job, client *db.Client) (rows int64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return job.Execute(ctx, client)
}

// writeHistory appends the run-history record. A history failure is logged
// but never masks the job outcome.
func (r *Runner) writeHistory(ctx context.Context, client *db.Client, out Outcome, message string) {
	rec := db.HistoryRecord{
		Step:       out.Job,
		StartedAt:  out.StartedAt,
		FinishedAt: time.Now(),
		RowCount:   out.Rows,
		Status:     historyStatus(out.Status),
		Message:    message,
	}
	if err := client.WriteHistory(ctx, rec); err != nil {
		r.Logger.Warn("Failed to write run history",
			zap.String("job", out.Job), zap.Error(err))
	}
}

// historyStatus maps outcome statuses onto the history-record vocabulary,
// which predates the Failed/Errored distinction.
func historyStatus(s Status) string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "FAILED"
	}
}

func (r *Runner) notifyFailure(ctx context.Context, job string, jobErr error) {
	if r.Mailer == nil {
		return
	}
	subject, body := notify.BuildErrorMail(job, jobErr, r.Meta)
	r.Mailer.Send(ctx, subject, body)
}
