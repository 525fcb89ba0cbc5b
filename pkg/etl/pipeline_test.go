package etl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type fakeRunner struct {
	outcomes map[string]Outcome
	ran      []string
}

func (f *fakeRunner) Run(_ context.Context, job Job) Outcome {
	f.ran = append(f.ran, job.Name())
	out := f.outcomes[job.Name()]
	out.Job = job.Name()
	return out
}

func pipelineJobs() []Job {
	return []Job{
		&stubJob{name: "extract"},
		&stubJob{name: "load_staging"},
		&stubJob{name: "transform_dw"},
		&stubJob{name: "load_mart"},
	}
}

func TestPipelineRunsJobsInOrder(t *testing.T) {
	runner := &fakeRunner{outcomes: map[string]Outcome{
		"extract":      {Status: StatusOK, Rows: 300},
		"load_staging": {Status: StatusOK, Rows: 300},
		"transform_dw": {Status: StatusOK, Rows: 298},
		"load_mart":    {Status: StatusOK, Rows: 15},
	}}
	p := &Pipeline{
		Logger:      zaptest.NewLogger(t),
		Runner:      runner,
		Jobs:        pipelineJobs(),
		StopOnError: true,
		Pace:        -1,
	}

	summary := p.Run(context.Background())

	assert.Equal(t, []string{"extract", "load_staging", "transform_dw", "load_mart"}, runner.ran)
	assert.True(t, summary.OK())
	assert.False(t, summary.Stopped)
	assert.Equal(t, int64(913), summary.TotalRows)
	assert.Len(t, summary.Results, 4)
}

func TestPipelineStopsOnError(t *testing.T) {
	runner := &fakeRunner{outcomes: map[string]Outcome{
		"extract":      {Status: StatusOK, Rows: 300},
		"load_staging": {Status: StatusFailed, Err: errors.New("csv missing")},
	}}
	p := &Pipeline{
		Logger:      zaptest.NewLogger(t),
		Runner:      runner,
		Jobs:        pipelineJobs(),
		StopOnError: true,
		Pace:        -1,
	}

	summary := p.Run(context.Background())

	assert.Equal(t, []string{"extract", "load_staging"}, runner.ran,
		"downstream jobs must not run after a failure")
	assert.True(t, summary.Stopped)
	assert.False(t, summary.OK())
	assert.Len(t, summary.Results, 2)
}

func TestPipelineContinueOnError(t *testing.T) {
	runner := &fakeRunner{outcomes: map[string]Outcome{
		"extract":      {Status: StatusFailed, Err: errors.New("rate limited")},
		"load_staging": {Status: StatusOK, Rows: 250},
		"transform_dw": {Status: StatusOK, Rows: 250},
		"load_mart":    {Status: StatusOK, Rows: 12},
	}}
	p := &Pipeline{
		Logger: zaptest.NewLogger(t),
		Runner: runner,
		Jobs:   pipelineJobs(),
		Pace:   -1,
	}

	summary := p.Run(context.Background())

	assert.Len(t, runner.ran, 4, "without stop-on-error every stage runs")
	assert.False(t, summary.Stopped)
	assert.False(t, summary.OK(), "a failed stage still fails the verdict")
}

func TestPipelineSkipIsNotFailure(t *testing.T) {
	runner := &fakeRunner{outcomes: map[string]Outcome{
		"extract":      {Status: StatusSkipped},
		"load_staging": {Status: StatusOK, Rows: 100},
		"transform_dw": {Status: StatusOK, Rows: 100},
		"load_mart":    {Status: StatusOK, Rows: 5},
	}}
	p := &Pipeline{
		Logger:      zaptest.NewLogger(t),
		Runner:      runner,
		Jobs:        pipelineJobs(),
		StopOnError: true,
		Pace:        -1,
	}

	summary := p.Run(context.Background())

	assert.Len(t, runner.ran, 4, "a lock skip does not stop the pipeline")
	assert.True(t, summary.OK())
}

func TestSummaryString(t *testing.T) {
	s := Summary{
		Results: []JobResult{
			{Job: "extract", Status: StatusOK, Rows: 300},
			{Job: "load_staging", Status: StatusFailed},
		},
		TotalRows: 300,
	}

	text := s.String()
	assert.Contains(t, text, "extract")
	assert.Contains(t, text, "SUCCESS")
	assert.Contains(t, text, "FAILED")
	assert.Contains(t, text, "verdict: FAIL")
}
