package memcpytest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// ErrCaseTimeout is returned by Runner.Run when a case did not return within
// Runner.Timeout. The runtime may still be executing it, so the run stops.
var ErrCaseTimeout = errors.New("case timed out")

// Logger is the subset of *slog.Logger the runner writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Outcome is the result of one case.
type Outcome string

const (
	Pass Outcome = "pass"
	Fail Outcome = "fail"
	Skip Outcome = "skip"
)

// Result records one executed or skipped case.
type Result struct {
	ID       string        `json:"id" yaml:"id"`
	Group    Group         `json:"group" yaml:"group"`
	Name     string        `json:"name" yaml:"name"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Totals counts results by outcome.
type Totals struct {
	Pass int `json:"pass" yaml:"pass"`
	Fail int `json:"fail" yaml:"fail"`
	Skip int `json:"skip" yaml:"skip"`
}

// Report is the outcome of one run against one device.
type Report struct {
	ID       string        `json:"id" yaml:"id"`
	Runtime  string        `json:"runtime" yaml:"runtime"`
	Device   int           `json:"device" yaml:"device"`
	Config   Config        `json:"config" yaml:"config"`
	Started  time.Time     `json:"started" yaml:"started"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Totals   Totals        `json:"totals" yaml:"totals"`
	Results  []Result      `json:"results" yaml:"results"`
}

// Add appends res and updates the totals.
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case Pass:
		r.Totals.Pass++
	case Fail:
		r.Totals.Fail++
	default:
		r.Totals.Skip++
	}
}

// Failed reports whether any case failed.
func (r *Report) Failed() bool {
	return r.Totals.Fail > 0
}

// Runner executes cases against one runtime and device.
type Runner struct {
	// ID names the report. Empty generates a random UUID.
	ID      string
	Runtime memcpy.Runtime
	Config  Config
	Filter  Filter
	// Timeout bounds each case. Zero means no limit.
	Timeout time.Duration
	Logger  Logger
	// OnResult is called after every case, from the goroutine calling Run.
	OnResult func(Result)
}

// Run executes the selected cases in catalogue order. The returned report
// is non-nil whenever the cases could be selected, even when Run also
// returns an error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.Runtime == nil {
		return nil, errors.New("runner has no runtime")
	}
	cfg := r.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	filter := r.Filter
	filter.Hazardous = true
	cases, err := Select(filter)
	if err != nil {
		return nil, err
	}

	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	rep := &Report{
		ID:      id,
		Runtime: r.Runtime.Name(),
		Device:  cfg.Device,
		Config:  cfg,
		Started: time.Now().UTC(),
		Results: make([]Result, 0, len(cases)),
	}
	defer func() { rep.Duration = time.Since(rep.Started) }()
	r.logf("run started", "id", rep.ID, "runtime", rep.Runtime, "device", cfg.Device, "cases", len(cases))

	jobs := make(chan Case)
	done := make(chan Result, 1)
	defer close(jobs)
	go r.worker(cfg, jobs, done)

	for i, c := range cases {
		if c.Hazardous && !r.Filter.Hazardous {
			r.record(rep, Result{ID: c.ID(), Group: c.Group, Name: c.Name, Outcome: Skip, Message: "hazardous case not enabled"})
			continue
		}
		if err := ctx.Err(); err != nil {
			r.skipRest(rep, cases[i:], "run canceled")
			return rep, err
		}

		jobs <- c
		var (
			timer   *time.Timer
			timeout <-chan time.Time
		)
		if r.Timeout > 0 {
			timer = time.NewTimer(r.Timeout)
			timeout = timer.C
		}
		select {
		case res := <-done:
			if timer != nil {
				timer.Stop()
			}
			r.record(rep, res)
		case <-timeout:
			r.record(rep, Result{ID: c.ID(), Group: c.Group, Name: c.Name, Outcome: Fail, Duration: r.Timeout,
				Message: fmt.Sprintf("no return after %s", r.Timeout)})
			r.skipRest(rep, cases[i+1:], "runtime unresponsive")
			return rep, fmt.Errorf("%s: %w", c.ID(), ErrCaseTimeout)
		case <-ctx.Done():
			r.record(rep, Result{ID: c.ID(), Group: c.Group, Name: c.Name, Outcome: Fail, Message: "run canceled while case was executing"})
			r.skipRest(rep, cases[i+1:], "run canceled")
			return rep, ctx.Err()
		}
	}
	r.logf("run finished", "id", rep.ID, "pass", rep.Totals.Pass, "fail", rep.Totals.Fail, "skip", rep.Totals.Skip)
	return rep, nil
}

// worker runs every case on one locked OS thread. GPU runtimes keep the
// current device per host thread.
func (r *Runner) worker(cfg Config, jobs <-chan Case, done chan<- Result) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	deviceErr := r.Runtime.SetDevice(cfg.Device)
	for c := range jobs {
		res := Result{ID: c.ID(), Group: c.Group, Name: c.Name}
		start := time.Now()
		var err error
		if deviceErr != nil {
			err = fmt.Errorf("set device %d: %w", cfg.Device, deviceErr)
		} else {
			err = runCase(r.Runtime, cfg, c)
		}
		res.Duration = time.Since(start)
		res.Outcome = Pass
		if err != nil {
			res.Outcome = Fail
			res.Message = err.Error()
		}
		done <- res
	}
}

func runCase(rt memcpy.Runtime, cfg Config, c Case) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = caseExecutionError(rec)
		}
	}()
	f, err := newFixture(rt, cfg)
	if err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("fixture teardown: %w", closeErr)
		}
	}()
	return c.Run(f)
}

func caseExecutionError(rec any) error {
	if recErr, ok := rec.(error); ok {
		return fmt.Errorf("case panicked: %w", recErr)
	}
	return fmt.Errorf("case panicked: %v", rec)
}

func (r *Runner) record(rep *Report, res Result) {
	rep.Add(res)
	if r.Logger != nil {
		switch res.Outcome {
		case Fail:
			r.Logger.Warn("case failed", "case", res.ID, "error", res.Message)
		default:
			r.Logger.Debug("case done", "case", res.ID, "outcome", res.Outcome, "duration", res.Duration)
		}
	}
	if r.OnResult != nil {
		r.OnResult(res)
	}
}

func (r *Runner) skipRest(rep *Report, rest []Case, why string) {
	for _, c := range rest {
		r.record(rep, Result{ID: c.ID(), Group: c.Group, Name: c.Name, Outcome: Skip, Message: why})
	}
}

func (r *Runner) logf(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Info(msg, args...)
	}
}
