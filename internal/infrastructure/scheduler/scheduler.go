package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc does one unit of periodic work and reports how many items it touched
type JobFunc func(ctx context.Context) (int, error)

// Job is a named function run on a cron spec ("@every 2m", "*/5 * * * *")
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     JobFunc
}

// JobRun is the outcome of the latest run of a job
type JobRun struct {
	Status      JobStatus  `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Affected    int        `json:"affected"`
	Error       string     `json:"error,omitempty"`
}

// Recorder receives one measurement per run. *telemetry.DirectoryMetrics implements it.
type Recorder interface {
	RecordJobRun(ctx context.Context, job string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordJobRun(context.Context, string, error) {}

// Option configures the Scheduler
type Option func(*Scheduler)

// WithRecorder sets the run recorder
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Scheduler runs background jobs on cron specs. A job still running when its
// next tick fires is skipped for that tick.
type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	recorder Recorder

	mu        sync.Mutex
	jobs      map[string]Job
	runs      map[string]JobRun
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:   logger,
		recorder: nopRecorder{},
		jobs:     make(map[string]Job),
		runs:     make(map[string]JobRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers job. Jobs may be added before or after Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("%w: job needs a name and a function", ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("%w: job %q already registered", ErrInvalidConfig, job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.execute(job) }); err != nil {
		return fmt.Errorf("%w: job %q spec %q: %v", ErrInvalidConfig, job.Name, job.Spec, err)
	}
	s.jobs[job.Name] = job
	s.runs[job.Name] = JobRun{Status: JobStatusPending}
	return nil
}

// Start starts the cron loop. Job contexts derive from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.isRunning = true
	s.cron.Start()

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()

	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger runs a registered job now, outside its schedule, and waits for it
func (s *Scheduler) Trigger(name string) (JobRun, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	running := s.isRunning
	s.mu.Unlock()
	if !ok {
		return JobRun{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !running {
		return JobRun{}, ErrSchedulerNotRunning
	}
	return s.execute(job), nil
}

// Runs returns the latest run of every job
func (s *Scheduler) Runs() map[string]JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]JobRun, len(s.runs))
	for name, run := range s.runs {
		out[name] = run
	}
	return out
}

func (s *Scheduler) execute(job Job) JobRun {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	ctx := parent
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, job.Timeout)
		defer cancel()
	}

	started := time.Now()
	s.setRun(job.Name, JobRun{Status: JobStatusRunning, StartedAt: &started})

	affected, err := job.Run(ctx)
	completed := time.Now()
	run := JobRun{StartedAt: &started, CompletedAt: &completed, Affected: affected}
	s.recorder.RecordJobRun(ctx, job.Name, err)

	if err != nil {
		run.Status = JobStatusFailed
		run.Error = err.Error()
		s.logger.Error("Job failed",
			zap.String("job", job.Name),
			zap.Int("affected", affected),
			zap.Duration("duration", completed.Sub(started)),
			zap.Error(err))
	} else {
		run.Status = JobStatusSuccess
		s.logger.Debug("Job completed",
			zap.String("job", job.Name),
			zap.Int("affected", affected),
			zap.Duration("duration", completed.Sub(started)))
	}
	s.setRun(job.Name, run)
	return run
}

func (s *Scheduler) setRun(name string, run JobRun) {
	s.mu.Lock()
	s.runs[name] = run
	s.mu.Unlock()
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
