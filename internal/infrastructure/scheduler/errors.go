package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a job on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobNotFound is returned for unknown job names
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig is returned when a job cannot be scheduled as configured
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
