package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Job names, also used as metric labels
const (
	JobStatsRefresh    = "stats_refresh"
	JobIntentReconcile = "intent_reconcile"
)

// StatsRefresher recomputes statistics of managers currently on screen
type StatsRefresher interface {
	RefreshWatchedStats(ctx context.Context) (int, error)
}

// IntentReconciler settles approvals left half done
type IntentReconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Every returns the cron spec for a fixed interval
func Every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// StatsRefreshJob refreshes watched manager statistics every interval
func StatsRefreshJob(r StatsRefresher, interval time.Duration) Job {
	return Job{
		Name:    JobStatsRefresh,
		Spec:    Every(interval),
		Timeout: interval,
		Run:     r.RefreshWatchedStats,
	}
}

// IntentReconcileJob sweeps stale approval intents every interval
func IntentReconcileJob(r IntentReconciler, interval time.Duration) Job {
	return Job{
		Name:    JobIntentReconcile,
		Spec:    Every(interval),
		Timeout: interval,
		Run:     r.Reconcile,
	}
}
