package roundqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueName is the dedicated River queue for round jobs.
const QueueName = "round"

// SweepExpiredRoundJob asks the worker to complete the active round if its
// window has elapsed. It carries no arguments; there is at most one active
// round.
type SweepExpiredRoundJob struct{}

// Kind returns the job type identifier for River
func (SweepExpiredRoundJob) Kind() string { return "round_sweep_expired" }

// InsertOpts keeps sweeps on the round queue and drops duplicates within a
// short period so overlapping schedulers do not pile up work.
func (SweepExpiredRoundJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 5 * time.Second,
		},
	}
}

// JobInfo describes a queued sweep job, for health and debugging output.
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
