package jobs

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/sweep"
)

type SweepUserLister interface {
	ListUserIDsWithReminders() ([]uuid.UUID, error)
}

type SweepRunner interface {
	Run(ctx context.Context, userID uuid.UUID) (*sweep.Result, error)
}

// FailureReporter is told about jobs that could not run at all.
type FailureReporter interface {
	SendJobFailure(job string, err error)
}

// SweepJob runs one sweep per user that owns reminders
type SweepJob struct {
	users    SweepUserLister
	sweeper  SweepRunner
	reporter FailureReporter
}

func NewSweepJob(users SweepUserLister, sweeper SweepRunner, reporter FailureReporter) *SweepJob {
	return &SweepJob{users: users, sweeper: sweeper, reporter: reporter}
}

// SweepAllResult aggregates the per-user sweeps of one run
type SweepAllResult struct {
	Users     int `json:"users"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Evaluated int `json:"evaluated"`
	Fired     int `json:"fired"`
	Errors    int `json:"errors"`
}

// RunAll sweeps every user in turn. A failed user sweep is logged and the
// run continues; cancellation is honored between users.
func (j *SweepJob) RunAll(ctx context.Context) (*SweepAllResult, error) {
	userIDs, err := j.users.ListUserIDsWithReminders()
	if err != nil {
		log.Printf("[SweepJob] Error listing users: %v", err)
		if j.reporter != nil {
			j.reporter.SendJobFailure("sweep", err)
		}
		return nil, err
	}

	result := &SweepAllResult{}
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			log.Printf("[SweepJob] Context cancelled after %d users", result.Users)
			return result, ctx.Err()
		default:
		}

		result.Users++
		res, err := j.sweeper.Run(ctx, userID)
		if err != nil {
			log.Printf("[SweepJob] Sweep failed for user %s: %v", userID, err)
			result.Failed++
			continue
		}
		if res.NotificationsOff {
			result.Skipped++
		}
		result.Evaluated += res.Evaluated
		result.Fired += res.Fired
		result.Errors += res.Errors
	}

	log.Printf("[SweepJob] Completed: %d users, %d evaluated, %d fired, %d errors, %d failed",
		result.Users, result.Evaluated, result.Fired, result.Errors, result.Failed)
	return result, nil
}
