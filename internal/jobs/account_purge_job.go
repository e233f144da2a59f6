package jobs

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
)

type PurgeableUsers interface {
	FindDeletedBefore(threshold time.Time) ([]models.User, error)
	Purge(userID uuid.UUID) error
}

// AccountPurgeJob permanently deletes soft-deleted accounts
type AccountPurgeJob struct {
	users PurgeableUsers
	now   func() time.Time
}

func NewAccountPurgeJob(users PurgeableUsers) *AccountPurgeJob {
	return &AccountPurgeJob{users: users, now: time.Now}
}

// PurgeDeletedAccounts removes accounts deleted more than days ago together
// with their reminders, schedules and devices.
func (j *AccountPurgeJob) PurgeDeletedAccounts(ctx context.Context, days int) (int64, error) {
	log.Printf("[AccountPurgeJob] Starting purge of accounts deleted more than %d days ago", days)

	threshold := j.now().UTC().AddDate(0, 0, -days)
	users, err := j.users.FindDeletedBefore(threshold)
	if err != nil {
		log.Printf("[AccountPurgeJob] Error finding deleted users: %v", err)
		return 0, err
	}

	if len(users) == 0 {
		log.Printf("[AccountPurgeJob] No accounts to purge")
		return 0, nil
	}

	var purged int64
	for _, user := range users {
		select {
		case <-ctx.Done():
			log.Printf("[AccountPurgeJob] Context cancelled, purged %d accounts so far", purged)
			return purged, ctx.Err()
		default:
		}

		if err := j.users.Purge(user.ID); err != nil {
			log.Printf("[AccountPurgeJob] Error purging user %s: %v", user.ID, err)
			continue
		}
		purged++
	}

	log.Printf("[AccountPurgeJob] Purged %d accounts", purged)
	return purged, nil
}

// AccountPurgeResult represents the result of purging deleted accounts
type AccountPurgeResult struct {
	Purged int64 `json:"purged"`
}
