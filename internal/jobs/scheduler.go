package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	StaleDeviceDays  = 14
	AccountPurgeDays = 30
	jobTimeout       = 10 * time.Minute
)

// Scheduler drives the background jobs in-process. The HTTP cron
// endpoints run the same jobs for external schedulers.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// Every registers job to run at a fixed interval.
func (s *Scheduler) Every(name string, interval time.Duration, job func(ctx context.Context) error) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), wrap(name, job))
}

// Daily registers job at hour:minute UTC.
func (s *Scheduler) Daily(name string, hour, minute int, job func(ctx context.Context) error) (cron.EntryID, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %02d:%02d", hour, minute)
	}
	return s.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), wrap(name, job))
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			log.Printf("[Scheduler] %s failed after %s: %v", name, time.Since(start), err)
			return
		}
		log.Printf("[Scheduler] %s finished in %s", name, time.Since(start))
	}
}
