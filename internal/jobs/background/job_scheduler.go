// Package background runs scheduled maintenance jobs. A failed run logs and
// waits for the next tick; it never stops the scheduler or the host process.
package background

import (
	"context"
	"log"
	"sync"
	"time"

	"scopehub/internal/repositories"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages the periodic maintenance jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	tokenRepo repositories.TokenRepository
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

func NewJobScheduler(tokenRepo repositories.TokenRepository) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		tokenRepo: tokenRepo,
		jobs:      make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js, nil
}

// Start starts the job scheduler.
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler.
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	// Expired blacklisted-token purge, daily at 03:00.
	purgeJob, err := js.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(js.purgeExpiredTokens),
		gocron.WithName("token-purge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create token purge job: %v", err)
	} else {
		js.jobs["token-purge"] = purgeJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

// purgeExpiredTokens deletes blacklist entries whose underlying token has
// already expired naturally.
func (js *JobScheduler) purgeExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Printf("Starting cleanup of expired blacklisted tokens")
	count, err := js.tokenRepo.PurgeExpired(ctx)
	if err != nil {
		log.Printf("Error cleaning up expired tokens: %v", err)
		return
	}
	log.Printf("Cleaned up %d expired blacklisted tokens", count)
}

// AddJob adds a custom job to the scheduler.
func (js *JobScheduler) AddJob(name string, interval time.Duration, taskFn interface{}, params ...interface{}) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(taskFn, params...),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}

	js.jobs[name] = job
	return nil
}

// JobNames returns the names of the scheduled jobs.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}
