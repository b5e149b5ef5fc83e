// Package scheduler runs the periodic maintenance jobs. Each job takes a store-backed lock so
// only one instance runs it at a time.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
)

const (
	cleanupJob   = "notification_cleanup"
	reminderJob  = "asset_due_reminder"
	jobTimeout   = 5 * time.Minute
	lockDuration = 10 * time.Minute
)

// Cleaner removes expired notifications and token revocations
type Cleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (notifications, revocations int64, err error)
}

// Reminder notifies about assets that are due for inspection or maintenance
type Reminder interface {
	RemindDue(ctx context.Context) (int, error)
}

// Sweeper drops idle in-memory state, such as rate limiter buckets
type Sweeper interface {
	Sweep() int
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	Cleaner    Cleaner
	Reminder   Reminder
	Sweeper    Sweeper
	LockDB     databases.SchedulerLockDatabase
	Retention  time.Duration
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cleaner Cleaner, reminder Reminder, sweeper Sweeper, lockDB databases.SchedulerLockDatabase, retention time.Duration) *Scheduler {
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		Cleaner:    cleaner,
		Reminder:   reminder,
		Sweeper:    sweeper,
		LockDB:     lockDB,
		Retention:  retention,
		instanceID: instanceID,
	}
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start() {
	// notification and revoked token cleanup every hour
	if _, err := s.cron.AddFunc("@hourly", s.cleanup); err != nil {
		zap.S().Errorw("failed to register cleanup job", "error", err)
	}

	// inspection and maintenance reminders daily at 7 AM UTC
	if _, err := s.cron.AddFunc("0 7 * * *", s.remindDue); err != nil {
		zap.S().Errorw("failed to register reminder job", "error", err)
	}

	if s.Sweeper != nil {
		if _, err := s.cron.AddFunc("@every 5m", s.sweep); err != nil {
			zap.S().Errorw("failed to register sweep job", "error", err)
		}
	}

	s.cron.Start()
	zap.S().Infow("scheduler started", "instance", s.instanceID)
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// withLock runs job only if this instance holds the named lock
func (s *Scheduler) withLock(name string, job func(ctx context.Context)) bool {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, name, s.instanceID, lockDuration)
	if err != nil {
		zap.S().Errorw("failed to acquire job lock", "job", name, "error", err)
		return false
	}
	if !acquired {
		zap.S().Debugw("job already running on another instance, skipping", "job", name)
		return false
	}
	defer func() {
		if err := s.LockDB.ReleaseLock(ctx, name, s.instanceID); err != nil {
			zap.S().Warnw("failed to release job lock", "job", name, "error", err)
		}
	}()

	job(ctx)
	return true
}

func (s *Scheduler) cleanup() {
	s.withLock(cleanupJob, func(ctx context.Context) {
		notifications, revocations, err := s.Cleaner.Cleanup(ctx, s.Retention)
		if err != nil {
			zap.S().Errorw("notification cleanup failed", "error", err)
			return
		}
		zap.S().Infow("notification cleanup finished",
			"instance", s.instanceID,
			"notifications", notifications,
			"revokedTokens", revocations)
	})
}

func (s *Scheduler) remindDue() {
	s.withLock(reminderJob, func(ctx context.Context) {
		n, err := s.Reminder.RemindDue(ctx)
		if err != nil {
			zap.S().Errorw("asset reminder failed", "error", err)
			return
		}
		zap.S().Infow("asset reminder finished", "instance", s.instanceID, "due", n)
	})
}

// sweep is per-instance state, so it runs without the lock
func (s *Scheduler) sweep() {
	if n := s.Sweeper.Sweep(); n > 0 {
		zap.S().Debugw("swept idle rate limiters", "removed", n)
	}
}
