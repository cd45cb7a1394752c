// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"time"

	"ambassador-program/logging"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	crmTokenRefreshInterval = 50 * time.Minute
	notificationCleanupAt   = 3 // hour of day, server local time
)

type TokenRefresher interface {
	RefreshAgencyToken(ctx context.Context) error
}

type NotificationCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// StartScheduler registers the periodic jobs and starts the scheduler.
// crm may be nil when the CRM is not configured.
func StartScheduler(ctx context.Context, crm TokenRefresher, cleaner NotificationCleaner, retention time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if crm != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(crmTokenRefreshInterval),
			gocron.NewTask(func() {
				if err := crm.RefreshAgencyToken(ctx); err != nil {
					logging.Logger.Error("[Scheduler] CRM token refresh failed", zap.Error(err))
				}
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("schedule CRM token refresh: %w", err)
		}
	}

	if _, err := sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(notificationCleanupAt, 0, 0))),
		gocron.NewTask(func() {
			if _, err := cleaner.Cleanup(ctx, retention); err != nil {
				logging.Logger.Error("[Scheduler] notification cleanup failed", zap.Error(err))
			}
		}),
	); err != nil {
		return nil, fmt.Errorf("schedule notification cleanup: %w", err)
	}

	sched.Start()
	return sched, nil
}
