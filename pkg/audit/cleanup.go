package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/happsea/hub-sso-bridge/pkg/observability"
)

// cleanupTimeout bounds one retention pass.
const cleanupTimeout = 5 * time.Minute

// ScheduleCleanup registers a retention job on the given cron scheduler.
// The caller owns starting and stopping the scheduler.
func ScheduleCleanup(c *cron.Cron, recorder *DBRecorder, retention time.Duration, schedule string, logger *observability.Logger) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		deleted, err := recorder.Cleanup(ctx, retention)
		if err != nil {
			logger.WithError(err).Error("audit cleanup failed")
			return
		}

		logger.WithField("deleted", deleted).Info("audit cleanup completed")
	})
}
