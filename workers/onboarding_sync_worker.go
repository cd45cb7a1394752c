// workers/onboarding_sync_worker.go
package workers

import (
	"context"
	"time"

	"ambassador-program/logging"

	"go.uber.org/zap"
)

// OnboardingSyncer is the part of the recipient service the poller needs.
type OnboardingSyncer interface {
	SyncPendingOnboarding(ctx context.Context) (int, error)
}

// PollPaymentOnboarding asks the payment processor, every interval, whether
// pending recipients finished onboarding. Failures are retried next tick.
func PollPaymentOnboarding(ctx context.Context, syncer OnboardingSyncer, interval time.Duration) {
	logging.Logger.Info("Starting payment onboarding polling", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info("Payment onboarding polling stopped.")
			return
		case <-ticker.C:
			onboarded, err := syncer.SyncPendingOnboarding(ctx)
			if err != nil {
				logging.Logger.Error("❌ Error polling payment onboarding", zap.Error(err))
				continue
			}
			if onboarded > 0 {
				logging.Logger.Info("✅ Recipients finished onboarding", zap.Int("count", onboarded))
			}
		}
	}
}
