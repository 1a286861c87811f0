package jobs

import (
	"context"

	"carrental-backend/internal/logger"
)

// ExpirePendingPayments runs one session expiry sweep.
func (jr *JobRunner) ExpirePendingPayments() {
	jr.runWithRecovery("ExpirePendingPayments", func() {
		log := logger.WithJob("ExpirePendingPayments")

		expired, err := jr.services.Payment.ExpireStaleSessions(context.Background())
		if err != nil {
			log.Error("Expiry sweep failed", "error", err)
			return
		}
		if expired > 0 {
			log.Info("Expired stale payment sessions", "count", expired)
		}
	})
}
