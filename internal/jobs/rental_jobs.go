package jobs

import (
	"context"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
)

// DetectOverdueRentals notifies about every active rental due today or
// earlier. Rentals are not modified.
func (jr *JobRunner) DetectOverdueRentals() {
	jr.runWithRecovery("DetectOverdueRentals", func() {
		ctx := context.Background()
		log := logger.WithJob("DetectOverdueRentals")

		today := domain.TruncateDate(jr.now().UTC())
		notices, err := jr.services.Rental.FindOverdue(ctx, today)
		if err != nil {
			log.Error("Failed to find overdue rentals", "error", err)
			return
		}

		for _, notice := range notices {
			log.Debug("Rental overdue",
				"rental_id", notice.RentalID,
				"user_id", notice.UserID,
				"return_date", notice.ReturnDate.Format(domain.DateLayout),
				"days_overdue", notice.DaysOverdue)
			jr.services.Notifier.NotifyOverdue(ctx, notice)
		}

		log.Info("Overdue rentals detected", "count", len(notices))
	})
}
