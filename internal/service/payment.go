package service

import (
	"context"
	"fmt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/gateway"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
	"carrental-backend/internal/utils"
)

type paymentService struct {
	tx         repository.Transactor
	payments   repository.PaymentRepository
	rentals    repository.RentalRepository
	cars       repository.CarRepository
	validator  PaymentValidator
	calc       *utils.Calculator
	gateway    PaymentGateway
	notifier   Notifier
	successURL string
	cancelURL  string
}

func NewPaymentService(
	tx repository.Transactor,
	payments repository.PaymentRepository,
	rentals repository.RentalRepository,
	cars repository.CarRepository,
	validator PaymentValidator,
	calc *utils.Calculator,
	gw PaymentGateway,
	notifier Notifier,
	successURL, cancelURL string,
) PaymentService {
	return &paymentService{
		tx:         tx,
		payments:   payments,
		rentals:    rentals,
		cars:       cars,
		validator:  validator,
		calc:       calc,
		gateway:    gw,
		notifier:   notifier,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *paymentService) CreatePaymentSession(ctx context.Context, userID, rentalID int64, paymentType domain.PaymentType) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.CreatePaymentSession", "userID", userID, "rentalID", rentalID, "type", paymentType)

	payment, err := s.createPaymentSession(ctx, userID, rentalID, paymentType)
	if err != nil {
		logger.ExitMethodWithError("paymentService.CreatePaymentSession", err, "userID", userID, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("paymentService.CreatePaymentSession", "paymentID", payment.ID, "sessionID", payment.SessionID)
	return payment, nil
}

func (s *paymentService) createPaymentSession(ctx context.Context, userID, rentalID int64, paymentType domain.PaymentType) (*domain.Payment, error) {
	if _, err := domain.ParsePaymentType(string(paymentType)); err != nil {
		return nil, err
	}

	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.UserID != userID {
		return nil, domain.NewNotOwnerError("rental", rentalID)
	}
	car, err := s.cars.GetByID(ctx, rental.CarID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.CheckNoPendingPayments(ctx, userID); err != nil {
		return nil, err
	}

	previous, err := s.payments.FindByRentalAndType(ctx, rentalID, paymentType)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		switch previous.Status {
		case domain.PaymentStatusPaid:
			return nil, domain.NewConflictError(domain.CodePaymentAlreadyPaid,
				fmt.Sprintf("rental %d %s is already paid", rentalID, paymentType))
		case domain.PaymentStatusPending:
			return nil, domain.NewConflictError(domain.CodePendingPaymentsExist,
				fmt.Sprintf("rental %d already has a pending %s session", rentalID, paymentType))
		}
	}

	amount, err := s.calc.AmountForType(rental, car, paymentType)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		RentalID:   rentalID,
		Type:       paymentType,
		Amount:     amount,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return nil, err
	}
	md, err := s.gateway.ExtractMetadata(session)
	if err != nil {
		return nil, err
	}

	payment := md.ToPayment(domain.PaymentStatusPending)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// An expired attempt gives way to the new session.
		if previous != nil && previous.Status == domain.PaymentStatusExpired {
			if err := s.payments.SoftDelete(ctx, previous.ID); err != nil {
				return err
			}
		}
		return s.payments.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ExpireStaleSessions runs one expiry sweep and returns how many payments
// moved to EXPIRED. Provider failures skip the affected payment only.
func (s *paymentService) ExpireStaleSessions(ctx context.Context) (int64, error) {
	logger.EnterMethod("paymentService.ExpireStaleSessions")

	var expired int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		pending, err := s.payments.ListByStatus(ctx, domain.PaymentStatusPending)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(pending))
		for _, p := range pending {
			isExpired, err := s.gateway.IsSessionExpired(ctx, p.SessionID)
			if err != nil {
				logger.Warn("Skipping payment, session expiry check failed",
					"paymentID", p.ID, "sessionID", p.SessionID, "error", err)
				continue
			}
			if isExpired {
				ids = append(ids, p.ID)
			}
		}

		expired, err = s.payments.MarkExpired(ctx, ids)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.ExpireStaleSessions", err)
		return 0, err
	}

	logger.ExitMethod("paymentService.ExpireStaleSessions", "expired", expired)
	return expired, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	logger.EnterMethod("paymentService.HandleWebhook", "bytes", len(payload))

	event, err := s.gateway.VerifyAndDecodeEvent(payload, signature)
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandleWebhook", err)
		return err
	}
	switch event.Type {
	case gateway.EventCheckoutCompleted, gateway.EventAsyncPaymentSucceeded:
	default:
		logger.Debug("Ignoring webhook event", "eventID", event.ID, "type", event.Type)
		return nil
	}
	// Delayed payment methods complete checkout before the money moves; the
	// async success event settles those later.
	if event.Session == nil || !event.Session.Paid {
		logger.Info("Checkout completed without payment, awaiting async confirmation", "eventID", event.ID)
		logger.ExitMethod("paymentService.HandleWebhook", "eventID", event.ID)
		return nil
	}

	payment, err := s.commitPaid(ctx, event.Session)
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandleWebhook", err, "eventID", event.ID)
		return err
	}

	logger.ExitMethod("paymentService.HandleWebhook", "eventID", event.ID, "paymentID", payment.ID)
	return nil
}

// ReconcileSession asks the provider for the session state and settles the
// payment the same way the webhook would. It backs the success redirect, so
// only the owner of the session's rental may reconcile it.
func (s *paymentService) ReconcileSession(ctx context.Context, userID int64, sessionID string) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.ReconcileSession", "userID", userID, "sessionID", sessionID)

	payment, err := s.reconcileSession(ctx, userID, sessionID)
	if err != nil {
		logger.ExitMethodWithError("paymentService.ReconcileSession", err, "sessionID", sessionID)
		return nil, err
	}

	logger.ExitMethod("paymentService.ReconcileSession", "paymentID", payment.ID, "status", payment.Status)
	return payment, nil
}

func (s *paymentService) reconcileSession(ctx context.Context, userID int64, sessionID string) (*domain.Payment, error) {
	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Paid {
		payment, err := s.payments.FindBySessionID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, domain.NewNotFoundError("payment for session", sessionID)
		}
		if err := s.checkRentalOwner(ctx, userID, payment.RentalID, sessionID); err != nil {
			return nil, err
		}
		return payment, nil
	}

	md, err := s.gateway.ExtractMetadata(session)
	if err != nil {
		return nil, err
	}
	if err := s.checkRentalOwner(ctx, userID, md.RentalID, sessionID); err != nil {
		return nil, err
	}
	return s.commitPaid(ctx, session)
}

// checkRentalOwner fails with NOT_OWNER when the rental belongs to someone else.
func (s *paymentService) checkRentalOwner(ctx context.Context, userID, rentalID int64, sessionID string) error {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return err
	}
	if rental.UserID != userID {
		return domain.NewNotOwnerError("session", sessionID)
	}
	return nil
}

// commitPaid moves the session's payment to PAID. Repeated calls for the same
// session are no-ops. A missing row is created from the session metadata.
func (s *paymentService) commitPaid(ctx context.Context, session *gateway.Session) (*domain.Payment, error) {
	md, err := s.gateway.ExtractMetadata(session)
	if err != nil {
		return nil, err
	}

	var (
		result    *domain.Payment
		newlyPaid bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.payments.FindBySessionID(ctx, md.SessionID)
		if err != nil {
			return err
		}

		if existing == nil {
			other, err := s.payments.FindByRentalAndType(ctx, md.RentalID, md.Type)
			if err != nil {
				return err
			}
			if other != nil {
				return domain.NewConflictError(domain.CodeSessionMismatch,
					fmt.Sprintf("rental %d %s is tracked by session %s, not %s", md.RentalID, md.Type, other.SessionID, md.SessionID))
			}
		} else {
			switch existing.Status {
			case domain.PaymentStatusPaid:
				logger.Info("Payment already settled, ignoring repeat confirmation", "paymentID", existing.ID, "sessionID", md.SessionID)
				result = existing
				return nil
			case domain.PaymentStatusExpired:
				return domain.NewConflictError(domain.CodePaymentExpired,
					fmt.Sprintf("payment %d expired before session %s completed", existing.ID, md.SessionID))
			}
		}

		if err := s.validator.ValidateAmount(ctx, md, existing); err != nil {
			return err
		}

		if existing == nil {
			existing = md.ToPayment(domain.PaymentStatusPending)
			if err := s.payments.Create(ctx, existing); err != nil {
				return err
			}
		}

		flipped, err := s.payments.MarkPaid(ctx, existing.ID)
		if err != nil {
			return err
		}
		if !flipped {
			current, err := s.payments.GetByID(ctx, existing.ID)
			if err != nil {
				return err
			}
			if current.Status != domain.PaymentStatusPaid {
				return domain.NewConflictError(domain.CodePaymentExpired,
					fmt.Sprintf("payment %d is %s and cannot be settled", current.ID, current.Status))
			}
			result = current
			return nil
		}

		existing.Status = domain.PaymentStatusPaid
		result = existing
		newlyPaid = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newlyPaid {
		s.notifier.NotifyPaymentPaid(ctx, domain.PaymentNotice{
			PaymentID: result.ID,
			RentalID:  result.RentalID,
			Type:      result.Type,
			Amount:    result.AmountToPay,
		})
	}
	return result, nil
}

func (s *paymentService) ListPayments(ctx context.Context, userID int64) ([]domain.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

func (s *paymentService) GetPayment(ctx context.Context, userID, paymentID int64) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	rental, err := s.rentals.GetByID(ctx, payment.RentalID)
	if err != nil {
		return nil, err
	}
	if rental.UserID != userID {
		return nil, domain.NewNotOwnerError("payment", paymentID)
	}
	return payment, nil
}
