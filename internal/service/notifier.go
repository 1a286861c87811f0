package service

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type mailNotifier struct {
	sender mailSender
	from   string
	to     string
}

// NewMailNotifier sends notices as plain-text mail to the operations inbox.
// Without an SMTP host it only logs them.
func NewMailNotifier(cfg config.SMTPConfig) Notifier {
	if cfg.Host == "" {
		return logNotifier{}
	}
	return &mailNotifier{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		to:     cfg.NotifyTo,
	}
}

func (n *mailNotifier) NotifyRentalCreated(ctx context.Context, rental *domain.Rental) {
	body := fmt.Sprintf("Rental #%d was booked by user %d for car %d.\n\nRental date: %s\nReturn date: %s\n",
		rental.ID, rental.UserID, rental.CarID,
		rental.RentalDate.Format(domain.DateLayout), rental.ReturnDate.Format(domain.DateLayout))
	n.send(fmt.Sprintf("Rental #%d booked", rental.ID), body)
}

func (n *mailNotifier) NotifyPaymentPaid(ctx context.Context, notice domain.PaymentNotice) {
	body := fmt.Sprintf("Payment #%d (%s) for rental #%d was completed.\n\nAmount: %s\n",
		notice.PaymentID, notice.Type, notice.RentalID, notice.Amount.StringFixed(2))
	n.send(fmt.Sprintf("Payment received for rental #%d", notice.RentalID), body)
}

func (n *mailNotifier) NotifyOverdue(ctx context.Context, notice domain.OverdueNotice) {
	body := fmt.Sprintf("Rental #%d (user %d, car %d) was due on %s and is %d day(s) overdue.\n",
		notice.RentalID, notice.UserID, notice.CarID, notice.ReturnDate.Format(domain.DateLayout), notice.DaysOverdue)
	n.send(fmt.Sprintf("Rental #%d is overdue", notice.RentalID), body)
}

// send delivers in the background; failures are logged and dropped.
func (n *mailNotifier) send(subject, body string) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body+"\nCar Rental Operations")

	go func() {
		logger.ExternalServiceCall("smtp", "send", "subject", subject)
		err := n.sender.DialAndSend(m)
		logger.ExternalServiceResult("smtp", "send", err, "subject", subject)
	}()
}

type logNotifier struct{}

func (logNotifier) NotifyRentalCreated(ctx context.Context, rental *domain.Rental) {
	logger.InfoContext(ctx, "Rental created", "rentalID", rental.ID, "userID", rental.UserID, "carID", rental.CarID)
}

func (logNotifier) NotifyPaymentPaid(ctx context.Context, notice domain.PaymentNotice) {
	logger.InfoContext(ctx, "Payment completed", "paymentID", notice.PaymentID, "rentalID", notice.RentalID,
		"type", notice.Type, "amount", notice.Amount.StringFixed(2))
}

func (logNotifier) NotifyOverdue(ctx context.Context, notice domain.OverdueNotice) {
	logger.InfoContext(ctx, "Rental overdue", "rentalID", notice.RentalID, "userID", notice.UserID,
		"daysOverdue", notice.DaysOverdue)
}
