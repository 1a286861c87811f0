package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"
)

// maxWebhookBody caps provider event payloads.
const maxWebhookBody = 65536

type PaymentHandler struct {
	payments service.PaymentService
}

func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createPaymentRequest struct {
	RentalID int64  `json:"rental_id"`
	Type     string `json:"type"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	paymentType, err := domain.ParsePaymentType(req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payment, err := h.payments.CreatePaymentSession(r.Context(), userID, req.RentalID, paymentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.payments.ListPayments(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.payments.GetPayment(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// Webhook receives provider events. A 2xx tells the provider to stop
// retrying, so only verified and committed events are acknowledged.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, domain.NewMalformedPayloadError(domain.CodeMalformedPayload, "unable to read event body", err))
		return
	}

	if err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// Success is the redirect target after checkout. It reconciles the session
// against the provider so the caller sees the settled state even when the
// webhook has not arrived yet.
func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, r, domain.NewValidationError(domain.CodeInvalidArgument, "session_id is required",
			domain.FieldError{Field: "session_id", Message: "must not be empty"}))
		return
	}
	payment, err := h.payments.ReconcileSession(r.Context(), userID, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "cancelled",
		"message": "payment was cancelled, the session stays open until it expires",
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(domain.CodeInvalidArgument, "invalid "+name+": "+raw,
			domain.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return id, nil
}
