package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"carrental-backend/internal/security"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Payment   *PaymentHandler
	Rental    *RentalHandler
	Inventory *InventoryHandler
	// Ping reports storage health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewRouter registers every named route. Route names are the keys of
// config.RouteSecurityConfig.
func NewRouter(h *Handlers, tokens security.TokenManager) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet).Name("health")

	r.HandleFunc("/webhooks/stripe", h.Payment.Webhook).Methods(http.MethodPost).Name("stripe-webhook")
	r.HandleFunc("/payments/success", h.Payment.Success).Methods(http.MethodGet).Name("payment-success")
	r.HandleFunc("/payments/cancel", h.Payment.Cancel).Methods(http.MethodGet).Name("payment-cancel")
	r.HandleFunc("/payments", h.Payment.Create).Methods(http.MethodPost).Name("create-payment")
	r.HandleFunc("/payments", h.Payment.List).Methods(http.MethodGet).Name("list-payments")
	r.HandleFunc("/payments/{id:[0-9]+}", h.Payment.Get).Methods(http.MethodGet).Name("get-payment")

	r.HandleFunc("/rentals", h.Rental.Create).Methods(http.MethodPost).Name("create-rental")
	r.HandleFunc("/rentals", h.Rental.List).Methods(http.MethodGet).Name("list-rentals")
	r.HandleFunc("/rentals/{id:[0-9]+}", h.Rental.Get).Methods(http.MethodGet).Name("get-rental")
	r.HandleFunc("/rentals/{id:[0-9]+}/return", h.Rental.Return).Methods(http.MethodPost).Name("return-rental")

	r.HandleFunc("/cars/{id:[0-9]+}/inventory", h.Inventory.Adjust).Methods(http.MethodPatch).Name("adjust-inventory")

	r.Use(loggingMiddleware, AuthMiddleware(tokens))
	return r
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
