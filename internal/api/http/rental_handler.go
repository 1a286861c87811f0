package http

import (
	"net/http"
	"strconv"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"
)

type RentalHandler struct {
	rentals service.RentalService
	now     func() time.Time
}

func NewRentalHandler(rentals service.RentalService) *RentalHandler {
	return &RentalHandler{rentals: rentals, now: time.Now}
}

type createRentalRequest struct {
	CarID      int64  `json:"car_id"`
	RentalDate string `json:"rental_date"`
	ReturnDate string `json:"return_date"`
}

type returnRentalRequest struct {
	ActualReturnDate string `json:"actual_return_date"`
}

func (h *RentalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var fields []domain.FieldError
	rentalDate, ok := parseDate(req.RentalDate)
	if !ok {
		fields = append(fields, domain.FieldError{Field: "rental_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	returnDate, ok := parseDate(req.ReturnDate)
	if !ok {
		fields = append(fields, domain.FieldError{Field: "return_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	if len(fields) > 0 {
		writeError(w, r, domain.NewValidationError(domain.CodeInvalidArgument, "invalid rental request", fields...))
		return
	}

	rental, err := h.rentals.CreateRental(r.Context(), userID, req.CarID, rentalDate, returnDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

// Return closes a rental. The actual return date defaults to today.
func (h *RentalHandler) Return(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	returned := domain.TruncateDate(h.now().UTC())
	var req returnRentalRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ActualReturnDate != "" {
		d, ok := parseDate(req.ActualReturnDate)
		if !ok {
			writeError(w, r, domain.NewValidationError(domain.CodeInvalidArgument, "invalid return request",
				domain.FieldError{Field: "actual_return_date", Message: "must be a date in YYYY-MM-DD format"}))
			return
		}
		returned = d
	}

	rental, err := h.rentals.ReturnRental(r.Context(), userID, rentalID, returned)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var active *bool
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, domain.NewValidationError(domain.CodeInvalidArgument, "invalid is_active: "+raw,
				domain.FieldError{Field: "is_active", Message: "must be true or false"}))
			return
		}
		active = &v
	}

	rentals, err := h.rentals.ListRentals(r.Context(), userID, active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rentals == nil {
		rentals = []domain.Rental{}
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rentalID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rental, err := h.rentals.GetRental(r.Context(), userID, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
