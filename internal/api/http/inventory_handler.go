package http

import (
	"net/http"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"
)

type InventoryHandler struct {
	inventory service.InventoryService
}

func NewInventoryHandler(inventory service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

type adjustInventoryRequest struct {
	Quantity  int    `json:"quantity"`
	Operation string `json:"operation"`
}

func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req adjustInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	op, err := domain.ParseInventoryOperation(req.Operation)
	if err != nil {
		writeError(w, r, err)
		return
	}

	car, err := h.inventory.Adjust(r.Context(), carID, req.Quantity, op)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}
