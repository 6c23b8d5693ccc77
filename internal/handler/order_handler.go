package handler

import (
	"encoding/json"
	"net/http"

	"barsync/internal/lifecycle"
	"barsync/internal/model"
	"barsync/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	controller service.SyncController
	logger     zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(controller service.SyncController, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		controller: controller,
		logger:     logger.With().Str("handler", "order").Logger(),
	}
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter model.OrderFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := lifecycle.ParseStatus(raw)
		if err != nil {
			writeDomainError(w, r, err, h.logger)
			return
		}
		filter.Status = status
	}

	orders, err := h.controller.ListOrders(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id} requests.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.controller.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input model.OrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.controller.PlaceOrder(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// UpdateStatus handles PUT /api/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.controller.TransitionOrder(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
