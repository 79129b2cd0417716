package handlers

import (
	"encoding/json"
	"net/http"

	"valles-rodes/internal/models"
	"valles-rodes/internal/services"
)

// BookingAPIHandler backs the live estimator and window check on the form.
type BookingAPIHandler struct {
	bookings *services.BookingService
}

func NewBookingAPIHandler(bookings *services.BookingService) *BookingAPIHandler {
	return &BookingAPIHandler{bookings: bookings}
}

// TireOptions handles GET /api/v1/tires/options?service=&size=.
func (h *BookingAPIHandler) TireOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.bookings.Quote(q.Get("service"), q.Get("size")))
}

// ValidateWindow handles POST /api/v1/bookings/validate-window.
func (h *BookingAPIHandler) ValidateWindow(w http.ResponseWriter, r *http.Request) {
	var req models.WindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_REQUEST", "Invalid request body", r))
		return
	}
	if err := h.bookings.CheckWindow(req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.WindowResponse{Valid: true})
}
