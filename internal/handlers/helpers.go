package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"valles-rodes/internal/models"
	"valles-rodes/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

// RateLimited is the response for a request turned away by a rate limiter.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	handleServiceError(w, r, &services.RateLimitError{
		Message: "Demasiadas solicitudes. Inténtalo de nuevo en unos minutos.",
	})
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *services.ValidationError
		rlerr *services.RateLimitError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorRespWithFields("VALIDATION_ERROR", "Validation failed", verr.Fields, r))
	case errors.As(err, &rlerr):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rlerr.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
