package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/abusaleh34/secure-cas-commercial/internal/api/middleware"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	resp := ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.CorrelationCtx(r.Context()),
	}
	JSON(w, r, resp, status)
}

// Err maps domain errors to HTTP statuses and writes the error response.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateUsername):
		status = http.StatusConflict
	case errors.Is(err, core.ErrSourceDisabled):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrDelivery):
		status = http.StatusBadGateway
	case errors.Is(err, core.ErrPersistence), errors.Is(err, core.ErrRuleLookup):
		status = http.StatusInternalServerError
	}
	Error(w, r, short+": "+err.Error(), status)
}
