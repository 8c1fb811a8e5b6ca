package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"document-qa/internal/apperrors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind apperrors.Kind, message string) {
	if err := writeJSON(w, status, errorResponse{Error: string(kind), Message: message}); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to write error response")
	}
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindUnsupportedFormat, apperrors.KindValidation, apperrors.KindEmptyInput:
		return http.StatusBadRequest
	case apperrors.KindEmptyDocument, apperrors.KindExtraction:
		return http.StatusUnprocessableEntity
	case apperrors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError maps a pipeline error onto a status and an error body.
// Causes of server side failures are logged, not returned.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		writeError(w, r, http.StatusInternalServerError, apperrors.KindInternal, "internal server error")
		return
	}

	status := statusFor(appErr.Kind)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
	} else {
		hlog.FromRequest(r).Info().Err(err).Msg("Request rejected")
	}
	writeError(w, r, status, appErr.Kind, appErr.Message)
}
