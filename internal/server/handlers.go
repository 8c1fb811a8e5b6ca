package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"document-qa/internal/apperrors"
	"document-qa/internal/models"
)

// multipart parts above this size spill to temporary files
const multipartMemory = 8 << 20

// QAService is the pipeline the handlers drive
type QAService interface {
	Upload(ctx context.Context, filename, format string, data []byte) (*models.UploadResult, error)
	Ask(ctx context.Context, ids []string, question string) (*models.PromptResponse, error)
	Documents() []models.DocumentInfo
}

type QARequest struct {
	DocumentIDs []string `json:"document_ids" validate:"required,min=1,dive,required"`
	Question    string   `json:"question" validate:"required"`
}

type documentsResponse struct {
	Documents []models.DocumentInfo `json:"documents"`
}

var validate = validator.New()

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s item(s)", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tooLargeMsg := fmt.Sprintf("file exceeds the %d byte upload limit", s.maxUploadBytes)
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, apperrors.KindValidation, tooLargeMsg)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, apperrors.KindValidation, tooLargeMsg)
			return
		}
		writeError(w, r, http.StatusBadRequest, apperrors.KindValidation, "expected a multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, apperrors.KindValidation, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handleServiceError(w, r, apperrors.Wrap(apperrors.KindInternal, "failed to read upload", err))
		return
	}

	res, err := s.svc.Upload(r.Context(), header.Filename, r.FormValue("format"), data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, res); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, apperrors.KindValidation, "invalid JSON body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, apperrors.KindValidation, validationMessage(err))
		return
	}

	resp, err := s.svc.Ask(r.Context(), req.DocumentIDs, req.Question)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, documentsResponse{Documents: s.svc.Documents()}); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
