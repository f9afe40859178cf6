package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "lead-intake-service/internal/common/errors"
	"lead-intake-service/internal/intake"
	"lead-intake-service/internal/intake/validation"
	"lead-intake-service/internal/models"

	"github.com/google/uuid"
)

// maxUploadBytes bounds the multipart form read; the validator enforces the
// precise document cap with a user-facing reason.
const maxUploadBytes = validation.MaxDocumentSize + 1<<20

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "rejected"
	defer func() {
		s.recordIntake(r, start, outcome)
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, apperrors.NewInvalidDocumentError(validation.ReasonDocumentTooLarge))
		return
	}

	firstName := r.FormValue("first_name")
	lastName := r.FormValue("last_name")
	email := r.FormValue("email")

	file, header, err := r.FormFile("resume")
	if err != nil {
		s.writeError(w, apperrors.NewInvalidDocumentError(validation.ReasonFilenameMissing))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, apperrors.NewInvalidDocumentError(validation.ReasonDocumentTooLarge))
		return
	}

	lead, err := s.intake.CreateSubmission(r.Context(), clientKey(r), firstName, lastName, email, intake.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	outcome = "accepted"
	s.writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) recordIntake(r *http.Request, start time.Time, outcome string) {
	if s.obs == nil {
		return
	}
	s.obs.RecordIntakeProcessed(r.Context(), outcome)
	s.obs.RecordIntakeDuration(r.Context(), time.Since(start), outcome)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.intake.ListLeads(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	s.writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}
	lead, err := s.intake.GetLead(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleUpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status models.LeadStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, apperrors.NewInvalidTransitionError("", "unparseable"))
		return
	}
	if body.Status == "" {
		body.Status = models.LeadStatusReachedOut
	}

	lead, err := s.intake.UpdateLeadStatus(r.Context(), id, body.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}
	content, contentType, err := s.intake.GetResume(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	recs, err := s.failures.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if recs == nil {
		recs = []models.FailedNotification{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleResendFailure(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt64(w, r)
	if !ok {
		return
	}
	if err := s.failures.Resend(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiscardFailure(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt64(w, r)
	if !ok {
		return
	}
	if err := s.failures.Discard(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, apperrors.NewNotFoundError("lead", r.PathValue("id")))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) pathInt64(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, apperrors.NewNotFoundError("failed notification", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Code: "INTERNAL_ERROR", Message: "Internal server error"}

	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		resp = errorResponse{
			Code:    string(stdErr.Code),
			Message: stdErr.Message,
			Details: stdErr.Details,
		}
		switch stdErr.Code {
		case apperrors.ErrCodeRateLimitExceeded:
			status = http.StatusTooManyRequests
		case apperrors.ErrCodeInvalidEmail, apperrors.ErrCodeInvalidDocument, apperrors.ErrCodeInvalidTransition:
			status = http.StatusBadRequest
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeNotInFailedState:
			status = http.StatusConflict
		case apperrors.ErrCodeDeliveryFailed:
			status = http.StatusBadGateway
		case apperrors.ErrCodeStorageFailed:
			status = http.StatusInternalServerError
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
