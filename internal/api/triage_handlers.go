package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/triage"
)

func runTriageHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TriageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Symptoms == "" {
			writeError(w, http.StatusBadRequest, "missing_symptoms", "symptoms must not be empty")
			return
		}

		record, err := svc.Run(r.Context(), id, req.Symptoms)
		if err != nil {
			handleTriageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, record)
	}
}

func getTriageHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		record, err := svc.Get(r.Context(), id)
		if err != nil {
			handleTriageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func reviewTriageHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TriageReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Reviewer == "" {
			writeError(w, http.StatusBadRequest, "missing_reviewer", "reviewer must not be empty")
			return
		}

		record, err := svc.Review(r.Context(), id, req.Reviewer, req.Decision, req.Urgency, req.Note)
		if err != nil {
			handleTriageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleTriageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, triage.ErrNoTriage):
		writeError(w, http.StatusNotFound, "triage_not_found", err.Error())
	case errors.Is(err, triage.ErrTriageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "triage_unavailable", err.Error())
	case errors.Is(err, triage.ErrAlreadyFinal):
		writeError(w, http.StatusConflict, "review_final", err.Error())
	case errors.Is(err, triage.ErrInvalidReview):
		writeError(w, http.StatusBadRequest, "invalid_review", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
