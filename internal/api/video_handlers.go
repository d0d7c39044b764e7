package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/video"
)

func videoTokenHandler(svc *video.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req VideoTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Subject == "" {
			writeError(w, http.StatusBadRequest, "missing_subject", "subject must not be empty")
			return
		}

		token, err := svc.RoomToken(r.Context(), id, req.Subject, req.Role)
		if err != nil {
			switch {
			case errors.Is(err, appointment.ErrAppointmentNotFound):
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
			case errors.Is(err, video.ErrNotJoinable):
				writeError(w, http.StatusConflict, "not_joinable", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, VideoTokenResponse{Token: token, Room: id.String()})
	}
}
