package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/telecare/booking-service/internal/availability"
)

func createAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		windows, err := svc.CreateBatch(r.Context(), req.DoctorName, req.Days, req.StartTime, req.EndTime, req.SlotMinutes)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, toWindowResponse(win))
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func updateAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
			return
		}

		var req UpdateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		win, err := svc.Update(r.Context(), id, req.DoctorName, req.Day, req.StartTime, req.EndTime, req.SlotMinutes)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWindowResponse(win))
	}
}

func deleteAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
			return
		}

		if err := svc.SoftDelete(r.Context(), id); err != nil {
			handleAvailabilityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		windows, err := svc.List(r.Context())
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, toWindowResponse(win))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	var verr *availability.ValidationError
	var overlap *availability.OverlapError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_"+verr.Field, verr.Message)
	case errors.As(err, &overlap):
		writeError(w, http.StatusConflict, "window_overlap", overlap.Error())
	case errors.Is(err, availability.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
