package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/telecare/booking-service/internal/patient"
)

func toPatientResponse(p *patient.Patient) PatientResponse {
	resp := PatientResponse{
		ID:                p.ID,
		Name:              p.Name,
		Email:             p.Email,
		Phone:             p.Phone,
		Gender:            p.Gender,
		Address:           p.Address,
		EmergencyContact:  p.EmergencyContact,
		PrimaryPhysician:  p.PrimaryPhysician,
		InsuranceProvider: p.InsuranceProvider,
		InsurancePolicy:   p.InsurancePolicy,
		IdentificationRef: p.IdentificationRef,
		CreatedAt:         p.CreatedAt,
	}
	if p.BirthDate != nil {
		resp.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	return resp
}

func patientFromRequest(req PatientRequest) (patient.Patient, error) {
	p := patient.Patient{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Gender:            req.Gender,
		Address:           req.Address,
		EmergencyContact:  req.EmergencyContact,
		PrimaryPhysician:  req.PrimaryPhysician,
		InsuranceProvider: req.InsuranceProvider,
		InsurancePolicy:   req.InsurancePolicy,
		IdentificationRef: req.IdentificationRef,
	}
	if req.BirthDate != "" {
		bd, err := time.ParseInLocation("2006-01-02", req.BirthDate, time.UTC)
		if err != nil {
			return patient.Patient{}, err
		}
		p.BirthDate = &bd
	}
	return p, nil
}

func registerPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := patientFromRequest(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_birth_date", "birth_date must be YYYY-MM-DD")
			return
		}

		created, err := svc.Register(r.Context(), p)
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPatientResponse(created))
	}
}

func getPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func updatePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		var req PatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := patientFromRequest(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_birth_date", "birth_date must be YYYY-MM-DD")
			return
		}

		updated, err := svc.Update(r.Context(), id, p)
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(updated))
	}
}

func listPatientsHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		patients, err := svc.List(r.Context(), limit, offset)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		resp := make([]PatientResponse, 0, len(patients))
		for i := range patients {
			resp = append(resp, toPatientResponse(&patients[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePatientError(w http.ResponseWriter, err error) {
	var verr *patient.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_"+verr.Field, verr.Message)
	case errors.Is(err, patient.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, patient.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
