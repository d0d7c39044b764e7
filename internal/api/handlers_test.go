package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telecare/booking-service/internal/appointment"
	"github.com/telecare/booking-service/internal/availability"
	"github.com/telecare/booking-service/internal/notify"
	"github.com/telecare/booking-service/internal/triage"
	"github.com/telecare/booking-service/internal/video"
)

// windowStore is a minimal in-memory availability.Repository.
type windowStore struct {
	mu      sync.Mutex
	windows map[uuid.UUID]availability.Window
}

func newWindowStore() *windowStore {
	return &windowStore{windows: make(map[uuid.UUID]availability.Window)}
}

func (s *windowStore) active(doctor string, day availability.Day, exclude uuid.UUID) []availability.Window {
	var out []availability.Window
	for _, w := range s.windows {
		if w.Active && w.DoctorName == doctor && w.Day == day && w.ID != exclude {
			out = append(out, w)
		}
	}
	return out
}

func (s *windowStore) CreateBatch(_ context.Context, windows []availability.Window) ([]availability.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := make([]availability.Window, 0, len(windows))
	for _, w := range windows {
		existing := s.active(w.DoctorName, w.Day, uuid.Nil)
		existing = append(existing, created...)
		if c := availability.FirstConflict(w.Day, w.StartMinutes, w.EndMinutes, existing, uuid.Nil); c != nil {
			return nil, &availability.OverlapError{Conflict: *c}
		}
		created = append(created, w)
	}
	for _, w := range created {
		s.windows[w.ID] = w
	}
	return created, nil
}

func (s *windowStore) Update(_ context.Context, w availability.Window) (availability.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.windows[w.ID]
	if !ok || !cur.Active {
		return availability.Window{}, availability.ErrWindowNotFound
	}
	if c := availability.FirstConflict(w.Day, w.StartMinutes, w.EndMinutes, s.active(w.DoctorName, w.Day, w.ID), w.ID); c != nil {
		return availability.Window{}, &availability.OverlapError{Conflict: *c}
	}
	s.windows[w.ID] = w
	return w, nil
}

func (s *windowStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	if !ok || !w.Active {
		return availability.ErrWindowNotFound
	}
	w.Active = false
	s.windows[id] = w
	return nil
}

func (s *windowStore) List(_ context.Context) ([]availability.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []availability.Window
	for _, w := range s.windows {
		if w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *windowStore) ActiveForDoctorDay(_ context.Context, doctor string, day availability.Day) ([]availability.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active(doctor, day, uuid.Nil), nil
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func availabilityRouter(store *windowStore) http.Handler {
	svc := availability.NewService(store, zerolog.Nop())
	r := chi.NewRouter()
	r.Post("/availability", createAvailabilityHandler(svc))
	r.Get("/availability", listAvailabilityHandler(svc))
	r.Put("/availability/{id}", updateAvailabilityHandler(svc))
	r.Delete("/availability/{id}", deleteAvailabilityHandler(svc))
	return r
}

func TestAvailabilityEndpoints(t *testing.T) {
	store := newWindowStore()
	router := availabilityRouter(store)

	rec := doJSON(t, router, http.MethodPost, "/availability", CreateAvailabilityRequest{
		DoctorName:  "Dr. Adams",
		Days:        []string{"monday", "wednesday"},
		StartTime:   "09:00",
		EndTime:     "12:00",
		SlotMinutes: 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created []WindowResponse
	decodeBody(t, rec, &created)
	require.Len(t, created, 2)
	assert.Equal(t, "Monday", created[0].Day)
	assert.Equal(t, "09:00", created[0].StartTime)

	// Overlapping batch is rejected with 409.
	rec = doJSON(t, router, http.MethodPost, "/availability", CreateAvailabilityRequest{
		DoctorName:  "Dr. Adams",
		Days:        []string{"monday"},
		StartTime:   "11:00",
		EndTime:     "13:00",
		SlotMinutes: 30,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "window_overlap", errResp.Error)

	// Bad clock format is a 400.
	rec = doJSON(t, router, http.MethodPost, "/availability", CreateAvailabilityRequest{
		DoctorName:  "Dr. Adams",
		Days:        []string{"friday"},
		StartTime:   "9am",
		EndTime:     "12:00",
		SlotMinutes: 30,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Edit the Monday window to the afternoon.
	rec = doJSON(t, router, http.MethodPut, "/availability/"+created[0].ID.String(), UpdateAvailabilityRequest{
		DoctorName:  "Dr. Adams",
		Day:         "monday",
		StartTime:   "13:00",
		EndTime:     "17:00",
		SlotMinutes: 30,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated WindowResponse
	decodeBody(t, rec, &updated)
	assert.Equal(t, "13:00", updated.StartTime)

	// Retire it and verify a second delete 404s.
	req := httptest.NewRequest(http.MethodDelete, "/availability/"+created[0].ID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/availability/"+created[0].ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/availability", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []WindowResponse
	decodeBody(t, rec, &listed)
	assert.Len(t, listed, 1)
}

// apptStore is a minimal in-memory appointment.Repository for handler
// tests. Only the methods the booking flow touches do real work.
type apptStore struct {
	mu sync.Mutex
	by map[uuid.UUID]*appointment.Appointment
}

func newApptStore() *apptStore {
	return &apptStore{by: make(map[uuid.UUID]*appointment.Appointment)}
}

func (s *apptStore) Create(_ context.Context, a *appointment.Appointment) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.by {
		if other.DoctorName == a.DoctorName && other.Schedule.Equal(a.Schedule) && other.Status != appointment.StatusCancelled {
			return nil, appointment.ErrSlotTaken
		}
	}
	cp := *a
	cp.ID = uuid.New()
	s.by[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *apptStore) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.by[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *apptStore) FindOccupant(_ context.Context, doctor string, schedule time.Time) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.by {
		if a.DoctorName == doctor && a.Schedule.Equal(schedule) && a.Status != appointment.StatusCancelled {
			cp := *a
			return &cp, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (s *apptStore) BookedTimes(_ context.Context, doctor string, dayStart, dayEnd time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for _, a := range s.by {
		if a.DoctorName == doctor && a.Status != appointment.StatusCancelled &&
			!a.Schedule.Before(dayStart) && a.Schedule.Before(dayEnd) {
			out = append(out, a.Schedule)
		}
	}
	return out, nil
}

func (s *apptStore) MarkScheduled(_ context.Context, id uuid.UUID, note string) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.by[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if a.Status != appointment.StatusPending {
		return nil, appointment.ErrInvalidTransition
	}
	a.Status = appointment.StatusScheduled
	a.Note = note
	cp := *a
	return &cp, nil
}

func (s *apptStore) MarkCancelled(_ context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.by[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if a.Status == appointment.StatusCancelled {
		return nil, appointment.ErrInvalidTransition
	}
	a.Status = appointment.StatusCancelled
	a.CancellationReason = reason
	cp := *a
	return &cp, nil
}

func (s *apptStore) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range s.by {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *apptStore) ListByStatus(_ context.Context, status appointment.Status, limit, offset int) ([]appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range s.by {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *apptStore) CountByStatus(_ context.Context) (map[appointment.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[appointment.Status]int)
	for _, a := range s.by {
		out[a.Status]++
	}
	return out, nil
}

func (s *apptStore) SetTriage(_ context.Context, id uuid.UUID, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.by[id]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	a.Triage = raw
	return nil
}

func (s *apptStore) ListUpcoming(context.Context, time.Time, time.Time) ([]appointment.UpcomingAppointment, error) {
	return nil, nil
}

type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noContacts struct{}

func (noContacts) Contact(context.Context, uuid.UUID) (string, string, error) {
	return "", "", fmt.Errorf("no directory in tests")
}

func bookingRouter(windows *windowStore, appts *apptStore) http.Handler {
	svc := appointment.NewService(appts, windows, passLocker{}, noContacts{}, notify.NoopSender{}, 7, zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/doctors/{doctor}/available-slots", availableSlotsHandler(svc))
	r.Post("/appointments", bookAppointmentHandler(svc))
	r.Post("/appointments/{id}/schedule", scheduleAppointmentHandler(svc))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc))
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	return r
}

func slotClocks(resp AvailableSlotsResponse) []string {
	out := make([]string, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		out = append(out, s.Time)
	}
	return out
}

func seedWindow(t *testing.T, store *windowStore, doctor string, day availability.Day, start, end, slot int) {
	t.Helper()
	_, err := store.CreateBatch(context.Background(), []availability.Window{{
		ID:           uuid.New(),
		DoctorName:   doctor,
		Day:          day,
		StartMinutes: start,
		EndMinutes:   end,
		SlotMinutes:  slot,
		Active:       true,
	}})
	require.NoError(t, err)
}

func TestBookingEndpoints(t *testing.T) {
	windows := newWindowStore()
	appts := newApptStore()
	router := bookingRouter(windows, appts)

	// 2026-01-05 is a Monday.
	seedWindow(t, windows, "Dr. Adams", availability.Monday, 9*60, 11*60, 30)

	rec := doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		DoctorName: "Dr. Adams",
		Date:       "2026-01-05",
		Time:       "09:30",
		PatientID:  uuid.NewString(),
		Reason:     "checkup",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var booked AppointmentResponse
	decodeBody(t, rec, &booked)
	assert.Equal(t, "pending", booked.Status)

	// Same slot again conflicts.
	rec = doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		DoctorName: "Dr. Adams",
		Date:       "2026-01-05",
		Time:       "09:30",
		PatientID:  uuid.NewString(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "slot_already_booked", errResp.Error)

	// Off-grid time conflicts with the schedule itself.
	rec = doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		DoctorName: "Dr. Adams",
		Date:       "2026-01-05",
		Time:       "09:45",
		PatientID:  uuid.NewString(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "doctor_unavailable", errResp.Error)

	// The booked slot is gone from discovery.
	rec = doJSON(t, router, http.MethodGet, "/doctors/Dr.%20Adams/available-slots?date=2026-01-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slotsResp AvailableSlotsResponse
	decodeBody(t, rec, &slotsResp)
	assert.NotContains(t, slotClocks(slotsResp), "09:30")
	assert.Contains(t, slotClocks(slotsResp), "09:00")

	// Confirm, then cancel.
	rec = doJSON(t, router, http.MethodPost, "/appointments/"+booked.ID.String()+"/schedule", ScheduleAppointmentRequest{Note: "fasting required"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/appointments/"+booked.ID.String()+"/schedule", ScheduleAppointmentRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/appointments/"+booked.ID.String()+"/cancel", CancelAppointmentRequest{Reason: "conflict"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Slot is offered again after the cancellation.
	rec = doJSON(t, router, http.MethodGet, "/doctors/Dr.%20Adams/available-slots?date=2026-01-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &slotsResp)
	assert.Contains(t, slotClocks(slotsResp), "09:30")

	rec = doJSON(t, router, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailableSlotsPayload(t *testing.T) {
	windows := newWindowStore()
	router := bookingRouter(windows, newApptStore())

	seedWindow(t, windows, "Dr. Okafor", availability.Monday, 9*60, 10*60, 30)

	rec := doJSON(t, router, http.MethodGet, "/doctors/Dr.%20Okafor/available-slots?date=2026-01-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.Bytes()

	var resp AvailableSlotsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, SlotResponse{Time: "09:00", FormattedTime: "9:00 AM"}, resp.Slots[0])
	assert.Equal(t, SlotResponse{Time: "09:30", FormattedTime: "9:30 AM"}, resp.Slots[1])

	// Each slot object carries both clock forms on the wire.
	var raw struct {
		Slots []map[string]string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(body, &raw))
	require.NotEmpty(t, raw.Slots)
	assert.Equal(t, "09:00", raw.Slots[0]["time"])
	assert.Equal(t, "9:00 AM", raw.Slots[0]["formattedTime"])
}

type fakeAssessor struct {
	assessment *triage.Assessment
	err        error
}

func (f *fakeAssessor) Assess(context.Context, string) (*triage.Assessment, error) {
	return f.assessment, f.err
}

func triageRouter(appts *apptStore, assessor triage.Assessor) http.Handler {
	svc := triage.NewService(assessor, appts, zerolog.Nop())
	r := chi.NewRouter()
	r.Post("/appointments/{id}/triage", runTriageHandler(svc))
	r.Get("/appointments/{id}/triage", getTriageHandler(svc))
	r.Post("/appointments/{id}/triage/review", reviewTriageHandler(svc))
	return r
}

func TestTriageEndpoints(t *testing.T) {
	appts := newApptStore()
	appt, err := appts.Create(context.Background(), &appointment.Appointment{
		DoctorName: "Dr. Adams",
		Schedule:   time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
		Status:     appointment.StatusPending,
	})
	require.NoError(t, err)

	router := triageRouter(appts, &fakeAssessor{assessment: &triage.Assessment{
		Summary: "Likely tension headache",
		Urgency: triage.UrgencyLow,
	}})

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+appt.ID.String()+"/triage", TriageRequest{Symptoms: "headache"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/appointments/"+appt.ID.String()+"/triage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var record triage.Record
	decodeBody(t, rec, &record)
	assert.Equal(t, triage.ReviewPending, record.Review.State)

	rec = doJSON(t, router, http.MethodPost, "/appointments/"+appt.ID.String()+"/triage/review", TriageReviewRequest{
		Reviewer: "dr.evans",
		Decision: triage.ReviewOverridden,
		Urgency:  triage.UrgencyModerate,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &record)
	assert.Equal(t, triage.UrgencyModerate, record.Review.Urgency)

	// Upstream outage maps to 503.
	downRouter := triageRouter(appts, &fakeAssessor{err: triage.ErrTriageUnavailable})
	rec = doJSON(t, downRouter, http.MethodPost, "/appointments/"+appt.ID.String()+"/triage", TriageRequest{Symptoms: "cough"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type apptGetter struct {
	store *apptStore
}

func (g apptGetter) Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return g.store.GetByID(ctx, id)
}

func TestVideoTokenEndpoint(t *testing.T) {
	appts := newApptStore()
	appt, err := appts.Create(context.Background(), &appointment.Appointment{
		DoctorName: "Dr. Adams",
		Schedule:   time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
		Status:     appointment.StatusPending,
	})
	require.NoError(t, err)

	issuer := video.NewIssuer("secret", "telecare", 15*time.Minute)
	svc := video.NewService(issuer, apptGetter{store: appts})
	r := chi.NewRouter()
	r.Post("/appointments/{id}/video-token", videoTokenHandler(svc))

	// Pending appointments are not joinable.
	rec := doJSON(t, r, http.MethodPost, "/appointments/"+appt.ID.String()+"/video-token", VideoTokenRequest{Subject: "patient-1", Role: video.RolePatient})
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err = appts.MarkScheduled(context.Background(), appt.ID, "")
	require.NoError(t, err)

	rec = doJSON(t, r, http.MethodPost, "/appointments/"+appt.ID.String()+"/video-token", VideoTokenRequest{Subject: "patient-1", Role: video.RolePatient})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp VideoTokenResponse
	decodeBody(t, rec, &resp)

	claims, err := issuer.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, appt.ID.String(), claims.Room)
}
