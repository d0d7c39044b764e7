package api

import (
	"net/http"
	"time"

	"github.com/telecare/booking-service/internal/insights"
)

// parseRange reads from/to query parameters, defaulting to the last 12
// weeks ending tomorrow.
func parseRange(r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -12*7)
	to := now.AddDate(0, 0, 1)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

func weeklyVolumesHandler(svc *insights.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, ok := parseRange(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_range", "from and to must be YYYY-MM-DD")
			return
		}

		volumes, err := svc.WeeklyVolumes(r.Context(), from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, volumes)
	}
}

func exportHandler(svc *insights.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, ok := parseRange(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_range", "from and to must be YYYY-MM-DD")
			return
		}

		rows, err := svc.Export(r.Context(), from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
