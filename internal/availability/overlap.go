package availability

import "github.com/google/uuid"

// FirstConflict returns the first existing window whose [start,end)
// interval overlaps the candidate on the same day, or nil. Windows that
// merely touch (end of one equals start of the next) do not conflict;
// the half-open test covers exact match, containment and partial
// overlap in both directions.
//
// excludeID skips the window being edited so an update does not
// conflict with itself.
func FirstConflict(day Day, startMinutes, endMinutes int, existing []Window, excludeID uuid.UUID) *Window {
	for i := range existing {
		w := &existing[i]
		if !w.Active || w.Day != day || w.ID == excludeID {
			continue
		}
		if startMinutes < w.EndMinutes && w.StartMinutes < endMinutes {
			return w
		}
	}
	return nil
}

// FirstBatchConflict checks every window in a batch against the
// existing calendar and against the windows earlier in the same batch,
// in insert order. Returns the conflicting window, or nil if the whole
// batch is clean.
func FirstBatchConflict(batch, existing []Window) *Window {
	seen := make([]Window, 0, len(existing)+len(batch))
	seen = append(seen, existing...)
	for _, w := range batch {
		if c := FirstConflict(w.Day, w.StartMinutes, w.EndMinutes, seen, uuid.Nil); c != nil {
			return c
		}
		w.Active = true // batch members are always inserted active
		seen = append(seen, w)
	}
	return nil
}
