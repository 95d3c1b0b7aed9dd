package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// AttendanceHandler handles check-in and dashboard endpoints
type AttendanceHandler struct {
	service *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// MarkResponse is the result of one check-in attempt
type MarkResponse struct {
	Outcome    string                    `json:"outcome"`
	Decision   facematch.Decision        `json:"decision"`
	Identity   *database.Identity        `json:"identity,omitempty"`
	Distance   float64                   `json:"distance"`
	Status     database.AttendanceStatus `json:"status,omitempty"`
	LocalDate  string                    `json:"local_date,omitempty"`
	EventID    int64                     `json:"event_id,omitempty"`
	RecordedAt string                    `json:"recorded_at,omitempty"`
	LocalTime  string                    `json:"local_time,omitempty"`
}

// Mark authorizes a capture and records attendance for a recognized identity.
// The capture time is always the server clock; clients cannot backdate a check-in.
// Every domain outcome is a 200; only a store failure is reported as 500.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	capture, err := req.toCapture()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.MarkAttendance(r.Context(), capture, time.Time{})
	if err != nil && (result.Record == nil || result.Record.Outcome != attendance.OutcomeStoreFailure) {
		respondServiceError(w, r, err)
		return
	}

	resp := MarkResponse{
		Outcome:  result.Outcome(),
		Decision: result.Decision,
		Identity: result.Identity,
		Distance: result.Distance,
	}
	if rec := result.Record; rec != nil {
		resp.Status = rec.Status
		resp.LocalDate = rec.LocalDate
		if rec.Event != nil {
			resp.EventID = rec.Event.ID
			resp.RecordedAt = rec.Event.RecordedAt.UTC().Format(time.RFC3339)
			resp.LocalTime = rec.Event.RecordedAt.In(h.service.Classifier().Location()).Format(time.RFC3339)
		}
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, resp)
}

// AttendanceRowResponse is a dashboard row with the display-timezone rendering
type AttendanceRowResponse struct {
	database.AttendanceRow
	LocalTime string `json:"local_time"`
}

// List returns dashboard rows, newest first.
// Query parameters: from, to (YYYY-MM-DD local dates, inclusive), identity_id, limit.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseAttendanceFilter(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	rows, err := h.service.Records().ListAttendance(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	loc := h.service.Classifier().Location()
	result := make([]AttendanceRowResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, AttendanceRowResponse{
			AttendanceRow: row,
			LocalTime:     row.RecordedAt.In(loc).Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, result)
}

func parseAttendanceFilter(r *http.Request) (database.AttendanceFilter, string) {
	q := r.URL.Query()
	filter := database.AttendanceFilter{Limit: constants.DefaultAttendancePageSize}

	for _, p := range []struct {
		key  string
		dest *string
	}{{"from", &filter.FromDate}, {"to", &filter.ToDate}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		if _, err := time.Parse(database.LocalDateLayout, v); err != nil {
			return filter, p.key + " must be a YYYY-MM-DD date"
		}
		*p.dest = v
	}
	if filter.FromDate != "" && filter.ToDate != "" && filter.FromDate > filter.ToDate {
		return filter, "from must not be after to"
	}

	if v := q.Get("identity_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, "invalid identity_id"
		}
		filter.IdentityID = id
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, "invalid limit"
		}
		filter.Limit = min(n, constants.MaxAttendancePageSize)
	}
	return filter, ""
}
