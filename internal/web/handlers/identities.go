package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// IdentitiesHandler handles enrollment and identity profile endpoints
type IdentitiesHandler struct {
	service *attendance.Service
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(svc *attendance.Service) *IdentitiesHandler {
	return &IdentitiesHandler{service: svc}
}

// IdentityResponse is an identity with its enrolled sample count
type IdentityResponse struct {
	database.Identity
	DescriptorCount int `json:"descriptor_count"`
}

// List returns enrolled identities, optionally filtered by ?q= on name or student ID
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Records().ListIdentities(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	query := r.URL.Query().Get("q")
	result := make([]IdentityResponse, 0, len(records))
	for _, rec := range records {
		if !facematch.MatchesQuery(rec.Identity, query) {
			continue
		}
		result = append(result, IdentityResponse{Identity: rec.Identity, DescriptorCount: len(rec.Descriptors)})
	}

	respondJSON(w, http.StatusOK, result)
}

// Get returns one identity profile
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identityIDParam(w, r)
	if !ok {
		return
	}

	identity, err := h.service.Records().GetIdentity(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if identity == nil {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	count, err := h.service.Records().CountDescriptors(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, IdentityResponse{Identity: *identity, DescriptorCount: count})
}

type enrollRequest struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Major     string `json:"major"`
	captureRequest
}

// Enroll registers a new identity from the form fields and a capture
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	capture, err := req.toCapture()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Enroll(r.Context(), attendance.EnrollRequest{
		StudentID: req.StudentID,
		Name:      req.Name,
		Major:     req.Major,
		Capture:   capture,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, enrollStatus(result.Outcome), result)
}

// AddFace stores another sample for an existing identity
func (h *IdentitiesHandler) AddFace(w http.ResponseWriter, r *http.Request) {
	id, ok := identityIDParam(w, r)
	if !ok {
		return
	}

	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	capture, err := req.toCapture()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.AddFace(r.Context(), id, capture)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, enrollStatus(result.Outcome), result)
}

func enrollStatus(outcome attendance.EnrollOutcome) int {
	switch outcome {
	case attendance.EnrollOutcomeEnrolled, attendance.EnrollOutcomeDescriptorAdded:
		return http.StatusCreated
	case attendance.EnrollOutcomeDuplicateFace, attendance.EnrollOutcomeDuplicateStudentID:
		return http.StatusConflict
	case attendance.EnrollOutcomeNoFaceDetected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

func identityIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return 0, false
	}
	return id, true
}
