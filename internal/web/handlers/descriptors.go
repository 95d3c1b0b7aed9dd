package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// DescriptorsHandler handles descriptor cache maintenance and diagnostics
type DescriptorsHandler struct {
	service *attendance.Service
}

// NewDescriptorsHandler creates a new descriptors handler
func NewDescriptorsHandler(svc *attendance.Service) *DescriptorsHandler {
	return &DescriptorsHandler{service: svc}
}

// RefreshResponse describes the descriptor cache after a refresh
type RefreshResponse struct {
	Identities  int    `json:"identities"`
	Descriptors int    `json:"descriptors"`
	RefreshedAt string `json:"refreshed_at"`
}

// Refresh reloads the descriptor cache from the record store
func (h *DescriptorsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Refresh(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	snap := h.service.Snapshot()
	respondJSON(w, http.StatusOK, RefreshResponse{
		Identities:  snap.Len(),
		Descriptors: snap.DescriptorCount(),
		RefreshedAt: snap.RefreshedAt().UTC().Format(time.RFC3339),
	})
}

type neighborsRequest struct {
	captureRequest
	K int `json:"k,omitempty"`
}

// NeighborsResponse lists the identities closest to a capture
type NeighborsResponse struct {
	RecognitionThreshold float64              `json:"recognition_threshold"`
	DuplicateThreshold   float64              `json:"duplicate_threshold"`
	Neighbors            []facematch.Neighbor `json:"neighbors"`
}

// Neighbors returns the k nearest identities with exact distances, for threshold tuning
func (h *DescriptorsHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	var req neighborsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	capture, err := req.toCapture()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	k := req.K
	if k <= 0 {
		k = constants.DefaultNeighborLimit
	}
	k = min(k, constants.MaxNeighborLimit)

	neighbors, err := h.service.Neighbors(r.Context(), capture, k)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if neighbors == nil {
		neighbors = []facematch.Neighbor{}
	}

	matching := h.service.Matching()
	respondJSON(w, http.StatusOK, NeighborsResponse{
		RecognitionThreshold: matching.RecognitionThreshold,
		DuplicateThreshold:   matching.DuplicateThreshold,
		Neighbors:            neighbors,
	})
}
