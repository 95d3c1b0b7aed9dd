package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	service *attendance.Service
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, svc *attendance.Service) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		service: svc,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	RecognitionThreshold float64 `json:"recognition_threshold"`
	DuplicateThreshold   float64 `json:"duplicate_threshold"`
	DescriptorDim        int     `json:"descriptor_dim"`
	Cutoff               string  `json:"cutoff"`
	Timezone             string  `json:"timezone"`
	DatabaseDriver       string  `json:"database_driver"`
	AuthEnabled          bool    `json:"auth_enabled"`
	Identities           int     `json:"identities"`
	Descriptors          int     `json:"descriptors"`
	RefreshedAt          string  `json:"refreshed_at,omitempty"`
}

// Get returns the active matching policy and descriptor cache state
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	matching := h.service.Matching()
	classifier := h.service.Classifier()

	response := ConfigResponse{
		RecognitionThreshold: matching.RecognitionThreshold,
		DuplicateThreshold:   matching.DuplicateThreshold,
		DescriptorDim:        matching.DescriptorDim,
		Cutoff:               formatClock(classifier.Cutoff()),
		Timezone:             classifier.Location().String(),
		DatabaseDriver:       h.config.Database.Driver,
		AuthEnabled:          h.config.Auth.Enabled(),
		Identities:           snap.Len(),
		Descriptors:          snap.DescriptorCount(),
	}
	if t := snap.RefreshedAt(); !t.IsZero() {
		response.RefreshedAt = t.UTC().Format(time.RFC3339)
	}

	respondJSON(w, http.StatusOK, response)
}

// formatClock renders an offset from midnight as HH:MM:SS.
func formatClock(d time.Duration) string {
	return time.Time{}.Add(d).Format("15:04:05")
}
