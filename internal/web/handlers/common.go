package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps attendance service errors onto HTTP responses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidRequest), errors.Is(err, attendance.ErrInvalidCapture):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrIdentityNotFound):
		respondError(w, http.StatusNotFound, "identity not found")
	case errors.Is(err, attendance.ErrDetectorUnavailable):
		respondError(w, http.StatusServiceUnavailable, "face detection is not configured")
	case errors.Is(err, facematch.ErrSourceUnavailable):
		respondError(w, http.StatusServiceUnavailable, "record store unavailable")
	case errors.Is(err, capture.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected")
	default:
		log.Printf("%s %s failed: %v", r.Method, sanitizeForLog(r.URL.Path), err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// captureRequest is the JSON form of a capture: a precomputed descriptor, or a
// base64 image (plain or as a data URL) for server-side detection.
type captureRequest struct {
	Descriptor []float32 `json:"descriptor,omitempty"`
	Image      string    `json:"image,omitempty"`
}

func (c captureRequest) toCapture() (attendance.Capture, error) {
	out := attendance.Capture{Descriptor: c.Descriptor}
	if c.Image == "" {
		return out, nil
	}

	payload := c.Image
	if strings.HasPrefix(payload, "data:") {
		_, data, ok := strings.Cut(payload, ",")
		if !ok {
			return out, errors.New("malformed data URL")
		}
		payload = data
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return out, fmt.Errorf("image is not valid base64: %w", err)
	}
	out.Image = img
	return out, nil
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxCaptureBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
