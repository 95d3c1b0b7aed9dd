// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for the live attendance broadcast channel
	EventChannelBuffer = 256

	// ClientSendBuffer is the per-subscriber outbound message buffer
	ClientSendBuffer = 32
)

// Request size constants
const (
	// MaxCaptureBodySize is the maximum request body for a capture (image or descriptor) in bytes (10MB)
	MaxCaptureBodySize = 10 << 20
)
