// Package facematch turns captured face descriptors into identity decisions.
// It is shared between the CLI commands and the web handlers.
package facematch

import (
	"github.com/kozaktomas/face-attendance/internal/database"
)

// MatchResult is the outcome of a nearest-identity search.
// When Matched is false the identity is UNKNOWN; Distance then still carries the
// nearest identity's distance (or +Inf when nothing was enrolled) for diagnostics.
type MatchResult struct {
	Matched  bool
	Identity database.Identity
	Distance float64
}

// Decision is the attendance authorization verdict.
type Decision string

const (
	DecisionRecognized     Decision = "recognized"      // Descriptor matched an enrolled identity
	DecisionNotRecognized  Decision = "not_recognized"  // Face present but no identity within threshold
	DecisionNoFaceDetected Decision = "no_face_detected" // Detection produced no descriptor
)

// Authorization is the result of Authorizer.Authorize.
type Authorization struct {
	Decision Decision          `json:"decision"`
	Identity database.Identity `json:"identity"`
	Distance float64           `json:"distance"`
}

// Recognized reports whether the authorization names an identity.
func (a Authorization) Recognized() bool {
	return a.Decision == DecisionRecognized
}

// Neighbor is one identity from a neighbor diagnostic query.
type Neighbor struct {
	Identity database.Identity `json:"identity"`
	Distance float64           `json:"distance"` // exact minimum over the identity's descriptors
}
