// Package attendance records presence events for recognized identities.
package attendance

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Classifier tags an instant as on-time or late against a local wall-clock cutoff.
type Classifier struct {
	cutoff time.Duration // offset from local midnight
	loc    *time.Location
}

// NewClassifier creates a classifier. A nil location means UTC.
func NewClassifier(cutoff time.Duration, loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{cutoff: cutoff, loc: loc}
}

// NewClassifierFromConfig builds a classifier from the attendance configuration.
func NewClassifierFromConfig(cfg *config.AttendanceConfig) (*Classifier, error) {
	cutoff, err := cfg.CutoffOffset()
	if err != nil {
		return nil, fmt.Errorf("attendance cutoff: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return NewClassifier(cutoff, loc), nil
}

// Classify returns ON_TIME when the local clock, at whole-second precision, is at or
// before the cutoff.
func (c *Classifier) Classify(t time.Time) database.AttendanceStatus {
	local := t.In(c.loc)
	clock := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	if clock <= c.cutoff {
		return database.StatusOnTime
	}
	return database.StatusLate
}

// LocalDate returns the calendar day of t in the display timezone.
func (c *Classifier) LocalDate(t time.Time) string {
	return t.In(c.loc).Format(database.LocalDateLayout)
}

// Location returns the display timezone.
func (c *Classifier) Location() *time.Location {
	return c.loc
}

// Cutoff returns the cutoff as an offset from local midnight.
func (c *Classifier) Cutoff() time.Duration {
	return c.cutoff
}
