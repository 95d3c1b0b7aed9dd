package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Matching   MatchingConfig   `yaml:"matching"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Detection  DetectionConfig  `yaml:"detection"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"-"`
}

// MatchingConfig holds the descriptor matching policy.
// Both thresholds are Euclidean distances; a match requires distance strictly below the threshold.
type MatchingConfig struct {
	RecognitionThreshold float64 `yaml:"recognition_threshold"`
	DuplicateThreshold   float64 `yaml:"duplicate_threshold"`
	DescriptorDim        int     `yaml:"descriptor_dim"`
}

type AttendanceConfig struct {
	Cutoff   string `yaml:"cutoff"`   // local wall-clock time, HH:MM or HH:MM:SS
	Timezone string `yaml:"timezone"` // IANA zone name used for status and calendar day
}

// Location resolves the configured display timezone.
func (c *AttendanceConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CutoffOffset parses the cutoff into an offset from local midnight.
func (c *AttendanceConfig) CutoffOffset() (time.Duration, error) {
	return ParseClock(c.Cutoff)
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into a duration since midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	layout := "15:04:05"
	if strings.Count(s, ":") == 1 {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

type DetectionConfig struct {
	URL            string `yaml:"url"` // embedding service base URL
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout for the detection service.
func (c *DetectionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // "postgres" or "mariadb"
	URL             string `yaml:"-"`      // DSN for the selected driver
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	RefreshSchedule string `yaml:"-"` // cron spec for periodic descriptor refresh (optional)
}

type AuthConfig struct {
	Username      string
	SessionSecret string // HMAC key for session cookies
	passwordHash  string // bcrypt hash, unexported to keep it out of logs and JSON
}

// PasswordHash returns the configured bcrypt hash of the operator password.
func (c *AuthConfig) PasswordHash() string {
	return c.passwordHash
}

// SetPasswordHash sets the operator password hash.
func (c *AuthConfig) SetPasswordHash(hash string) {
	c.passwordHash = hash
}

// Enabled reports whether operator login is configured.
func (c *AuthConfig) Enabled() bool {
	return c.Username != "" && c.passwordHash != ""
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive finite float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return defaultVal
	}
	return f
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults Config
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// Embedded file, so this only fails on a broken build.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg := &Config{
		Matching: MatchingConfig{
			RecognitionThreshold: envFloat("RECOGNITION_THRESHOLD", defaults.Matching.RecognitionThreshold),
			DuplicateThreshold:   envFloat("DUPLICATE_THRESHOLD", defaults.Matching.DuplicateThreshold),
			DescriptorDim:        envInt("DESCRIPTOR_DIM", defaults.Matching.DescriptorDim),
		},
		Attendance: AttendanceConfig{
			Cutoff:   envString("ATTENDANCE_CUTOFF", defaults.Attendance.Cutoff),
			Timezone: envString("DISPLAY_TIMEZONE", defaults.Attendance.Timezone),
		},
		Detection: DetectionConfig{
			URL:            envString("DETECTION_URL", defaults.Detection.URL),
			TimeoutSeconds: envInt("DETECTION_TIMEOUT_SECONDS", defaults.Detection.TimeoutSeconds),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(envString("DATABASE_DRIVER", defaults.Database.Driver)),
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", defaults.Database.MaxOpenConns),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", defaults.Database.MaxIdleConns),
			RefreshSchedule: os.Getenv("DESCRIPTOR_REFRESH_SCHEDULE"),
		},
		Auth: AuthConfig{
			Username:      os.Getenv("OPERATOR_USERNAME"),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
		},
	}
	cfg.Auth.SetPasswordHash(os.Getenv("OPERATOR_PASSWORD_HASH"))
	return cfg
}

// Validate checks that the policy values are usable before the service starts.
func (c *Config) Validate() error {
	if c.Matching.DuplicateThreshold <= 0 || c.Matching.RecognitionThreshold <= 0 {
		return fmt.Errorf("thresholds must be positive (recognition=%v, duplicate=%v)",
			c.Matching.RecognitionThreshold, c.Matching.DuplicateThreshold)
	}
	if _, err := c.Attendance.Location(); err != nil {
		return err
	}
	if _, err := c.Attendance.CutoffOffset(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "postgres", "mariadb":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or mariadb)", c.Database.Driver)
	}
	return nil
}
