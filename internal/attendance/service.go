package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	// ErrInvalidRequest wraps validation failures of enrollment input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCapture is returned for descriptors of the wrong size or with non-finite values.
	ErrInvalidCapture = errors.New("invalid capture")
	// ErrIdentityNotFound is returned when adding a face to an unknown identity.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrDetectorUnavailable is returned when an image is supplied but no detector is configured.
	ErrDetectorUnavailable = errors.New("face detector not configured")
)

// Publisher receives attendance rows after they are recorded.
type Publisher interface {
	PublishAttendance(row database.AttendanceRow)
}

// Capture is one camera frame: either a precomputed descriptor or raw image bytes.
// A descriptor takes precedence; the image is then only used for the capture reference.
type Capture struct {
	Descriptor []float32
	Image      []byte
}

func (c Capture) empty() bool {
	return len(c.Descriptor) == 0 && len(c.Image) == 0
}

// EnrollRequest holds the registration form fields.
type EnrollRequest struct {
	StudentID string  `json:"student_id" validate:"required,max=64"`
	Name      string  `json:"name" validate:"required,max=200"`
	Major     string  `json:"major" validate:"required,max=200"`
	Capture   Capture `json:"-"`
}

// EnrollOutcome is the result of an enrollment or add-face attempt.
type EnrollOutcome string

const (
	EnrollOutcomeEnrolled           EnrollOutcome = "enrolled"
	EnrollOutcomeDescriptorAdded    EnrollOutcome = "descriptor_added"
	EnrollOutcomeDuplicateFace      EnrollOutcome = "duplicate_face"
	EnrollOutcomeDuplicateStudentID EnrollOutcome = "duplicate_student_id"
	EnrollOutcomeNoFaceDetected     EnrollOutcome = "no_face_detected"
)

// EnrollResult describes an enrollment or add-face attempt.
type EnrollResult struct {
	Outcome    EnrollOutcome              `json:"outcome"`
	Identity   *database.Identity         `json:"identity,omitempty"`
	Descriptor *database.StoredDescriptor `json:"-"`
	Conflict   *database.Identity         `json:"conflict,omitempty"` // existing identity for duplicate_face
	Distance   float64                    `json:"distance,omitempty"` // distance to the conflicting identity
}

// AttendanceResult describes an attendance attempt.
type AttendanceResult struct {
	Decision facematch.Decision `json:"decision"`
	Identity *database.Identity `json:"identity,omitempty"`
	Distance float64            `json:"distance,omitempty"`
	Record   *RecordResult      `json:"record,omitempty"` // set when recognized
}

// Outcome collapses the decision and ledger result into one user-facing value.
func (r AttendanceResult) Outcome() string {
	if r.Record != nil {
		return string(r.Record.Outcome)
	}
	return string(r.Decision)
}

// MarshalJSON adds the collapsed outcome to the encoded result.
func (r AttendanceResult) MarshalJSON() ([]byte, error) {
	type plain AttendanceResult
	return json.Marshal(struct {
		Outcome string `json:"outcome"`
		plain
	}{Outcome: r.Outcome(), plain: plain(r)})
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the receiver of recorded attendance events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source used when no capture time is given.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is one capture session: it owns the descriptor cache, matching policy,
// classifier and ledger, and runs the enrollment and attendance flows.
type Service struct {
	records    database.RecordStore
	detector   capture.Detector
	store      *facematch.Store
	guard      *facematch.Guard
	authorizer *facematch.Authorizer
	classifier *Classifier
	ledger     *Ledger
	matching   config.MatchingConfig
	publisher  Publisher
	validate   *validator.Validate
	now        func() time.Time

	// enrollMu makes the duplicate check and the insert one step within this process.
	enrollMu sync.Mutex
}

// NewService wires a capture session. detector may be nil when only descriptors are submitted.
func NewService(records database.RecordStore, detector capture.Detector, cfg *config.Config, opts ...Option) (*Service, error) {
	classifier, err := NewClassifierFromConfig(&cfg.Attendance)
	if err != nil {
		return nil, err
	}

	store := facematch.NewStore(records, cfg.Matching.DescriptorDim)
	s := &Service{
		records:    records,
		detector:   detector,
		store:      store,
		guard:      facematch.NewGuard(store),
		authorizer: facematch.NewAuthorizer(facematch.NewMatcher(store)),
		classifier: classifier,
		ledger:     NewLedger(records, classifier),
		matching:   cfg.Matching,
		validate:   validator.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Refresh reloads the descriptor cache from the record store.
func (s *Service) Refresh(ctx context.Context) error {
	return s.store.Refresh(ctx)
}

// Snapshot returns the current descriptor snapshot.
func (s *Service) Snapshot() *facematch.Snapshot {
	return s.store.All()
}

// Classifier returns the status classifier.
func (s *Service) Classifier() *Classifier {
	return s.classifier
}

// Matching returns the matching policy.
func (s *Service) Matching() config.MatchingConfig {
	return s.matching
}

// Records returns the underlying record store.
func (s *Service) Records() database.RecordStore {
	return s.records
}

// resolve turns a capture into a descriptor. found is false when no face was detected.
func (s *Service) resolve(ctx context.Context, c Capture) (vec []float32, ref string, found bool, err error) {
	if c.empty() {
		return nil, "", false, nil
	}

	if len(c.Image) > 0 {
		ref, err = capture.CaptureRef(c.Image)
		if err != nil {
			return nil, "", false, fmt.Errorf("%w: %w", ErrInvalidCapture, err)
		}
	}

	if len(c.Descriptor) > 0 {
		vec = c.Descriptor
	} else {
		if s.detector == nil {
			return nil, "", false, ErrDetectorUnavailable
		}
		img, err := capture.Downscale(c.Image, capture.MaxDetectionSize)
		if err != nil {
			return nil, "", false, fmt.Errorf("%w: %w", ErrInvalidCapture, err)
		}
		vec, err = s.detector.Detect(ctx, img)
		if errors.Is(err, capture.ErrNoFaceDetected) {
			return nil, ref, false, nil
		}
		if err != nil {
			return nil, "", false, err
		}
	}

	if err := facematch.ValidateDimension(vec, s.matching.DescriptorDim); err != nil {
		return nil, "", false, fmt.Errorf("%w: %w", ErrInvalidCapture, err)
	}
	return vec, ref, true, nil
}

// refreshAfterWrite makes a new descriptor visible to matching. The write itself
// already succeeded, so a refresh failure is only logged.
func (s *Service) refreshAfterWrite(ctx context.Context) {
	if err := s.store.Refresh(ctx); err != nil {
		log.Printf("attendance: refresh after write failed: %v", err)
	}
}

// Enroll registers a new identity with its first descriptor.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (EnrollResult, error) {
	req.StudentID = facematch.NormalizeStudentID(req.StudentID)
	req.Name = strings.TrimSpace(req.Name)
	req.Major = strings.TrimSpace(req.Major)
	if err := s.validate.Struct(req); err != nil {
		return EnrollResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	vec, ref, found, err := s.resolve(ctx, req.Capture)
	if err != nil {
		return EnrollResult{}, err
	}
	if !found {
		return EnrollResult{Outcome: EnrollOutcomeNoFaceDetected}, nil
	}

	s.enrollMu.Lock()
	defer s.enrollMu.Unlock()

	dup, match, err := s.guard.CheckDuplicate(vec, s.matching.DuplicateThreshold)
	if err != nil {
		return EnrollResult{}, err
	}
	if dup {
		conflict := match.Identity
		return EnrollResult{Outcome: EnrollOutcomeDuplicateFace, Conflict: &conflict, Distance: match.Distance}, nil
	}

	identity, err := s.records.InsertIdentity(ctx, database.NewIdentity{
		StudentID:  req.StudentID,
		Name:       req.Name,
		Major:      req.Major,
		Descriptor: database.NewDescriptor{Vector: vec, CaptureRef: ref},
	})
	if errors.Is(err, database.ErrUniqueViolation) {
		return EnrollResult{Outcome: EnrollOutcomeDuplicateStudentID}, nil
	}
	if err != nil {
		log.Printf("attendance: enroll %s failed: %v", req.StudentID, err)
		return EnrollResult{}, fmt.Errorf("enrolling %s: %w", req.StudentID, err)
	}

	s.refreshAfterWrite(ctx)
	return EnrollResult{Outcome: EnrollOutcomeEnrolled, Identity: identity}, nil
}

// AddFace stores another descriptor for an existing identity. The identity itself is
// exempt from the duplicate check; a sample matching anyone else is rejected.
func (s *Service) AddFace(ctx context.Context, identityID int64, c Capture) (EnrollResult, error) {
	identity, err := s.records.GetIdentity(ctx, identityID)
	if err != nil {
		return EnrollResult{}, fmt.Errorf("loading identity %d: %w", identityID, err)
	}
	if identity == nil {
		return EnrollResult{}, fmt.Errorf("%w: %d", ErrIdentityNotFound, identityID)
	}

	vec, ref, found, err := s.resolve(ctx, c)
	if err != nil {
		return EnrollResult{}, err
	}
	if !found {
		return EnrollResult{Outcome: EnrollOutcomeNoFaceDetected, Identity: identity}, nil
	}

	s.enrollMu.Lock()
	defer s.enrollMu.Unlock()

	dup, match, err := s.guard.CheckDuplicate(vec, s.matching.DuplicateThreshold, identityID)
	if err != nil {
		return EnrollResult{}, err
	}
	if dup {
		conflict := match.Identity
		return EnrollResult{
			Outcome:  EnrollOutcomeDuplicateFace,
			Identity: identity,
			Conflict: &conflict,
			Distance: match.Distance,
		}, nil
	}

	desc, err := s.records.InsertDescriptor(ctx, identityID, database.NewDescriptor{Vector: vec, CaptureRef: ref})
	if err != nil {
		log.Printf("attendance: add face to identity %d failed: %v", identityID, err)
		return EnrollResult{}, fmt.Errorf("adding descriptor to identity %d: %w", identityID, err)
	}

	s.refreshAfterWrite(ctx)
	return EnrollResult{Outcome: EnrollOutcomeDescriptorAdded, Identity: identity, Descriptor: desc}, nil
}

// MarkAttendance authorizes the capture and, when recognized, writes one ledger event
// at time at (now when zero). A StoreFailure is returned together with the error.
func (s *Service) MarkAttendance(ctx context.Context, c Capture, at time.Time) (AttendanceResult, error) {
	if at.IsZero() {
		at = s.now()
	}

	vec, _, found, err := s.resolve(ctx, c)
	if err != nil {
		return AttendanceResult{}, err
	}
	if !found {
		vec = nil
	}

	auth, err := s.authorizer.Authorize(vec, s.matching.RecognitionThreshold)
	if err != nil {
		return AttendanceResult{}, err
	}
	result := AttendanceResult{Decision: auth.Decision, Distance: auth.Distance}
	if !auth.Recognized() {
		return result, nil
	}

	identity := auth.Identity
	result.Identity = &identity

	rec, err := s.ledger.Record(ctx, identity, at)
	result.Record = &rec
	if err != nil {
		return result, err
	}

	if rec.Outcome == OutcomeRecorded && s.publisher != nil {
		s.publisher.PublishAttendance(database.AttendanceRow{
			AttendanceEvent: *rec.Event,
			StudentID:       identity.StudentID,
			Name:            identity.Name,
		})
	}
	return result, nil
}

// Neighbors returns the k identities closest to the capture for threshold tuning.
func (s *Service) Neighbors(ctx context.Context, c Capture, k int) ([]facematch.Neighbor, error) {
	vec, _, found, err := s.resolve(ctx, c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, capture.ErrNoFaceDetected
	}
	return s.store.All().Neighbors(vec, k)
}
