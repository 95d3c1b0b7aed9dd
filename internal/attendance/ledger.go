package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Outcome is the result of a ledger write.
type Outcome string

const (
	OutcomeRecorded             Outcome = "recorded"
	OutcomeAlreadyRecordedToday Outcome = "already_recorded_today"
	OutcomeStoreFailure         Outcome = "store_failure"
)

// RecordResult describes a ledger write attempt.
type RecordResult struct {
	Outcome   Outcome                   `json:"outcome"`
	Status    database.AttendanceStatus `json:"status"`
	LocalDate string                    `json:"local_date"`
	Event     *database.AttendanceEvent `json:"event,omitempty"` // set when Recorded
}

// Ledger writes attendance events through the record store.
type Ledger struct {
	store      database.AttendanceWriter
	classifier *Classifier
	locks      *keyedMutex
}

func NewLedger(store database.AttendanceWriter, classifier *Classifier) *Ledger {
	return &Ledger{
		store:      store,
		classifier: classifier,
		locks:      newKeyedMutex(),
	}
}

// Record classifies t and issues exactly one insert. A unique violation means the
// identity is already present for that local day. Any other store error is logged,
// returned, and not retried.
func (l *Ledger) Record(ctx context.Context, identity database.Identity, t time.Time) (RecordResult, error) {
	result := RecordResult{
		Status:    l.classifier.Classify(t),
		LocalDate: l.classifier.LocalDate(t),
	}

	unlock := l.locks.Lock(identity.ID)
	defer unlock()

	event, err := l.store.InsertAttendance(ctx, database.NewAttendance{
		IdentityID: identity.ID,
		RecordedAt: t.UTC(),
		LocalDate:  result.LocalDate,
		Status:     result.Status,
	})
	switch {
	case err == nil:
		result.Outcome = OutcomeRecorded
		result.Event = event
		return result, nil
	case errors.Is(err, database.ErrUniqueViolation):
		result.Outcome = OutcomeAlreadyRecordedToday
		return result, nil
	default:
		log.Printf("attendance: store failure for identity %d (%s) on %s: %v",
			identity.ID, identity.StudentID, result.LocalDate, err)
		result.Outcome = OutcomeStoreFailure
		return result, fmt.Errorf("recording attendance for identity %d: %w", identity.ID, err)
	}
}

// keyedMutex serializes work per key and drops idle entries.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*keyedLock)}
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
