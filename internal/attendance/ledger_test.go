package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func enrolledStore(t *testing.T) (*mock.MockRecordStore, *database.Identity) {
	t.Helper()
	store := mock.NewMockRecordStore()
	identity, err := store.InsertIdentity(context.Background(), database.NewIdentity{
		StudentID: "TI-001", Name: "Ayu Lestari", Major: "Informatics",
		Descriptor: database.NewDescriptor{Vector: make([]float32, 128)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store, identity
}

func TestLedger_RecordTwiceSameDay(t *testing.T) {
	loc := jakarta(t)
	store, identity := enrolledStore(t)
	ledger := NewLedger(store, NewClassifier(8*time.Hour, loc))
	ctx := context.Background()

	first, err := ledger.Record(ctx, *identity, time.Date(2026, 3, 2, 8, 10, 0, 0, loc))
	if err != nil {
		t.Fatal(err)
	}
	if first.Outcome != OutcomeRecorded || first.Status != database.StatusLate {
		t.Errorf("first = %+v, want Recorded/LATE", first)
	}
	if first.Event == nil || first.Event.LocalDate != "2026-03-02" {
		t.Errorf("expected persisted event for 2026-03-02, got %+v", first.Event)
	}
	if first.Event.RecordedAt.Location() != time.UTC {
		t.Error("recorded instant must be stored in UTC")
	}

	second, err := ledger.Record(ctx, *identity, time.Date(2026, 3, 2, 17, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("already recorded must not be an error, got %v", err)
	}
	if second.Outcome != OutcomeAlreadyRecordedToday {
		t.Errorf("second outcome = %s, want already_recorded_today", second.Outcome)
	}
	if store.AttendanceCount() != 1 {
		t.Errorf("expected one stored event, got %d", store.AttendanceCount())
	}
}

func TestLedger_OneInsertPerAttempt(t *testing.T) {
	store, identity := enrolledStore(t)
	ledger := NewLedger(store, NewClassifier(8*time.Hour, time.UTC))
	at := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	for range 3 {
		if _, err := ledger.Record(context.Background(), *identity, at); err != nil {
			t.Fatal(err)
		}
	}
	if store.InsertAttendanceCalls != 3 {
		t.Errorf("expected exactly one insert per attempt, got %d inserts", store.InsertAttendanceCalls)
	}
}

func TestLedger_StoreFailure(t *testing.T) {
	store, identity := enrolledStore(t)
	store.InsertAttendanceError = errors.New("connection reset by peer")
	ledger := NewLedger(store, NewClassifier(8*time.Hour, time.UTC))

	result, err := ledger.Record(context.Background(), *identity, time.Now())
	if err == nil {
		t.Fatal("expected error for store failure")
	}
	if result.Outcome != OutcomeStoreFailure {
		t.Errorf("outcome = %s, want store_failure", result.Outcome)
	}
	if store.InsertAttendanceCalls != 1 {
		t.Errorf("store failure must not be retried, got %d inserts", store.InsertAttendanceCalls)
	}
}

func TestLedger_ConcurrentSameIdentity(t *testing.T) {
	store, identity := enrolledStore(t)
	ledger := NewLedger(store, NewClassifier(8*time.Hour, time.UTC))
	at := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	const workers = 16
	outcomes := make(chan Outcome, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Record(context.Background(), *identity, at)
			if err != nil {
				t.Errorf("Record() error = %v", err)
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[Outcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	if counts[OutcomeRecorded] != 1 || counts[OutcomeAlreadyRecordedToday] != workers-1 {
		t.Errorf("unexpected outcome distribution %v", counts)
	}
	if ledger.locks.size() != 0 {
		t.Errorf("idle keyed locks leaked: %d", ledger.locks.size())
	}
}
