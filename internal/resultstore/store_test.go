package resultstore

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	cfg := Config{
		DBPath:        dbPath,
		BatchSize:     10,
		FlushInterval: 20 * time.Millisecond,
	}

	store, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return store, func() { store.Close() }
}

func TestRecordStatusAndResult(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	store.RecordStatus("run-1", "q1", "host1: worker started.")
	store.RecordResult("run-1", "q1", 42, "hunter2", true)
	store.RecordStatus("run-1", "q1", "host1: TERM")

	store.Flush()

	events, err := store.Events("run-1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	if events[0].Kind != EventStatus || events[0].StatusText != "host1: worker started." {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Kind != EventResult || events[1].Attempts != 42 || events[1].Solution != "hunter2" || !events[1].HasSolution {
		t.Errorf("event 1 = %+v", events[1])
	}
	if events[2].Kind != EventStatus || events[2].StatusText != "host1: TERM" {
		t.Errorf("event 2 = %+v", events[2])
	}
}

func TestEventsScopedByRunID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	store.RecordStatus("run-a", "qa", "a")
	store.RecordStatus("run-b", "qb", "b")
	store.Flush()

	eventsA, err := store.Events("run-a")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(eventsA) != 1 || eventsA[0].StatusText != "a" {
		t.Errorf("got %+v", eventsA)
	}
}
