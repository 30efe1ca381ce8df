// Package resultstore provides optional SQLite-backed persistence of a
// run's STATUS/RESULT history through a batched writer, so a crashed
// coordinator can recover a run's history instead of losing it to an
// in-memory-only RunStats.
package resultstore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.up.sql
var migration001SQL string

// EventKind distinguishes a STATUS event from a RESULT event in the
// persisted history.
type EventKind string

const (
	EventStatus EventKind = "STATUS"
	EventResult EventKind = "RESULT"
)

// Event is one persisted STATUS or RESULT record for a run.
type Event struct {
	RunID       string
	QueueID     string
	Kind        EventKind
	StatusText  string
	Attempts    int64
	Solution    string
	HasSolution bool
	CreatedAt   time.Time
}

// Store is a SQLite-backed append-only log of run events, written through
// a batching writer goroutine.
type Store struct {
	db *sql.DB

	writeCh   chan Event
	flushCh   chan chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Config configures a Store.
type Config struct {
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns sensible batching defaults for a single dispatcher
// process.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:        dbPath,
		BatchSize:     200,
		FlushInterval: 20 * time.Millisecond,
	}
}

// New opens (creating if necessary) the SQLite database at cfg.DBPath,
// runs its migration, and starts the batch writer.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resultstore: opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("resultstore: setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(migration001SQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("resultstore: running migration: %w", err)
	}

	s := &Store{
		db:      db,
		writeCh: make(chan Event, 1000),
		flushCh: make(chan chan struct{}),
		closeCh: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.batchWriter(cfg.BatchSize, cfg.FlushInterval)

	return s, nil
}

// RecordStatus queues a STATUS event for persistence. It never blocks on
// disk I/O; the batch writer flushes asynchronously.
func (s *Store) RecordStatus(runID, queueID, text string) {
	s.writeCh <- Event{RunID: runID, QueueID: queueID, Kind: EventStatus, StatusText: text, CreatedAt: time.Now()}
}

// RecordResult queues a RESULT event for persistence.
func (s *Store) RecordResult(runID, queueID string, attempts int64, solution string, found bool) {
	s.writeCh <- Event{
		RunID:       runID,
		QueueID:     queueID,
		Kind:        EventResult,
		Attempts:    attempts,
		Solution:    solution,
		HasSolution: found,
		CreatedAt:   time.Now(),
	}
}

func (s *Store) batchWriter(batchSize int, flushInterval time.Duration) {
	defer s.wg.Done()

	batch := make([]Event, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.writeBatch(batch); err != nil {
			// A fire-and-forget event log has no caller to report this to;
			// the best it can do is a log line.
			fmt.Printf("resultstore: batch write failed: %v\n", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-s.writeCh:
			batch = append(batch, ev)
			if batchSize > 0 && len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case doneCh := <-s.flushCh:
			// Take in every event already queued before Flush was called.
			for drained := false; !drained; {
				select {
				case ev := <-s.writeCh:
					batch = append(batch, ev)
				default:
					drained = true
				}
			}
			flush()
			close(doneCh)
		case <-s.closeCh:
			close(s.writeCh)
			for ev := range s.writeCh {
				batch = append(batch, ev)
			}
			flush()
			return
		}
	}
}

func (s *Store) writeBatch(batch []Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO run_events
		(run_id, queue_id, kind, status_text, attempts, solution, has_solution, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range batch {
		hasSolution := 0
		if ev.HasSolution {
			hasSolution = 1
		}
		if _, err := stmt.Exec(ev.RunID, ev.QueueID, string(ev.Kind), ev.StatusText, ev.Attempts, ev.Solution, hasSolution, ev.CreatedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Events returns every persisted event for runID, ordered by insertion.
func (s *Store) Events(runID string) ([]Event, error) {
	rows, err := s.db.Query(`SELECT run_id, queue_id, kind, status_text, attempts, solution, has_solution, created_at
		FROM run_events WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("resultstore: querying events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var kind string
		var hasSolution int
		var createdAt string
		if err := rows.Scan(&ev.RunID, &ev.QueueID, &kind, &ev.StatusText, &ev.Attempts, &ev.Solution, &hasSolution, &createdAt); err != nil {
			return nil, fmt.Errorf("resultstore: scanning event: %w", err)
		}
		ev.Kind = EventKind(kind)
		ev.HasSolution = hasSolution != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ev.CreatedAt = t
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Flush forces an immediate flush of pending writes; primarily useful in
// tests to make async writes visible before querying Events.
func (s *Store) Flush() {
	doneCh := make(chan struct{})
	select {
	case s.flushCh <- doneCh:
		<-doneCh
	case <-s.closeCh:
	}
}

// Close flushes any pending events and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
