package bullpen

import "time"

// RunStats accumulates the figures a run tracks end to end: timing
// milestones, attempt/preterminal counters, and the solution if one was
// found. cmd/cracken-head prints this on normal completion or on SIGINT.
type RunStats struct {
	Start            time.Time
	FirstSolution    time.Time
	FullyQueuedAt    time.Time
	ExhaustedAt      time.Time
	HostCount        int
	PreterminalCount int64
	Attempts         int64
	Solution         string
	Found            bool
}

// RecordPreterminal tallies one emitted preterminal.
func (s *RunStats) RecordPreterminal() {
	s.PreterminalCount++
}

// RecordResult folds a RESULT message's attempt count into the running
// total and records the first solution's arrival time.
func (s *RunStats) RecordResult(attempts int64, solution string, found bool) {
	s.Attempts += attempts
	if found && !s.Found {
		s.Found = true
		s.Solution = solution
		s.FirstSolution = timeNow()
	}
}

// MarkFullyQueued records that the enumerator has emitted its last
// preterminal and every TASK has been enqueued.
func (s *RunStats) MarkFullyQueued() {
	s.FullyQueuedAt = timeNow()
}

// MarkExhausted records that the run has fully drained: every worker has
// reported TERM and no further RESULTs are expected.
func (s *RunStats) MarkExhausted() {
	s.ExhaustedAt = timeNow()
}

// timeNow is a seam so tests can stub wall-clock reads if ever needed;
// production code always calls through to time.Now.
var timeNow = time.Now
