package bullpen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fiddeb/cracken-go/internal/queuepb"
	"github.com/fiddeb/cracken-go/internal/queueserver"
	"github.com/fiddeb/cracken-go/internal/sshlaunch"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// queueIDLength is the configured length of the rejection-sampled queue id.
const queueIDLength = 12

// StatusHandler is invoked by the drain loop for every STATUS message it
// passes through to the operator. RESULT messages never reach it; they are
// delivered through GetResult instead.
type StatusHandler func(text string)

// Bullpen is one dispatcher instance against a bootstrapped
// DispatcherContext: its per-run state is the target hosts, queue id, the
// task/result queue pair, and the live worker count.
type Bullpen struct {
	ctx     *DispatcherContext
	client  *queueserver.Client
	queueID string
	runID   uuid.UUID
	logger  *slog.Logger

	OnStatus StatusHandler

	Stats RunStats

	mu        sync.Mutex
	running   int
	drainDone chan struct{}
	results   chan queuepb.Message
}

// New registers a fresh queue id against the bootstrapped context and
// returns a Bullpen ready to launch workers.
func New(ctx *DispatcherContext) (*Bullpen, error) {
	ctx.mu.Lock()
	bootstrapped := ctx.bootstrapped
	addr := ctx.serverAddr
	authkey := ctx.authkey
	ctx.mu.Unlock()
	if !bootstrapped {
		return nil, fmt.Errorf("bullpen: dispatcher context is not bootstrapped")
	}

	client, err := queueserver.Dial(addr, authkey)
	if err != nil {
		return nil, fmt.Errorf("bullpen: dialing queue server: %w", err)
	}

	queueID, err := registerUniqueQueueID(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("bullpen: registering queue id: %w", err)
	}

	bp := &Bullpen{
		ctx:       ctx,
		client:    client,
		queueID:   queueID,
		runID:     uuid.New(),
		logger:    ctx.Logger,
		results:   make(chan queuepb.Message, 64),
		drainDone: make(chan struct{}),
		Stats:     RunStats{Start: time.Now()},
	}
	return bp, nil
}

// registerUniqueQueueID rejection-samples queue ids and registers each
// candidate against the server, retrying on a collision (AlreadyExists)
// until one succeeds or attempts are exhausted.
func registerUniqueQueueID(client *queueserver.Client) (string, error) {
	const maxAttempts = 16
	for i := 0; i < maxAttempts; i++ {
		id, err := randomQueueID(queueIDLength)
		if err != nil {
			return "", err
		}
		if err := client.Register(context.Background(), id); err != nil {
			if status.Code(err) == codes.AlreadyExists {
				continue
			}
			return "", err
		}
		return id, nil
	}
	return "", fmt.Errorf("exhausted %d attempts generating a unique queue id", maxAttempts)
}

// RunID is this Bullpen instance's unique identifier, independent of the
// queue id, useful for correlating run reports and logs.
func (b *Bullpen) RunID() uuid.UUID { return b.runID }

// QueueID returns the queue id this instance registered.
func (b *Bullpen) QueueID() string { return b.queueID }

// Launch opens an authenticated remote shell on each host and streams it
// the bootstrap fragment that starts a worker process there. An ssh/launch
// failure for one host is logged and tolerated; the others proceed.
func (b *Bullpen) Launch(ctx context.Context, hosts []sshlaunch.HostConfig, entryPoint, serverHost string, serverPort int) {
	b.mu.Lock()
	b.Stats.HostCount = len(hosts)
	b.mu.Unlock()

	var g errgroup.Group
	for _, h := range hosts {
		h := h
		g.Go(func() error {
			err := sshlaunch.Launch(h, b.ctx.authkey, sshlaunch.BootstrapArgs{
				WorkerEntryPoint: entryPoint,
				ServerHost:       serverHost,
				ServerPort:       serverPort,
				QueueID:          b.queueID,
			})
			if err != nil {
				b.logger.Warn("worker launch failed, continuing with remaining hosts", "host", h.Addr, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	go b.drain()
}

// Feed enqueues one TASK per preterminal produced by next, in emission
// order, until next reports exhaustion. Tasks are consumed FIFO, but
// nothing guarantees results come back in the same order they were fed.
func (b *Bullpen) Feed(ctx context.Context, next func() (string, bool)) error {
	for {
		pt, ok := next()
		if !ok {
			break
		}
		if err := b.client.PutTask(ctx, b.queueID, queuepb.Message{Tag: "TASK", Preterminal: pt}); err != nil {
			return fmt.Errorf("bullpen: enqueueing task: %w", err)
		}
		b.mu.Lock()
		b.Stats.RecordPreterminal()
		b.mu.Unlock()
	}
	b.mu.Lock()
	b.Stats.MarkFullyQueued()
	b.mu.Unlock()
	return nil
}

// Attempts reports the total number of guesses hashed across all RESULTs
// seen so far.
func (b *Bullpen) Attempts() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Stats.Attempts
}

// PreterminalsEmitted reports the total number of preterminals enqueued
// so far.
func (b *Bullpen) PreterminalsEmitted() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Stats.PreterminalCount
}

// HostCount reports how many hosts this run launched workers on.
func (b *Bullpen) HostCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Stats.HostCount
}

// drain consumes the result queue for the lifetime of this Bullpen
// instance. It tracks the running worker count by matching the STATUS
// conventions internal/worker posts (start / TERM), forwards every STATUS
// to OnStatus, and forwards each RESULT onto the results channel for
// GetResult to pick up. That channel buffers 64 RESULTs; a RESULT that
// arrives while it is full is dropped with a warning, though its attempts
// and solution are still folded into Stats.
func (b *Bullpen) drain() {
	defer close(b.drainDone)
	for {
		msg, err := b.client.GetResult(context.Background(), b.queueID)
		if err != nil {
			return
		}
		switch msg.Tag {
		case "STATUS":
			b.adjustRunningCount(msg.StatusText)
			if b.OnStatus != nil {
				b.OnStatus(msg.StatusText)
			}
		case "RESULT":
			b.mu.Lock()
			b.Stats.RecordResult(msg.Attempts, msg.Solution, msg.HasSolution)
			b.mu.Unlock()
			select {
			case b.results <- msg:
			default:
				b.logger.Warn("result channel full, dropping RESULT", "queue_id", b.queueID)
			}
		}
	}
}

func (b *Bullpen) adjustRunningCount(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case strings.HasSuffix(text, "worker started."):
		b.running++
	case strings.HasSuffix(text, "TERM"):
		if b.running > 0 {
			b.running--
		}
	}
}

// RunningWorkers reports the current live worker count, tracked from
// STATUS start/TERM traffic.
func (b *Bullpen) RunningWorkers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// GetResult blocks until the next RESULT is available or ctx is done;
// STATUS messages pass through transparently to OnStatus and never
// surface here.
func (b *Bullpen) GetResult(ctx context.Context) (queuepb.Message, error) {
	select {
	case msg := <-b.results:
		return msg, nil
	case <-ctx.Done():
		return queuepb.Message{}, ctx.Err()
	}
}

// KillWorkers enqueues one TERM per host. Sending more TERMs than live
// workers is safe; sending fewer risks leaking a worker that never exits.
func (b *Bullpen) KillWorkers(ctx context.Context) error {
	b.mu.Lock()
	hostCount := b.Stats.HostCount
	b.mu.Unlock()
	for i := 0; i < hostCount; i++ {
		if err := b.client.PutTask(ctx, b.queueID, queuepb.Message{Tag: "TERM"}); err != nil {
			return fmt.Errorf("bullpen: enqueueing TERM: %w", err)
		}
	}
	return nil
}

// Join polls until the running worker count reaches zero or timeout
// elapses, then returns. A worker that never posted its startup STATUS is
// invisible to this bookkeeping, so callers should choose timeout with
// that in mind.
func (b *Bullpen) Join(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if b.RunningWorkers() == 0 {
			b.Stats.MarkExhausted()
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("bullpen: join timed out after %s with %d workers still running", timeout, b.RunningWorkers())
}

// Close releases this instance's queue client connection. It does not
// stop the shared queue server; only DispatcherContext.Shutdown may do
// that.
func (b *Bullpen) Close() error {
	return b.client.Close()
}
