package bullpen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fiddeb/cracken-go/internal/worker"
	"github.com/fiddeb/cracken-go/pkg/pcfg"
)

func TestBootstrapTwiceFails(t *testing.T) {
	dc := NewDispatcherContext(nil)
	if err := dc.Bootstrap("127.0.0.1:0"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer dc.Shutdown()

	if err := dc.Bootstrap("127.0.0.1:0"); err == nil {
		t.Fatal("expected second Bootstrap to fail")
	}
}

func TestBullpenFeedDrainShutdown(t *testing.T) {
	dc := NewDispatcherContext(nil)
	if err := dc.Bootstrap("127.0.0.1:0"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer dc.Shutdown()

	bp, err := New(dc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer bp.Close()

	var statuses []string
	var mu sync.Mutex
	bp.OnStatus = func(text string) {
		mu.Lock()
		statuses = append(statuses, text)
		mu.Unlock()
	}

	// Simulate one host having already been launched: run a real worker
	// loop in-process against the same queue id, rather than going through
	// sshlaunch, so drain has STATUS/RESULT traffic to process.
	bp.mu.Lock()
	bp.Stats.HostCount = 1
	bp.mu.Unlock()
	go bp.drain()

	glossary := pcfg.Glossary{1: {"a", "b"}}
	mangler, err := pcfg.NewManglingEngine()
	if err != nil {
		t.Fatalf("NewManglingEngine: %v", err)
	}
	check := func(candidate string) bool { return candidate == "b" }

	workerErrCh := make(chan error, 1)
	go func() {
		workerErrCh <- worker.Run(context.Background(), worker.Config{
			ServerAddr: dc.ServerAddr(),
			AuthKey:    dc.authkey,
			QueueID:    bp.QueueID(),
			Glossary:   glossary,
			Mangler:    mangler,
			Check:      check,
		})
	}()

	ctx := context.Background()
	preterminals := []string{"|L1|"}
	i := 0
	if err := bp.Feed(ctx, func() (string, bool) {
		if i >= len(preterminals) {
			return "", false
		}
		pt := preterminals[i]
		i++
		return pt, true
	}); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	resultCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := bp.GetResult(resultCtx)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if !result.HasSolution || result.Solution != "b" {
		t.Errorf("got %+v, want solution b", result)
	}

	if err := bp.KillWorkers(ctx); err != nil {
		t.Fatalf("KillWorkers: %v", err)
	}

	if err := bp.Join(2 * time.Second); err != nil {
		t.Fatalf("Join: %v", err)
	}

	select {
	case err := <-workerErrCh:
		if err != nil {
			t.Errorf("worker.Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after TERM")
	}

	if bp.Stats.PreterminalCount != 1 {
		t.Errorf("PreterminalCount = %d, want 1", bp.Stats.PreterminalCount)
	}
	if !bp.Stats.Found || bp.Stats.Solution != "b" {
		t.Errorf("Stats.Found/Solution = %v/%q", bp.Stats.Found, bp.Stats.Solution)
	}

	mu.Lock()
	gotStatuses := len(statuses)
	mu.Unlock()
	if gotStatuses < 2 {
		t.Errorf("expected at least 2 STATUS messages (start + TERM), got %d", gotStatuses)
	}
}
