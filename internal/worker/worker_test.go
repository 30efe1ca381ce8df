package worker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fiddeb/cracken-go/internal/queuepb"
	"github.com/fiddeb/cracken-go/internal/queueserver"
	"github.com/fiddeb/cracken-go/pkg/pcfg"
)

func startTestServer(t *testing.T, authkey string) (addr string, cleanup func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := queueserver.New(authkey, nil)
	go func() {
		_ = srv.ServeOn(lis)
	}()
	return lis.Addr().String(), func() { srv.Stop() }
}

func TestWorkerCracksAndReportsResult(t *testing.T) {
	addr, cleanup := startTestServer(t, "s3cr3t")
	defer cleanup()

	dispatcher, err := queueserver.Dial(addr, "s3cr3t")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer dispatcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := dispatcher.Register(ctx, "q1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	glossary := pcfg.Glossary{1: {"a", "b"}}
	mangler, err := pcfg.NewManglingEngine()
	if err != nil {
		t.Fatalf("NewManglingEngine: %v", err)
	}
	check := func(candidate string) bool { return candidate == "b" }

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(context.Background(), Config{
			ServerAddr: addr,
			AuthKey:    "s3cr3t",
			QueueID:    "q1",
			Glossary:   glossary,
			Mangler:    mangler,
			Check:      check,
		})
	}()

	// drain the worker-started STATUS
	if msg, err := dispatcher.GetResult(ctx, "q1"); err != nil {
		t.Fatalf("GetResult (startup): %v", err)
	} else if msg.Tag != "STATUS" {
		t.Fatalf("expected startup STATUS, got %+v", msg)
	}

	if err := dispatcher.PutTask(ctx, "q1", queuepb.Message{Tag: "TASK", Preterminal: "|L1|"}); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	result, err := dispatcher.GetResult(ctx, "q1")
	if err != nil {
		t.Fatalf("GetResult (result): %v", err)
	}
	if !result.HasSolution || result.Solution != "b" {
		t.Errorf("got %+v, want solution b", result)
	}

	if err := dispatcher.PutTask(ctx, "q1", queuepb.Message{Tag: "TERM"}); err != nil {
		t.Fatalf("PutTask (TERM): %v", err)
	}

	termStatus, err := dispatcher.GetResult(ctx, "q1")
	if err != nil {
		t.Fatalf("GetResult (TERM status): %v", err)
	}
	if termStatus.Tag != "STATUS" {
		t.Errorf("expected TERM STATUS, got %+v", termStatus)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after TERM")
	}
}
