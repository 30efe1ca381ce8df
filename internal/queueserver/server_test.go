package queueserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fiddeb/cracken-go/internal/queuepb"
	"google.golang.org/grpc"
)

// testServer bundles a running Server with its listener address and a
// cleanup func.
type testServer struct {
	addr    string
	authkey string
	cleanup func()
}

func startTestServer(t *testing.T, authkey string) *testServer {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := New(authkey, nil)
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(srv.authInterceptor))
	queuepb.RegisterQueueServiceServer(grpcSrv, srv)

	go grpcSrv.Serve(lis)

	return &testServer{
		addr:    lis.Addr().String(),
		authkey: authkey,
		cleanup: grpcSrv.Stop,
	}
}

func (ts *testServer) dial(t *testing.T, authkey string) *Client {
	t.Helper()
	client, err := Dial(ts.addr, authkey)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return client
}

func TestRegisterPutGetRoundTrip(t *testing.T) {
	ts := startTestServer(t, "s3cr3t")
	defer ts.cleanup()
	client := ts.dial(t, "s3cr3t")
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Register(ctx, "q1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := client.PutTask(ctx, "q1", queuepb.Message{Tag: "TASK", Preterminal: "|L3|"}); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	msg, err := client.GetTask(ctx, "q1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if msg.Tag != "TASK" || msg.Preterminal != "|L3|" {
		t.Errorf("got %+v", msg)
	}
}

func TestDoubleRegisterFails(t *testing.T) {
	ts := startTestServer(t, "s3cr3t")
	defer ts.cleanup()
	client := ts.dial(t, "s3cr3t")
	defer client.Close()

	ctx := context.Background()
	if err := client.Register(ctx, "dup"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := client.Register(ctx, "dup"); err == nil {
		t.Fatal("expected second Register under the same id to fail")
	}
}

func TestWrongSharedSecretRejected(t *testing.T) {
	ts := startTestServer(t, "correct-secret")
	defer ts.cleanup()
	client := ts.dial(t, "wrong-secret")
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Register(ctx, "whatever"); err == nil {
		t.Fatal("expected a mismatched shared secret to be refused")
	}
}

func TestGetBlocksUntilPut(t *testing.T) {
	ts := startTestServer(t, "s3cr3t")
	defer ts.cleanup()
	client := ts.dial(t, "s3cr3t")
	defer client.Close()

	ctx := context.Background()
	if err := client.Register(ctx, "blocking"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	done := make(chan queuepb.Message, 1)
	errCh := make(chan error, 1)
	go func() {
		msg, err := client.GetResult(context.Background(), "blocking")
		if err != nil {
			errCh <- err
			return
		}
		done <- msg
	}()

	time.Sleep(50 * time.Millisecond)
	if err := client.PutResult(ctx, "blocking", queuepb.Message{Tag: "STATUS", StatusText: "hi"}); err != nil {
		t.Fatalf("PutResult: %v", err)
	}

	select {
	case msg := <-done:
		if msg.StatusText != "hi" {
			t.Errorf("got %+v", msg)
		}
	case err := <-errCh:
		t.Fatalf("GetResult: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Get did not unblock")
	}
}
