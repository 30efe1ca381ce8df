// Package queueserver implements the authenticated queue server: an
// in-process registry of named task/result queue pairs exposed over
// gRPC, guarded by a shared-secret handshake on every call.
package queueserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/fiddeb/cracken-go/internal/queue"
	"github.com/fiddeb/cracken-go/internal/queuepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// authMetadataKey is the incoming-metadata key clients present their
// shared secret under, the gRPC analogue of multiprocessing.managers'
// authkey handshake.
const authMetadataKey = "authorization"

// queuePair is one dispatcher instance's task and result queues.
type queuePair struct {
	task   *queue.Queue[queuepb.Message]
	result *queue.Queue[queuepb.Message]
}

// Server is the authenticated queue server. One Server backs every
// Bullpen instance registered against it for the lifetime of a dispatcher
// process.
type Server struct {
	queuepb.UnimplementedQueueServiceServer

	authkey string
	logger  *slog.Logger

	mu     sync.Mutex
	queues map[string]*queuePair

	grpcServer *grpc.Server
	listener   net.Listener
}

// New constructs a Server authenticated by authkey. It does not yet listen
// on the network; call Start for that.
func New(authkey string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		authkey: authkey,
		logger:  logger,
		queues:  make(map[string]*queuePair),
	}
}

// Start binds addr and serves the queue service until the process exits or
// Stop is called. It blocks; callers typically invoke it in a goroutine.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("queue server: listen %s: %w", addr, err)
	}
	return s.ServeOn(lis)
}

// ServeOn serves the queue service on an already-bound listener, letting
// callers (notably tests) pick an ephemeral port before Serve starts
// blocking.
func (s *Server) ServeOn(lis net.Listener) error {
	s.listener = lis

	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.authInterceptor))
	queuepb.RegisterQueueServiceServer(s.grpcServer, s)

	s.logger.Info("queue server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Addr returns the address the server is bound to; valid only after Start
// has begun listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server, letting in-flight RPCs finish.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

// authInterceptor rejects any call whose metadata doesn't carry the
// server's shared secret.
func (s *Server) authInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing credentials")
	}
	got := md.Get(authMetadataKey)
	if len(got) != 1 || got[0] != s.authkey {
		return nil, status.Error(codes.Unauthenticated, "invalid shared secret")
	}
	return handler(ctx, req)
}

// Register creates a fresh task/result queue pair for queueID. A second
// registration under the same id is an error, matching the uniqueness the
// dispatcher's queue-id generator already guarantees.
func (s *Server) Register(ctx context.Context, req *queuepb.RegisterRequest) (*queuepb.RegisterResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.queues[req.QueueID]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "queue id %q already registered", req.QueueID)
	}
	s.queues[req.QueueID] = &queuePair{
		task:   queue.New[queuepb.Message](),
		result: queue.New[queuepb.Message](),
	}
	return &queuepb.RegisterResponse{}, nil
}

func (s *Server) pair(queueID string) (*queuePair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.queues[queueID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown queue id %q", queueID)
	}
	return p, nil
}

// Put enqueues req.Msg onto the named queue. Put is non-blocking.
func (s *Server) Put(ctx context.Context, req *queuepb.PutRequest) (*queuepb.Ack, error) {
	p, err := s.pair(req.QueueID)
	if err != nil {
		return nil, err
	}
	switch req.Kind {
	case queuepb.KindTask:
		p.task.Put(req.Msg)
	case queuepb.KindResult:
		p.result.Put(req.Msg)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown queue kind %q", req.Kind)
	}
	return &queuepb.Ack{Ok: true}, nil
}

// Get dequeues and returns the next message from the named queue, blocking
// until one is available or the call's context is cancelled.
func (s *Server) Get(ctx context.Context, req *queuepb.GetRequest) (*queuepb.GetResponse, error) {
	p, err := s.pair(req.QueueID)
	if err != nil {
		return nil, err
	}
	var q *queue.Queue[queuepb.Message]
	switch req.Kind {
	case queuepb.KindTask:
		q = p.task
	case queuepb.KindResult:
		q = p.result
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown queue kind %q", req.Kind)
	}
	msg, err := q.Get(ctx)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return &queuepb.GetResponse{Msg: msg}, nil
}
