// Package queuepb defines the wire messages and the hand-registered gRPC
// service descriptor for the queue server's RPC surface. Messages here
// are plain Go structs carried over gRPC with a custom gob codec (see
// codec.go) rather than protobuf-generated types.
package queuepb

// QueueKind distinguishes the task queue from the result queue of a
// given queue id, the pair the dispatcher registers for every run.
type QueueKind string

const (
	KindTask   QueueKind = "task"
	KindResult QueueKind = "result"
)

// Message is the unified wire envelope for both queues. Tag selects
// which kind of record this instance represents: "TASK" or "TERM" on the
// task queue, "STATUS" or "RESULT" on the result queue.
type Message struct {
	Tag string

	// TASK
	Preterminal string

	// STATUS
	StatusText string

	// RESULT
	Attempts    int64
	Solution    string
	HasSolution bool
}

// RegisterRequest asks the server to create a fresh task/result queue pair
// for QueueID. A second registration under the same id is an error.
type RegisterRequest struct {
	QueueID string
}

// RegisterResponse is empty; Register either succeeds or returns an error.
type RegisterResponse struct{}

// PutRequest enqueues Msg onto the named queue. Put is non-blocking on the
// server.
type PutRequest struct {
	QueueID string
	Kind    QueueKind
	Msg     Message
}

// Ack acknowledges a Put.
type Ack struct {
	Ok bool
}

// GetRequest asks to dequeue the next message from the named queue. Get
// blocks on the server until a message is available or the call's context
// is cancelled.
type GetRequest struct {
	QueueID string
	Kind    QueueKind
}

// GetResponse carries the dequeued message.
type GetResponse struct {
	Msg Message
}
