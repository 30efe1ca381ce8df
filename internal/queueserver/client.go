package queueserver

import (
	"context"
	"fmt"
	"time"

	"github.com/fiddeb/cracken-go/internal/queuepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client is a thin, authenticated wrapper around a QueueServiceClient: it
// attaches the shared secret to every call's metadata and exposes the
// queue operations in terms of a single queue id, the shape both the
// dispatcher and the worker want.
type Client struct {
	conn    *grpc.ClientConn
	rpc     queuepb.QueueServiceClient
	authkey string
}

// Dial connects to the queue server at addr, authenticating with authkey.
// The connection must be established within defaultDialTimeout or Dial
// gives up and returns an error.
func Dial(addr, authkey string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(queuepb.Name)),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("queue client: dial %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		rpc:     queuepb.NewQueueServiceClient(conn),
		authkey: authkey,
	}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ctx(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, authMetadataKey, c.authkey)
}

// Register creates queueID's task/result queue pair on the server.
func (c *Client) Register(ctx context.Context, queueID string) error {
	_, err := c.rpc.Register(c.ctx(ctx), &queuepb.RegisterRequest{QueueID: queueID})
	return err
}

// PutTask enqueues msg onto queueID's task queue.
func (c *Client) PutTask(ctx context.Context, queueID string, msg queuepb.Message) error {
	_, err := c.rpc.Put(c.ctx(ctx), &queuepb.PutRequest{QueueID: queueID, Kind: queuepb.KindTask, Msg: msg})
	return err
}

// PutResult enqueues msg onto queueID's result queue.
func (c *Client) PutResult(ctx context.Context, queueID string, msg queuepb.Message) error {
	_, err := c.rpc.Put(c.ctx(ctx), &queuepb.PutRequest{QueueID: queueID, Kind: queuepb.KindResult, Msg: msg})
	return err
}

// GetTask blocks until the next task-queue message is available.
func (c *Client) GetTask(ctx context.Context, queueID string) (queuepb.Message, error) {
	resp, err := c.rpc.Get(c.ctx(ctx), &queuepb.GetRequest{QueueID: queueID, Kind: queuepb.KindTask})
	if err != nil {
		return queuepb.Message{}, err
	}
	return resp.Msg, nil
}

// GetResult blocks until the next result-queue message is available.
func (c *Client) GetResult(ctx context.Context, queueID string) (queuepb.Message, error) {
	resp, err := c.rpc.Get(c.ctx(ctx), &queuepb.GetRequest{QueueID: queueID, Kind: queuepb.KindResult})
	if err != nil {
		return queuepb.Message{}, err
	}
	return resp.Msg, nil
}

// defaultDialTimeout bounds how long Dial waits to establish its initial
// connection to the queue server before giving up.
const defaultDialTimeout = 10 * time.Second
