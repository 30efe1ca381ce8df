package queuepb

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// gobCodec implements encoding.Codec for plain Go structs, registered
// under the content-subtype "gob". Using a custom codec lets the queue
// service carry ordinary Go types end to end instead of requiring a
// protoc-generated message set, while still running over the real gRPC
// transport and unary auth interceptor.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return "gob" }

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// Name is the content-subtype clients must select (via
// grpc.CallContentSubtype or grpc.WithDefaultCallOptions) to use this
// codec.
const Name = "gob"
