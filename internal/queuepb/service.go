package queuepb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name registered with the
// server and dialed by clients, standing in for what protoc would
// otherwise derive from a .proto package/service declaration.
const ServiceName = "cracken.queuepb.QueueService"

// QueueServiceServer is the server-side contract for the named-FIFO
// queue service: register a queue pair, put a message onto one, and
// block-get the next message from one.
type QueueServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Put(context.Context, *PutRequest) (*Ack, error)
	Get(context.Context, *GetRequest) (*GetResponse, error)
}

// UnimplementedQueueServiceServer may be embedded by server implementations
// to get forward-compatible default method bodies.
type UnimplementedQueueServiceServer struct{}

func (UnimplementedQueueServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}

func (UnimplementedQueueServiceServer) Put(context.Context, *PutRequest) (*Ack, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}

func (UnimplementedQueueServiceServer) Get(context.Context, *GetRequest) (*GetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}

// RegisterQueueServiceServer registers srv with s, the way generated code
// would via protoc-gen-go-grpc.
func RegisterQueueServiceServer(s grpc.ServiceRegistrar, srv QueueServiceServer) {
	s.RegisterService(&queueServiceServiceDesc, srv)
}

func _QueueService_Register_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueueServiceServer).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Register"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueueServiceServer).Register(ctx, req.(*RegisterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _QueueService_Put_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueueServiceServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Put"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueueServiceServer).Put(ctx, req.(*PutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _QueueService_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueueServiceServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueueServiceServer).Get(ctx, req.(*GetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var queueServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueueServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: _QueueService_Register_Handler},
		{MethodName: "Put", Handler: _QueueService_Put_Handler},
		{MethodName: "Get", Handler: _QueueService_Get_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "queue.proto",
}

// QueueServiceClient is the client-side contract matching
// QueueServiceServer.
type QueueServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*Ack, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error)
}

type queueServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewQueueServiceClient wraps a gRPC client connection with the queue
// service's typed client methods.
func NewQueueServiceClient(cc grpc.ClientConnInterface) QueueServiceClient {
	return &queueServiceClient{cc: cc}
}

func (c *queueServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/Register", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *queueServiceClient) Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, ServiceName+"/Put", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *queueServiceClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	out := new(GetResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/Get", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
