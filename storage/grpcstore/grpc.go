package grpcstore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RegisterStoreServer is the server API for the RegisterStore gRPC service.
//
// We intentionally use protobuf well-known wrapper types so this package does
// not require a protoc/codegen toolchain. Put and Update carry a framed
// record (see storage.EncodeRecord); Update prefixes the expected hash.
//
// Proto definition: registerstore.proto.
type RegisterStoreServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Update(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// UnimplementedRegisterStoreServer can be embedded to have forward compatible implementations.
type UnimplementedRegisterStoreServer struct{}

func (UnimplementedRegisterStoreServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedRegisterStoreServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedRegisterStoreServer) Update(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Update not implemented")
}
func (UnimplementedRegisterStoreServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}

// RegisterRegisterStoreServer registers the RegisterStore service on a gRPC server.
func RegisterRegisterStoreServer(s grpc.ServiceRegistrar, srv RegisterStoreServer) {
	s.RegisterService(&RegisterStore_ServiceDesc, srv)
}

// RegisterStoreClient is the client API for the RegisterStore gRPC service.
type RegisterStoreClient interface {
	Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Update(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type registerStoreClient struct{ cc grpc.ClientConnInterface }

func NewRegisterStoreClient(cc grpc.ClientConnInterface) RegisterStoreClient {
	return &registerStoreClient{cc: cc}
}

func (c *registerStoreClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/registra.storage.grpcstore.v1.RegisterStore/Put", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registerStoreClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/registra.storage.grpcstore.v1.RegisterStore/Get", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registerStoreClient) Update(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/registra.storage.grpcstore.v1.RegisterStore/Update", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registerStoreClient) Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	err := c.cc.Invoke(ctx, "/registra.storage.grpcstore.v1.RegisterStore/Has", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _RegisterStore_Put_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegisterStoreServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/registra.storage.grpcstore.v1.RegisterStore/Put"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegisterStoreServer).Put(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _RegisterStore_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegisterStoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/registra.storage.grpcstore.v1.RegisterStore/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegisterStoreServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _RegisterStore_Update_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegisterStoreServer).Update(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/registra.storage.grpcstore.v1.RegisterStore/Update"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegisterStoreServer).Update(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _RegisterStore_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegisterStoreServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/registra.storage.grpcstore.v1.RegisterStore/Has"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegisterStoreServer).Has(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterStore_ServiceDesc is the grpc.ServiceDesc for RegisterStore service.
var RegisterStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "registra.storage.grpcstore.v1.RegisterStore",
	HandlerType: (*RegisterStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: _RegisterStore_Put_Handler},
		{MethodName: "Get", Handler: _RegisterStore_Get_Handler},
		{MethodName: "Update", Handler: _RegisterStore_Update_Handler},
		{MethodName: "Has", Handler: _RegisterStore_Has_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registerstore.proto",
}
