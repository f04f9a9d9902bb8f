package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"milorg-admin/registry"
)

const RegistryServiceName = "milorg.registry.v1.RegistryService"

const MethodDiscover = "/" + RegistryServiceName + "/Discover"

// RegistryServer resolves peer services for authenticated callers.
type RegistryServer interface {
	// Discover returns the healthy "host:port" addresses of a service.
	Discover(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

type registryServer struct {
	registry registry.ServiceRegistry
}

func NewRegistryServer(r registry.ServiceRegistry) RegistryServer {
	return &registryServer{registry: r}
}

func (s *registryServer) Discover(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "service name required")
	}
	addrs, err := s.registry.Discover(ctx, req.GetValue(), "")
	if errors.Is(err, registry.ErrNoInstances) {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "discover %q: %v", req.GetValue(), err)
	}

	values := make([]*structpb.Value, len(addrs))
	for i, a := range addrs {
		values[i] = structpb.NewStringValue(a)
	}
	return &structpb.ListValue{Values: values}, nil
}

func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&RegistryServiceDesc, srv)
}

var RegistryServiceDesc = grpc.ServiceDesc{
	ServiceName: RegistryServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Discover", Handler: discoverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "milorg/registry/v1/registry.proto",
}

func discoverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Discover(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodDiscover}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).Discover(ctx, req.(*wrapperspb.StringValue))
	})
}
