package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/interceptors"
	"milorg-admin/permissions"
)

const SessionServiceName = "milorg.session.v1.SessionService"

// Full method names, as seen by interceptors.
const (
	MethodVerifyToken     = "/" + SessionServiceName + "/VerifyToken"
	MethodCheckPermission = "/" + SessionServiceName + "/CheckPermission"
	MethodWhoAmI          = "/" + SessionServiceName + "/WhoAmI"
)

// PublicMethods may be called without bearer metadata; they carry the token
// they inspect in the request itself.
var PublicMethods = []string{MethodVerifyToken, MethodCheckPermission}

// SessionServer lets other services validate admin sessions.
type SessionServer interface {
	// VerifyToken resolves a session token to the caller's sanitized identity.
	VerifyToken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// CheckPermission takes {"token": string, "permissions": [slug...]} and
	// reports whether the token's holder has any of the permissions. An empty
	// token falls back to the call's bearer metadata.
	CheckPermission(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	// WhoAmI returns the identity behind the call's bearer metadata.
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type sessionServer struct {
	verifier auth.Verifier
	resolver *permissions.Resolver
	logger   *zap.Logger
}

var _ SessionServer = (*sessionServer)(nil)

func NewSessionServer(verifier auth.Verifier, resolver *permissions.Resolver, logger *zap.Logger) SessionServer {
	return &sessionServer{verifier: verifier, resolver: resolver, logger: logger}
}

func (s *sessionServer) VerifyToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, interceptors.Status(apperr.ErrTokenMissing)
	}
	identity, err := s.verifier.Verify(ctx, req.GetValue())
	if err != nil {
		return nil, interceptors.Status(err)
	}
	return s.identityStruct(identity)
}

func (s *sessionServer) CheckPermission(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	fields := req.GetFields()

	var raw []string
	if list := fields["permissions"].GetListValue(); list != nil {
		for _, v := range list.GetValues() {
			str, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return nil, interceptors.Status(apperr.ErrInvalidInput.WithField("permissions").WithMessage("permissions must be strings"))
			}
			raw = append(raw, str.StringValue)
		}
	}
	required, err := permissions.ParseAll(raw)
	if err != nil {
		return nil, interceptors.Status(apperr.ErrInvalidInput.WithField("permissions").WithMessage(err.Error()))
	}

	var identity *auth.Identity
	if token := fields["token"].GetStringValue(); token != "" {
		identity, err = s.verifier.Verify(ctx, token)
		if err != nil {
			return nil, interceptors.Status(err)
		}
	} else if fromCtx, ok := interceptors.IdentityFromContext(ctx); ok {
		identity = fromCtx
	} else {
		return nil, interceptors.Status(apperr.ErrTokenMissing)
	}

	allowed := s.resolver.HasPermission(identity.Slugs(), required)
	if !allowed {
		s.logger.Debug("permission check denied", zap.Uint("user_id", identity.ID), zap.Strings("required", raw))
	}
	return wrapperspb.Bool(allowed), nil
}

func (s *sessionServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	identity, ok := interceptors.IdentityFromContext(ctx)
	if !ok {
		return nil, interceptors.Status(apperr.ErrTokenMissing)
	}
	return s.identityStruct(identity)
}

// identityStruct goes through the identity's JSON form so gRPC callers see
// the same field names as HTTP clients.
func (s *sessionServer) identityStruct(identity *auth.Identity) (*structpb.Struct, error) {
	raw, err := json.Marshal(identity)
	if err != nil {
		return nil, interceptors.Status(apperr.System("encode identity", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, interceptors.Status(apperr.System("encode identity", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, interceptors.Status(apperr.System(fmt.Sprintf("encode identity %d", identity.ID), err))
	}
	return out, nil
}

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyToken", Handler: verifyTokenHandler},
		{MethodName: "CheckPermission", Handler: checkPermissionHandler},
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "milorg/session/v1/session.proto",
}

func verifyTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).VerifyToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodVerifyToken}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).VerifyToken(ctx, req.(*wrapperspb.StringValue))
	})
}

func checkPermissionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).CheckPermission(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodCheckPermission}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).CheckPermission(ctx, req.(*structpb.Struct))
	})
}

func whoAmIHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodWhoAmI}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).WhoAmI(ctx, req.(*emptypb.Empty))
	})
}

// SessionClient calls SessionService over an existing connection.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

func (c *SessionClient) VerifyToken(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodVerifyToken, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SessionClient) CheckPermission(ctx context.Context, token string, slugs []string, opts ...grpc.CallOption) (bool, error) {
	list := make([]any, len(slugs))
	for i, s := range slugs {
		list[i] = s
	}
	in, err := structpb.NewStruct(map[string]any{"token": token, "permissions": list})
	if err != nil {
		return false, err
	}
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, MethodCheckPermission, in, out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *SessionClient) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodWhoAmI, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
