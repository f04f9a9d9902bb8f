// Package grpcserver exposes session verification to other services over gRPC.
package grpcserver

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"milorg-admin/auth"
	"milorg-admin/interceptors"
	"milorg-admin/permissions"
	"milorg-admin/registry"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

type ServerConfig struct {
	Verifier auth.Verifier
	Resolver *permissions.Resolver
	// Registry is optional; RegistryService is only served when it is set.
	Registry registry.ServiceRegistry
	Logger   *zap.Logger
}

// NewServer builds a gRPC server with logging and bearer-token interceptors,
// SessionService and the standard health service.
func NewServer(cfg ServerConfig, opts ...grpc.ServerOption) *grpc.Server {
	logger := cfg.Logger.Named("grpc")
	opts = append(opts, grpc.ChainUnaryInterceptor(
		interceptors.ZapLoggingInterceptor(logger),
		interceptors.AuthInterceptor(cfg.Verifier, append([]string{healthCheckMethod}, PublicMethods...)...),
	))
	s := grpc.NewServer(opts...)

	RegisterSessionServer(s, NewSessionServer(cfg.Verifier, cfg.Resolver, logger))
	if cfg.Registry != nil {
		RegisterRegistryServer(s, NewRegistryServer(cfg.Registry))
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(SessionServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s
}
