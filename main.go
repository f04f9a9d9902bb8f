package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"milorg-admin/auth"
	"milorg-admin/config"
	"milorg-admin/controllers"
	"milorg-admin/database"
	grpcserver "milorg-admin/grpc_server"
	"milorg-admin/i18n"
	"milorg-admin/metrics"
	"milorg-admin/permissions"
	"milorg-admin/ratelimit"
	"milorg-admin/registry"
	"milorg-admin/services"
)

func newLogger(level string) (*zap.Logger, error) {
	switch level {
	case "debug":
		return zap.NewDevelopment()
	default:
		cfg := zap.NewProductionConfig()
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			cfg.Level = lvl
		}
		return cfg.Build()
	}
}

func loginLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func()) {
	rate := cfg.LoginRate
	if cfg.Redis.Addr == "" {
		mem := ratelimit.NewMemory(rate.PerSecond, rate.Burst)
		go mem.Run(ctx, time.Minute)
		logger.Info("Using in-process login limiter")
		return mem, func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := ratelimit.Ping(ctx, client); err != nil {
		logger.Fatal("Redis unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	logger.Info("Using redis login limiter", zap.String("addr", cfg.Redis.Addr))
	limiter := ratelimit.NewRedis(client, rate.Burst, ratelimit.WindowFor(rate.PerSecond, rate.Burst))
	return limiter, func() { _ = client.Close() }
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL, cfg.LogLevel == "debug")
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	if cfg.Seed {
		if err := database.Seed(db, logger.Named("seed")); err != nil {
			logger.Fatal("Failed to seed database", zap.Error(err))
		}
	}

	tokens, err := auth.NewTokens([]byte(cfg.JwtSecret), cfg.TokenTTL, cfg.ServiceName)
	if err != nil {
		logger.Fatal("Invalid token settings", zap.Error(err))
	}
	resolver, err := permissions.NewResolver(cfg.GlobalSlug(), permissions.DefaultGlobalSet)
	if err != nil {
		logger.Fatal("Invalid permission settings", zap.Error(err))
	}

	clientIPs, err := ratelimit.NewIPResolver(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	limiter, closeLimiter := loginLimiter(ctx, cfg, logger)
	defer closeLimiter()

	set := services.NewSet(db, tokens, resolver, logger)
	m := metrics.New("milorg")
	container := controllers.NewContainer(controllers.RouterConfig{
		DB:           db,
		Services:     set,
		Cookies:      auth.NewCookieStore(cfg.IsProduction(), cfg.CookieMaxAge),
		Resolver:     resolver,
		Translator:   i18n.New(cfg.Language),
		Logger:       logger,
		Metrics:      m,
		LoginLimiter: limiter,
		LoginBurst:   cfg.LoginRate.Burst,
		ClientIPs:    clientIPs,
	})

	var reg registry.ServiceRegistry
	if cfg.Consul.Enabled {
		reg, err = registry.NewConsulRegistry(cfg.Consul.Address, logger)
		if err != nil {
			logger.Fatal("Failed to connect consul", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           container,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	grpcServer := grpcserver.NewServer(grpcserver.ServerConfig{
		Verifier: controllers.ObservedVerifier(set.Auth, m),
		Resolver: resolver,
		Registry: reg,
		Logger:   logger,
	})
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		logger.Fatal("Failed to listen for gRPC", zap.Int("port", cfg.GRPCPort), zap.Error(err))
	}
	go func() {
		logger.Info("Starting gRPC server", zap.Int("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	var instanceID string
	if reg != nil {
		host := cfg.Consul.AdvertiseHost
		instanceID = registry.InstanceID(cfg.ServiceName, host, cfg.HTTPPort)
		err := reg.Register(registry.Instance{
			ID:      instanceID,
			Name:    cfg.ServiceName,
			Address: host,
			Port:    cfg.HTTPPort,
			Tags:    []string{"http", "grpc"},
			Meta:    map[string]string{"grpc_port": strconv.Itoa(cfg.GRPCPort)},
			Checks: consulapi.AgentServiceChecks{
				registry.HTTPCheck(instanceID, host, cfg.HTTPPort, "/healthz"),
				registry.GRPCCheck(instanceID, host, cfg.GRPCPort),
			},
		})
		if err != nil {
			logger.Error("Failed to register with consul", zap.Error(err))
			instanceID = ""
		}
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	if instanceID != "" {
		if err := reg.Deregister(instanceID); err != nil {
			logger.Warn("Failed to deregister from consul", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server exiting")
}
