package interceptors

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

const (
	requestIDKey = "x-request-id"
	grpcCodeKey  = "grpc.code"
)

// callLogger writes finished calls to zap. Calls rejected for a missing or
// bad session are tagged so they can be alerted on.
type callLogger struct {
	base *zap.Logger
}

// NewCallLogger returns the logging.Logger the gRPC server reports calls to.
func NewCallLogger(l *zap.Logger) logging.Logger {
	return callLogger{base: l.With(zap.String("transport", "grpc"))}
}

func (c callLogger) Log(_ context.Context, lvl logging.Level, msg string, fields ...any) {
	ce := c.base.Check(zapLevel(lvl), msg)
	if ce == nil {
		return
	}
	out := make([]zap.Field, 0, len(fields)/2+1)
	var code string
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if key == grpcCodeKey {
			code, _ = fields[i+1].(string)
		}
		out = append(out, zap.Any(key, fields[i+1]))
	}
	if code == codes.Unauthenticated.String() || code == codes.PermissionDenied.String() {
		out = append(out, zap.Bool("auth_failure", true))
	}
	ce.Write(out...)
}

func zapLevel(lvl logging.Level) zapcore.Level {
	switch lvl {
	case logging.LevelDebug:
		return zapcore.DebugLevel
	case logging.LevelInfo:
		return zapcore.InfoLevel
	case logging.LevelWarn:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}

// CodeToLevel logs rejected sessions at Warn next to denied permissions.
func CodeToLevel(code codes.Code) logging.Level {
	if code == codes.Unauthenticated {
		return logging.LevelWarn
	}
	return logging.DefaultServerCodeToLevel(code)
}

// requestIDFields picks up the caller's x-request-id so gRPC and HTTP log
// lines can be correlated.
func requestIDFields(ctx context.Context) logging.Fields {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	if ids := md.Get(requestIDKey); len(ids) > 0 && ids[0] != "" {
		return logging.Fields{"request_id", ids[0]}
	}
	return nil
}

// ZapLoggingInterceptor logs the end of every unary call.
func ZapLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return logging.UnaryServerInterceptor(NewCallLogger(logger),
		logging.WithLogOnEvents(logging.FinishCall),
		logging.WithFieldsFromContext(requestIDFields),
		logging.WithLevels(CodeToLevel),
	)
}
