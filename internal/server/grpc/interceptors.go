package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/universal-api/internal/logging"
)

// LoggingUnary logs one entry per call and puts a request-scoped logger into the context.
// Successful calls log at debug so frequent health probes stay quiet; failures log at warn.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}
		reqLog := log.With(zap.String("method", info.FullMethod), zap.String("peer", remote))
		if id := requestID(ctx); id != "" {
			reqLog = reqLog.With(zap.String("trace_id", id))
		}

		resp, err := next(logging.WithLogger(ctx, reqLog), req)
		code := status.Code(err)

		lvl := zapcore.DebugLevel
		if code != codes.OK {
			lvl = zapcore.WarnLevel
		}
		// metadata only, never payloads
		reqLog.Log(lvl, "grpc",
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
		)
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get("x-request-id"); len(v) > 0 {
		return v[0]
	}
	return ""
}
