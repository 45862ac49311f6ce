// Package grpcserver exposes the gRPC health service of the Universal API.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/universal-api/internal/metrics"
	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/service"
)

// APIService is reported next to the overall ("") status.
const APIService = "universal.v1.API"

// HealthServer serves grpc.health.v1.Health backed by periodic probes.
type HealthServer struct {
	srv      *grpc.Server
	health   *health.Server
	checker  service.HealthService
	interval time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewHealthServer constructs the server; statuses start as NOT_SERVING until the first probe.
func NewHealthServer(checker service.HealthService, interval time.Duration, log *zap.Logger, m *metrics.Metrics, opts ...grpc.ServerOption) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		LoggingUnary(log),
	))
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &HealthServer{srv: srv, health: hs, checker: checker, interval: interval, log: log, metrics: m}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// EnableReflection registers server reflection (dev only).
func (s *HealthServer) EnableReflection() { reflection.Register(s.srv) }

// Serve accepts connections on lis until Stop.
func (s *HealthServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Probe runs one health check and publishes the result.
func (s *HealthServer) Probe(ctx context.Context) model.HealthCheck {
	hc := s.checker.Check(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if hc.Status == model.HealthUnhealthy {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.log.Warn("health probe failed", zap.Any("details", hc.Details))
	}
	s.set(st)
	if s.metrics != nil {
		s.metrics.SetHealthy(st == healthpb.HealthCheckResponse_SERVING)
	}
	return hc
}

// Run probes immediately and then every interval until ctx is done.
func (s *HealthServer) Run(ctx context.Context) {
	s.Probe(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Probe(ctx)
		}
	}
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *HealthServer) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(APIService, st)
}
