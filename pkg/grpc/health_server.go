package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/example/jewelshop/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service key reported for the storefront.
const ServiceName = "jewelshop.storefront"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer exposes grpc.health.v1 for the process. Status follows the
// result of periodically pinging the order store.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checker  Pinger
	interval time.Duration
	port     int
	logger   *zap.Logger
}

func NewHealthServer(cfg config.GRPCConfig, checker Pinger, logger *zap.Logger) *HealthServer {
	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		server:   srv,
		health:   hs,
		checker:  checker,
		interval: interval,
		port:     cfg.Port,
		logger:   logger.Named("grpc-health"),
	}
}

func (s *HealthServer) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("gRPC health server started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Watch checks the store immediately and then every interval until ctx ends.
func (s *HealthServer) Watch(ctx context.Context) {
	s.check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *HealthServer) check(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, s.interval/2+time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.Ping(cctx); err != nil {
		s.logger.Warn("Order store ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop marks the process as shutting down and stops serving.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
