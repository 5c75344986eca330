package grpc

import (
	"net"

	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
	"go.uber.org/zap"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check service name reported alongside the
// overall ("") status.
const ServiceName = "openai.v1.ChatCompletions"

// Server wraps a gRPC server exposing the standard health service, so
// orchestrators can probe the bridge with grpc_health_probe.
type Server struct {
	addr       string
	grpcServer *ggrpc.Server
	health     *health.Server
}

// New creates a new gRPC health server at the given address.
// Example addr: ":50051".
func New(addr string) *Server {
	s := &Server{
		addr:       addr,
		grpcServer: ggrpc.NewServer(),
		health:     health.NewServer(),
	}

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)

	return s
}

// Run starts listening on the configured address and serves the gRPC server.
// This call is blocking until the server stops or returns an error.
func (s *Server) Run() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		logger.Log.Error("failed to listen for gRPC server",
			zap.String("addr", s.addr),
			zap.Error(err),
		)
		return err
	}
	return s.Serve(lis)
}

// Serve marks the bridge as serving and serves on lis until stopped.
func (s *Server) Serve(lis net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	logger.Log.Info("starting gRPC health server",
		zap.String("addr", lis.Addr().String()),
	)

	if err := s.grpcServer.Serve(lis); err != nil {
		logger.Log.Error("gRPC server stopped with error", zap.Error(err))
		return err
	}

	logger.Log.Info("gRPC server stopped gracefully")
	return nil
}

// GracefulStop reports NOT_SERVING to watchers and then gracefully stops
// the underlying gRPC server.
func (s *Server) GracefulStop() {
	logger.Log.Info("gracefully stopping gRPC server",
		zap.String("addr", s.addr),
	)
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
