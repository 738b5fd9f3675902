// Package grpc runs the gRPC endpoint of the service. It serves the standard
// grpc.health.v1 protocol so orchestrators can probe the process.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to health probes besides the overall "".
const ServiceName = "gophauth.Auth"

const healthCheckInterval = 15 * time.Second

// Pinger is a dependency whose reachability decides the health status.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GRPCServer struct {
	address string
	logger  logging.Logger
	health  *health.Server
	deps    map[string]Pinger
}

func NewGRPCServer(address string, l logging.Logger, deps map[string]Pinger) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		health:  health.NewServer(),
		deps:    deps,
	}
}

// Health exposes the health server so callers can change statuses.
func (s *GRPCServer) Health() *health.Server {
	return s.health
}

// CheckDependencies pings every dependency and marks the service SERVING
// only if all of them answer.
func (s *GRPCServer) CheckDependencies(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, d := range s.deps {
		if err := d.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "dependency unavailable", "dependency", name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.CheckDependencies(ctx)

	go func() {
		t := time.NewTicker(healthCheckInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.CheckDependencies(ctx)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
