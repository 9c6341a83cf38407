package httpapi

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"teamdir.org/internal/obs"
)

type readinessChecker interface {
	Check(ctx context.Context) error
}

// HealthServer exposes readiness over the standard gRPC health protocol so
// orchestrators can probe without HTTP.
type HealthServer struct {
	healthpb.UnimplementedHealthServer

	readiness readinessChecker
}

func NewHealthServer(r readinessChecker) *HealthServer {
	return &HealthServer{readiness: r}
}

func (s *HealthServer) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		return &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_NOT_SERVING,
		}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{
		Status: healthpb.HealthCheckResponse_SERVING,
	}, nil
}

func (s *HealthServer) Watch(_ *healthpb.HealthCheckRequest, _ healthpb.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "watch is not supported")
}
