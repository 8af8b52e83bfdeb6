package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Component names reported by the gRPC health service.
const (
	HealthCache     = "molsim.cache"
	HealthHardware  = "molsim.hardware"
	HealthPredictor = "molsim.predictor"
)

const healthRefresh = 15 * time.Second

func (s *Server) newGRPCServer(ctx context.Context) *grpc.Server {
	hs := health.NewServer()
	s.updateHealth(hs)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	go func() {
		t := time.NewTicker(healthRefresh)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				return
			case <-t.C:
				s.updateHealth(hs)
			}
		}
	}()
	return gs
}

// updateHealth publishes the overall status and one status per component.
// The service itself is serving as long as it runs; components degrade.
func (s *Server) updateHealth(hs *health.Server) {
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthCache, servingStatus(s.sim.CacheEnabled()))
	hs.SetServingStatus(HealthPredictor, servingStatus(s.predictor.Loaded()))
	hw := false
	if s.hardware != nil {
		hw = s.hardware.HardwareAvailable()
	}
	hs.SetServingStatus(HealthHardware, servingStatus(hw))
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
