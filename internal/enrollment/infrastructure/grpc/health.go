package grpc

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "enrollment.v1.EnrollmentWebhook"

type HealthServer struct {
	Server *grpc.Server
	Addr   net.Addr
	health *health.Server
}

// Run starts a gRPC server exposing the standard health service and returns
// once the listener is bound.
func Run(log *slog.Logger, addr string) (*HealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		log.Info("grpc health listening", "addr", lis.Addr().String())
		if err := gs.Serve(lis); err != nil {
			log.Error("grpc server error", "err", err)
		}
	}()
	return &HealthServer{Server: gs, Addr: lis.Addr(), health: hs}, nil
}

// Stop reports NOT_SERVING before draining so probes stop routing traffic.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.Server.GracefulStop()
}
