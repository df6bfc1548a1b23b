package server

import (
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Health is the serving flag shared by /healthz and the gRPC health service.
type Health struct {
	serving atomic.Bool
	grpc    *health.Server
}

func NewHealth() *Health {
	h := &Health{grpc: health.NewServer()}
	h.SetServing(true)
	return h
}

// SetServing flips both the HTTP and gRPC views.
func (h *Health) SetServing(ok bool) {
	h.serving.Store(ok)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.grpc.SetServingStatus("", status)
}

func (h *Health) Serving() bool {
	return h != nil && h.serving.Load()
}

// NewGRPCServer returns a server exposing grpc.health.v1.Health and reflection for grpcurl.
func NewGRPCServer(h *Health, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.grpc)
	reflection.Register(s)
	return s
}
