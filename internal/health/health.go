// Package health reports whether draft storage is reachable over the
// standard gRPC health checking protocol.
package health

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/fjod/go_cart/storefront/internal/kv"
)

const (
	ServiceName = "storefront"
	probeKey    = "storefront:health:probe"
)

// Monitor probes the draft storage and publishes the result as the serving
// status of ServiceName.
type Monitor struct {
	storage kv.Store
	server  *health.Server
	timeout time.Duration
}

func NewMonitor(storage kv.Store, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	m := &Monitor{
		storage: storage,
		server:  health.NewServer(),
		timeout: timeout,
	}
	m.server.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return m
}

// Check probes storage once. A missing probe key still proves the backend
// answered.
func (m *Monitor) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if _, err := m.storage.Get(ctx, probeKey); err != nil && !errors.Is(err, kv.ErrNotFound) {
		slog.WarnContext(ctx, "draft storage probe failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.server.SetServingStatus(ServiceName, status)
	return status
}

// Run checks every interval until ctx ends, then marks everything as not
// serving.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			m.server.Shutdown()
			return
		}
	}
}

// NewServer builds the gRPC server exposing the health service.
func NewServer(m *Monitor) *grpc.Server {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(srv, m.server)
	reflection.Register(srv)
	return srv
}
