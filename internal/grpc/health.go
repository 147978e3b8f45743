package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported to health checks for the marketplace API.
const ServiceName = "theprintfarm.Marketplace"

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer builds the internal gRPC server. Health checks are open; the
// reflection service and anything registered later need the service token.
func NewServer(serviceToken string) (*grpc.Server, *health.Server, error) {
	auth, err := NewServiceAuth(serviceToken, HealthMethods...)
	if err != nil {
		return nil, nil, err
	}
	server := grpc.NewServer(
		grpc.UnaryInterceptor(auth.Unary()),
		grpc.StreamInterceptor(auth.Stream()),
	)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)
	return server, hs, nil
}

// CheckReadiness pings the database once and publishes the outcome.
func CheckReadiness(ctx context.Context, hs *health.Server, db Pinger, timeout time.Duration) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := db.Ping(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus(ServiceName, status)
	return status
}

// StartReadinessLoop refreshes the serving status every interval until ctx
// is done, then marks every service as shutting down.
func StartReadinessLoop(ctx context.Context, hs *health.Server, db Pinger, interval time.Duration, log logrus.FieldLogger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := CheckReadiness(ctx, hs, db, interval)
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				return
			case <-ticker.C:
				current := CheckReadiness(ctx, hs, db, interval)
				if current != last {
					log.WithField("status", current.String()).Warn("readiness changed")
					last = current
				}
			}
		}
	}()
}
