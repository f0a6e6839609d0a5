// Package grpcserver serves the standard gRPC health service, reporting
// whether the store answers.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StoreService is the health service name reporting the SQLite store.
const StoreService = "novelhub.Store"

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Health struct {
	srv *health.Server
	db  Pinger
	log *zap.Logger
}

func NewHealth(db Pinger, log *zap.Logger) *Health {
	if log == nil {
		log = zap.NewNop()
	}
	return &Health{srv: health.NewServer(), db: db, log: log}
}

// Check pings the store once and publishes the result for both the
// overall server and StoreService.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("store ping failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(StoreService, st)
	return st
}

// Watch re-checks every interval until ctx is done, then reports
// NOT_SERVING so clients drain.
func (h *Health) Watch(ctx context.Context, interval time.Duration) {
	h.Check(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}

// NewServer returns a gRPC server with the health service registered.
func NewServer(h *Health) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, h.srv)
	return s
}
