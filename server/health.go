package server

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// NewHealthServer returns a standard gRPC health-checking service,
// independent of the Connect facade's own JSON-codec transport:
// Connect has no health-check RPC of its own, and grpc_health_v1's
// wire types ship pre-generated inside google.golang.org/grpc/health,
// so registering it needs no protoc invocation the rest of this
// package otherwise avoids. Orchestrators (Kubernetes liveness/
// readiness probes, systemd) speak this protocol directly.
func NewHealthServer() *health.Server {
	return health.NewServer()
}

// ServeHealth runs hs on l until the listener closes or accept fails.
// Callers set hs's per-service status (SetServingStatus) as the
// machine's own dependencies (classcache, profiler) come up or fail.
func ServeHealth(l net.Listener, hs *health.Server) error {
	s := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	return s.Serve(l)
}
