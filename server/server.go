// Package server exposes the Processor Facade (§4.6) over Connect/gRPC,
// replacing the teacher's Smalltalk-VM-specific EvalService/
// SessionService/BrowseService/ModifyService/InspectService/SyncService
// family with two services shaped around interp.Thread instead: invoke
// by symbolic triple, and walk a thread's stack.
package server

import (
	"fmt"
	"net"
	"net/http"

	"github.com/chazu/classvm/interp"
)

// Server is the Connect/gRPC facade server wrapping a Machine's live
// threads, the classvm analogue of the teacher's MaggieServer.
type Server struct {
	machine *interp.Machine
	threads *ThreadRegistry
	mux     *http.ServeMux
}

// New creates a Server over m, with an empty thread registry that
// callers populate via RegisterThread as threads are created.
func New(m *interp.Machine) *Server {
	threads := NewThreadRegistry()
	s := &Server{machine: m, threads: threads, mux: http.NewServeMux()}

	invokeSvc := NewInvokeService(threads)
	stackSvc := NewStackService(threads)

	s.mux.Handle(InvokeServiceProcedure, invokeSvc.Handler())
	s.mux.Handle(StackServiceProcedure, stackSvc.Handler())

	return s
}

// RegisterThread makes t reachable by its thread id over the facade
// services, called once a thread is created via Machine.NewThread.
func (s *Server) RegisterThread(t *interp.Thread) { s.threads.Register(t) }

// UnregisterThread drops a thread once its caller is done with it.
func (s *Server) UnregisterThread(id uint64) { s.threads.Unregister(id) }

// ListenAndServe starts the HTTP server on addr ("host:port" or ":port").
func (s *Server) ListenAndServe(addr string) error {
	fmt.Printf("classvm facade server listening on %s\n", addr)
	fmt.Printf("  Invoke:    http://%s%s\n", addr, InvokeServiceProcedure)
	fmt.Printf("  WalkStack: http://%s%s\n", addr, StackServiceProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Serve runs the facade over an already-bound listener, for callers
// (cmd/classd's Unix-socket mode) that need to control the listener's
// lifetime separately from ListenAndServe's address-string form.
func (s *Server) Serve(l net.Listener) error {
	return http.Serve(l, s.mux)
}
