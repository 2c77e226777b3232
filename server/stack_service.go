package server

import (
	"context"

	"connectrpc.com/connect"

	"github.com/chazu/classvm/interp"
)

// StackServiceProcedure is this service's Connect procedure path.
const StackServiceProcedure = "/classvm.v1.StackService/WalkStack"

// StackService exposes the Processor Facade's walkStack operation (§4.6,
// interp.Thread.WalkStack) over Connect, mirroring the teacher's
// InspectService's snapshot-a-running-VM shape.
type StackService struct {
	threads *ThreadRegistry
}

// NewStackService constructs a StackService over a thread registry
// shared with InvokeService.
func NewStackService(threads *ThreadRegistry) *StackService {
	return &StackService{threads: threads}
}

// Handler builds the Connect handler for this service, mounted by Server
// at StackServiceProcedure.
func (s *StackService) Handler(opts ...connect.HandlerOption) *connect.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	return connect.NewUnaryHandler(StackServiceProcedure, s.walkStack, opts...)
}

func (s *StackService) walkStack(ctx context.Context, req *connect.Request[WalkStackRequest]) (*connect.Response[WalkStackResponse], error) {
	t, err := s.threads.Lookup(req.Msg.ThreadID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	resp := &WalkStackResponse{}
	t.WalkStack(func(depth int, m *interp.Method, ip int) bool {
		class := "?"
		name, spec := "?", "?"
		if m != nil {
			name, spec = m.Name, m.Spec
			if m.Class != nil {
				class = m.Class.Name
			}
		}
		resp.Frames = append(resp.Frames, StackFrame{
			Depth:      int32(depth),
			ClassName:  class,
			MethodName: name,
			MethodSpec: spec,
			IP:         int32(ip),
		})
		return true
	})
	return connect.NewResponse(resp), nil
}
