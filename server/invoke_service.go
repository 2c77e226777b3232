package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/classvm/interp"
)

// InvokeServiceProcedure is this service's Connect procedure path, the
// hand-maintained equivalent of a generated xxxv1connect constant (see
// server/codec.go).
const InvokeServiceProcedure = "/classvm.v1.InvokeService/Invoke"

// InvokeService exposes the Processor Facade's invoke-by-symbolic-triple
// operation (§4.6, interp.Thread.InvokeSymbolic) over Connect, mirroring
// the teacher's EvalService's request/response shape one-for-one but
// against an interpreter thread instead of a Smalltalk VM singleton.
type InvokeService struct {
	threads *ThreadRegistry
}

// NewInvokeService constructs an InvokeService over a thread registry
// shared with StackService.
func NewInvokeService(threads *ThreadRegistry) *InvokeService {
	return &InvokeService{threads: threads}
}

// Handler builds the Connect handler for this service, mounted by Server
// at InvokeServiceProcedure.
func (s *InvokeService) Handler(opts ...connect.HandlerOption) *connect.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	return connect.NewUnaryHandler(InvokeServiceProcedure, s.invoke, opts...)
}

func (s *InvokeService) invoke(ctx context.Context, req *connect.Request[InvokeRequest]) (*connect.Response[InvokeResponse], error) {
	in := req.Msg
	t, err := s.threads.Lookup(in.ThreadID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	args := make([]interp.Slot, len(in.Args))
	for i, a := range in.Args {
		args[i] = interp.Slot{Tag: interp.Tag(a.Tag), Value: a.Value}
	}

	result, err := t.InvokeSymbolic(
		interp.Ref(in.Loader), in.ClassName, in.MethodName, in.MethodSpec,
		interp.Ref(in.This), args)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("server: invoke %s.%s%s: %w", in.ClassName, in.MethodName, in.MethodSpec, err))
	}

	resp := &InvokeResponse{}
	if t.Pending != interp.NullRef {
		resp.Exception = true
		resp.ExceptionRef = uint64(t.Pending)
		return connect.NewResponse(resp), nil
	}
	resp.Result = make([]Slot, len(result))
	for i, s := range result {
		resp.Result[i] = Slot{Tag: uint32(s.Tag), Value: s.Value}
	}
	return connect.NewResponse(resp), nil
}
