package nativebridge

import (
	"errors"
	"testing"

	"github.com/chazu/classvm/interp"
)

// stubResolver resolves every method to the same fake symbol address.
type stubResolver struct {
	fn  uintptr
	err error
}

func (r *stubResolver) ResolveNativeMethod(m *interp.Method) (uintptr, error) {
	return r.fn, r.err
}

// stubCaller records its last invocation and returns a fixed raw result.
type stubCaller struct {
	raw     uint64
	err     error
	lastArg []uint64
}

func (c *stubCaller) Call(fn uintptr, args []uint64, types []interp.Tag, argc, argTableSize int, rc interp.ReturnCode) (uint64, error) {
	c.lastArg = append([]uint64(nil), args...)
	return c.raw, c.err
}

func (c *stubCaller) Load(libname string) (uintptr, error) { return 0, nil }

func newTestMachine(resolver *stubResolver, caller *stubCaller) *interp.Machine {
	return interp.NewMachine(interp.Collaborators{
		NativeResolver: resolver,
		SystemCaller:   caller,
	}, nil)
}

func staticIntMethod(class *interp.Class) *interp.Method {
	return &interp.Method{
		Flags:              interp.AccStatic | interp.AccNative,
		VMFlags:            interp.VMFlagFastNative,
		Name:               "answer",
		Spec:               "(I)I",
		Class:              class,
		ParameterFootprint: 1,
		ParameterCount:     1,
		ParamCodes:         []interp.ReturnCode{interp.ReturnInt},
		ReturnCode:         interp.ReturnInt,
	}
}

func TestBridgeInvokeNativeFastPath(t *testing.T) {
	class := &interp.Class{Name: "Native"}
	caller := &stubCaller{raw: 42}
	machine := newTestMachine(&stubResolver{fn: 0xBEEF}, caller)
	thread := machine.NewThread()
	m := staticIntMethod(class)

	if err := thread.Stack.PushInt(7); err != nil {
		t.Fatalf("push arg: %v", err)
	}

	bridge := NewBridge(machine)
	result, err := bridge.InvokeNative(thread, m)
	if err != nil {
		t.Fatalf("InvokeNative: %v", err)
	}
	if len(result) != 1 || result[0].Tag != interp.IntTag || int32(uint32(result[0].Value)) != 42 {
		t.Fatalf("InvokeNative result = %v, want [{IntTag 42}]", result)
	}
	// env, this/class, then the one int argument.
	if len(caller.lastArg) != 3 {
		t.Fatalf("Call args = %v, want 3 words", caller.lastArg)
	}
	if caller.lastArg[2] != 7 {
		t.Errorf("Call arg[2] = %d, want 7", caller.lastArg[2])
	}
	// the pushed argument must be consumed off the operand stack.
	if sp := thread.Stack.SP(); sp != 0 {
		t.Errorf("Stack.SP() after call = %d, want 0", sp)
	}
}

func TestBridgeInvokeNativeSlowPath(t *testing.T) {
	class := &interp.Class{Name: "Native"}
	caller := &stubCaller{raw: 9}
	machine := newTestMachine(&stubResolver{fn: 0xBEEF}, caller)
	thread := machine.NewThread()
	m := staticIntMethod(class)
	m.VMFlags = 0 // not fast: exercises slowCall's local-reference indirection

	if err := thread.Stack.PushInt(3); err != nil {
		t.Fatalf("push arg: %v", err)
	}

	bridge := NewBridge(machine)
	result, err := bridge.InvokeNative(thread, m)
	if err != nil {
		t.Fatalf("InvokeNative: %v", err)
	}
	if len(result) != 1 || int32(uint32(result[0].Value)) != 9 {
		t.Fatalf("InvokeNative result = %v, want [{IntTag 9}]", result)
	}
}

func TestBridgeResolveCachesDescriptor(t *testing.T) {
	class := &interp.Class{Name: "Native"}
	resolver := &stubResolver{fn: 0x1234}
	caller := &stubCaller{raw: 1}
	machine := newTestMachine(resolver, caller)
	bridge := NewBridge(machine)
	m := staticIntMethod(class)

	nd1, err := bridge.resolve(m)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// A second resolve call must hit Method.Native's cache rather than
	// calling the resolver again - same pointer back.
	nd2, err := bridge.resolve(m)
	if err != nil {
		t.Fatalf("resolve (cached): %v", err)
	}
	if nd1 != nd2 {
		t.Errorf("resolve returned different descriptors across calls, want the cached one")
	}
}

func TestBridgeResolveMalformedDescriptor(t *testing.T) {
	class := &interp.Class{Name: "Native"}
	machine := newTestMachine(&stubResolver{}, &stubCaller{})
	bridge := NewBridge(machine)
	m := staticIntMethod(class)
	m.Spec = "not-a-descriptor"

	if _, err := bridge.resolve(m); err == nil {
		t.Fatal("resolve with malformed descriptor succeeded, want error")
	}
}

func TestBridgeResolveErrorPropagates(t *testing.T) {
	class := &interp.Class{Name: "Native"}
	wantErr := errors.New("symbol not found")
	machine := newTestMachine(&stubResolver{err: wantErr}, &stubCaller{})
	bridge := NewBridge(machine)
	m := staticIntMethod(class)

	if _, err := bridge.resolve(m); !errors.Is(err, wantErr) {
		t.Fatalf("resolve error = %v, want %v", err, wantErr)
	}
}
