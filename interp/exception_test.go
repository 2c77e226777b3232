package interp

import "testing"

// stubExceptionResolver answers just enough of Resolver to drive
// findExceptionHandler's catch-type check: every pool index maps to the
// same catchClass, and InstanceOf is controlled per test.
type stubExceptionResolver struct {
	catchClass    *Class
	instanceOf    bool
	resolveErr    error
}

func (r *stubExceptionResolver) ResolveClassInPool(m *Method, idx int) (*Class, error) {
	return r.catchClass, r.resolveErr
}
func (r *stubExceptionResolver) InstanceOf(class *Class, obj Ref) bool { return r.instanceOf }

func (r *stubExceptionResolver) ResolveClass(loader Ref, nameBytes []byte) (*Class, error) {
	panic("unused")
}
func (r *stubExceptionResolver) ResolveMethod(m *Method, idx int) (*Method, error) {
	panic("unused")
}
func (r *stubExceptionResolver) ResolveField(m *Method, idx int) (*Field, error) {
	panic("unused")
}
func (r *stubExceptionResolver) FindInterfaceMethod(m *Method, c *Class) (*Method, error) {
	panic("unused")
}
func (r *stubExceptionResolver) FindVirtualMethod(m *Method, c *Class) (*Method, error) {
	panic("unused")
}
func (r *stubExceptionResolver) IsSpecialMethod(m *Method, c *Class) bool { panic("unused") }
func (r *stubExceptionResolver) ClassOf(obj Ref) *Class                  { panic("unused") }
func (r *stubExceptionResolver) FindMethodByName(c *Class, name, spec string) (*Method, error) {
	panic("unused")
}

func exceptionTestMachine(resolver Resolver) *Machine {
	return NewMachine(Collaborators{Resolver: resolver}, nil)
}

func TestCaptureTraceOrdersInnermostFirst(t *testing.T) {
	machine := exceptionTestMachine(&stubExceptionResolver{})
	thread := machine.NewThread()
	outer := simpleMethod(nil, 0, 0, nil)
	inner := simpleMethod(nil, 0, 0, nil)

	thread.PushFrame(outer)
	thread.IP = 5
	thread.PushFrame(inner)
	thread.IP = 2

	trace := thread.CaptureTrace()
	if len(trace) != 2 {
		t.Fatalf("CaptureTrace len = %d, want 2", len(trace))
	}
	if trace[0].Method != inner || trace[0].IP != 2 {
		t.Errorf("trace[0] = %+v, want inner at ip 2", trace[0])
	}
	if trace[1].Method != outer || trace[1].IP != 5 {
		t.Errorf("trace[1] = %+v, want outer at ip 5", trace[1])
	}
}

func TestRaiseSetsPendingAndTrace(t *testing.T) {
	machine := exceptionTestMachine(&stubExceptionResolver{})
	thread := machine.NewThread()
	m := simpleMethod(nil, 0, 0, nil)
	thread.PushFrame(m)

	thread.Raise(Ref(7))
	if thread.Pending != Ref(7) {
		t.Fatalf("Pending = %v, want 7", thread.Pending)
	}
	if len(thread.PendingTrace) != 1 {
		t.Fatalf("PendingTrace len = %d, want 1", len(thread.PendingTrace))
	}
}

func TestUnwindFindsMatchingHandler(t *testing.T) {
	resolver := &stubExceptionResolver{catchClass: &Class{Name: "Err"}, instanceOf: true}
	machine := exceptionTestMachine(resolver)
	thread := machine.NewThread()

	m := &Method{
		Flags: AccStatic,
		Name:  "risky",
		Spec:  "()V",
		Code: &Code{
			Body:      []byte{0, 0, 0, 0, 0},
			MaxLocals: 0,
			MaxStack:  1,
			ExceptionHandlerTable: []ExceptionHandler{
				{Start: 0, End: 5, HandlerPC: 4, CatchTypePoolIndex: 1},
			},
		},
	}
	thread.PushFrame(m)
	thread.IP = 2 // mid-try-block

	thread.Raise(Ref(1))
	if !thread.Unwind() {
		t.Fatal("Unwind() = false, want a matching handler to be found")
	}
	if thread.IP != 4 {
		t.Errorf("IP after Unwind = %d, want handler pc 4", thread.IP)
	}
	if thread.Pending != NullRef {
		t.Errorf("Pending after Unwind = %v, want NullRef", thread.Pending)
	}
	if got := thread.Stack.Pop(); got.Tag != ObjectTag || got.asObject() != Ref(1) {
		t.Errorf("top of stack after Unwind = %v, want the pushed exception ref", got)
	}
}

func TestUnwindPopsUnmatchedFramesAndBubblesUp(t *testing.T) {
	resolver := &stubExceptionResolver{catchClass: &Class{Name: "Err"}, instanceOf: false}
	machine := exceptionTestMachine(resolver)
	thread := machine.NewThread()

	m := simpleMethod(nil, 0, 0, []byte{byte(OpReturn)})
	thread.PushFrame(m)
	thread.IP = 0

	thread.Raise(Ref(1))
	if thread.Unwind() {
		t.Fatal("Unwind() = true, want no handler to match (class never matches)")
	}
	if thread.FP() != -1 {
		t.Errorf("FP() after Unwind with no handler = %d, want -1 (frame popped)", thread.FP())
	}
	if thread.Pending != Ref(1) {
		t.Errorf("Pending after unhandled Unwind = %v, want still set to 1", thread.Pending)
	}
}

func TestFindExceptionHandlerFinallyMatchesAnyException(t *testing.T) {
	resolver := &stubExceptionResolver{}
	machine := exceptionTestMachine(resolver)
	thread := machine.NewThread()

	m := &Method{
		Code: &Code{
			ExceptionHandlerTable: []ExceptionHandler{
				{Start: 0, End: 10, HandlerPC: 20, CatchTypePoolIndex: 0},
			},
		},
	}
	h := thread.findExceptionHandler(m, 5, Ref(1))
	if h == nil || h.HandlerPC != 20 {
		t.Fatalf("findExceptionHandler for a finally (index 0) = %v, want handler at pc 20", h)
	}
}
