package interp

import "testing"

func testMachine() *Machine {
	return NewMachine(Collaborators{}, nil)
}

func simpleMethod(class *Class, maxLocals, maxStack int, body []byte) *Method {
	return &Method{
		Flags:              AccStatic,
		ParameterFootprint: 0,
		Class:              class,
		Name:               "m",
		Spec:               "()V",
		ReturnCode:         ReturnVoid,
		Code: &Code{
			Body:      body,
			MaxLocals: maxLocals,
			MaxStack:  maxStack,
		},
	}
}

func TestCheckStackFitsWithinLimit(t *testing.T) {
	machine := testMachine()
	thread := machine.NewThread()
	m := simpleMethod(nil, 2, 2, []byte{byte(OpReturn)})

	if !thread.CheckStack(m) {
		t.Fatal("CheckStack on an empty, freshly-sized stack reported no room")
	}
}

func TestCheckStackRejectsOversizedFrame(t *testing.T) {
	machine := testMachine()
	thread := machine.NewThread()
	m := simpleMethod(nil, thread.Stack.Limit()+1, 0, nil)

	if thread.CheckStack(m) {
		t.Fatal("CheckStack approved a frame larger than the stack's limit")
	}
}

func TestPushFramePopFrameRoundTrip(t *testing.T) {
	machine := testMachine()
	thread := machine.NewThread()
	m := simpleMethod(nil, 3, 1, []byte{byte(OpReturn)})

	if err := thread.PushFrame(m); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	if got := thread.FP(); got != 0 {
		t.Fatalf("FP() after first PushFrame = %d, want 0", got)
	}
	if thread.Method != m {
		t.Fatalf("Method after PushFrame = %v, want %v", thread.Method, m)
	}
	if sp := thread.Stack.SP(); sp != 3 {
		t.Fatalf("SP() after PushFrame with 3 locals = %d, want 3", sp)
	}

	thread.PopFrame()
	if got := thread.FP(); got != -1 {
		t.Fatalf("FP() after PopFrame = %d, want -1", got)
	}
	if thread.Method != nil {
		t.Fatalf("Method after popping the only frame = %v, want nil", thread.Method)
	}
	if sp := thread.Stack.SP(); sp != 0 {
		t.Fatalf("SP() after PopFrame = %d, want 0", sp)
	}
}

func TestPushFrameNestedRestoresCallerRegisters(t *testing.T) {
	machine := testMachine()
	thread := machine.NewThread()
	caller := simpleMethod(nil, 0, 0, []byte{byte(OpNop), byte(OpReturn)})
	callee := simpleMethod(nil, 0, 0, []byte{byte(OpReturn)})

	if err := thread.PushFrame(caller); err != nil {
		t.Fatalf("PushFrame(caller): %v", err)
	}
	thread.IP = 1 // simulate having executed the nop

	if err := thread.PushFrame(callee); err != nil {
		t.Fatalf("PushFrame(callee): %v", err)
	}
	if thread.FP() != 1 {
		t.Fatalf("FP() with callee active = %d, want 1", thread.FP())
	}

	thread.PopFrame()
	if thread.FP() != 0 {
		t.Fatalf("FP() after popping callee = %d, want 0", thread.FP())
	}
	if thread.Method != caller {
		t.Fatalf("Method after popping callee = %v, want caller", thread.Method)
	}
	if thread.IP != 1 {
		t.Fatalf("IP after popping callee = %d, want restored caller IP 1", thread.IP)
	}
}

func TestPushFrameSynchronizedStaticAcquiresClassMonitor(t *testing.T) {
	machine, _ := newMonitorTestMachine()
	thread := machine.NewThread()
	machine.BindCurrentGoroutine(thread)
	defer machine.UnbindCurrentGoroutine()

	class := &Class{Name: "Locked"}
	class.SetMirror(Ref(99))
	m := simpleMethod(class, 0, 0, []byte{byte(OpReturn)})
	m.Flags |= AccSynchronized

	if err := thread.PushFrame(m); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	if thread.CurrentFrame().Monitor != Ref(99) {
		t.Fatalf("frame.Monitor = %v, want the class mirror ref 99", thread.CurrentFrame().Monitor)
	}
	// Monitor must already be held by this thread, so releasing it from
	// the owning thread succeeds.
	if err := machine.Release(Ref(99)); err != nil {
		t.Fatalf("Release from the owning thread: %v", err)
	}

	thread.PopFrame()
}
