package interp

import "testing"

// dispatchTestMethod builds a static void-looking int-returning method
// whose code is exactly the given body, for driving Run() end to end.
func dispatchTestMethod(body []byte, maxStack int) *Method {
	return &Method{
		Flags:      AccStatic,
		Name:       "m",
		Spec:       "()I",
		ReturnCode: ReturnInt,
		Code: &Code{
			Body:      body,
			MaxLocals: 0,
			MaxStack:  maxStack,
		},
	}
}

// TestRunExecutesArithmeticAndReturns mirrors internal/fixture's demo
// body: iconst_2, iconst_2, iadd, ireturn, computing 2+2 through the
// real dispatch loop rather than by calling PushFrame/PopFrame directly.
func TestRunExecutesArithmeticAndReturns(t *testing.T) {
	machine := testMachine()
	thread := machine.NewThread()
	m := dispatchTestMethod([]byte{
		byte(OpIconst2), byte(OpIconst2), byte(OpIadd), byte(OpIreturn),
	}, 2)

	if err := thread.PushFrame(m); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	result, returned, err := thread.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !returned {
		t.Fatal("Run did not report a return")
	}
	if len(result) != 1 || result[0].Tag != IntTag || int32(uint32(result[0].Value)) != 4 {
		t.Fatalf("Run result = %v, want [{IntTag 4}]", result)
	}
	if thread.FP() != -1 {
		t.Errorf("FP() after Run returned past the entry frame = %d, want -1", thread.FP())
	}
}

// TestRunTakesConditionalBranch verifies ifeq actually diverts control
// flow: iconst_0 makes the comparison true, so the taken branch's value
// (2) must come back rather than the fall-through value (5).
func TestRunTakesConditionalBranch(t *testing.T) {
	machine := testMachine()
	thread := machine.NewThread()
	body := []byte{
		byte(OpIconst0),       // 0: push 0
		byte(OpIfeq), 0x00, 5, // 1: if zero, branch to opStart(1)+5 = 6
		byte(OpIconst5),  // 4: fall-through (not taken): push 5
		byte(OpIreturn),  // 5
		byte(OpIconst2),  // 6: branch target: push 2
		byte(OpIreturn),  // 7
	}
	m := dispatchTestMethod(body, 1)

	if err := thread.PushFrame(m); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	result, returned, err := thread.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !returned {
		t.Fatal("Run did not report a return")
	}
	if len(result) != 1 || int32(uint32(result[0].Value)) != 2 {
		t.Fatalf("Run result = %v, want [{IntTag 2}] (branch taken)", result)
	}
}

// TestRunInvokesOnOpcodeHook verifies the profiler hook point fires once
// per decoded instruction, in program order.
func TestRunInvokesOnOpcodeHook(t *testing.T) {
	machine := testMachine()
	var seen []Opcode
	machine.OnOpcode = func(op Opcode) { seen = append(seen, op) }
	thread := machine.NewThread()
	m := dispatchTestMethod([]byte{
		byte(OpIconst2), byte(OpIconst2), byte(OpIadd), byte(OpIreturn),
	}, 2)

	if err := thread.PushFrame(m); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	if _, _, err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []Opcode{OpIconst2, OpIconst2, OpIadd, OpIreturn}
	if len(seen) != len(want) {
		t.Fatalf("OnOpcode saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("OnOpcode[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

// TestRunUncaughtExceptionBubblesOutWithPendingSet drives athrow through
// the dispatcher with no handler table, confirming Run returns cleanly
// (no error) with Pending left set for the caller to surface.
func TestRunUncaughtExceptionBubblesOutWithPendingSet(t *testing.T) {
	machine := exceptionTestMachine(&stubExceptionResolver{instanceOf: false})
	thread := machine.NewThread()
	m := dispatchTestMethod([]byte{byte(OpAthrow)}, 1)

	if err := thread.PushFrame(m); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	// Push the object to throw directly, bypassing aconst_null/new so this
	// test doesn't need a working NullPointerException collaborator.
	if err := thread.Stack.PushObject(Ref(9)); err != nil {
		t.Fatalf("push exception ref: %v", err)
	}
	_, returned, err := thread.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if returned {
		t.Fatal("Run reported a normal return for an uncaught throw")
	}
	if thread.Pending != Ref(9) {
		t.Errorf("Pending after uncaught athrow = %v, want Ref(9)", thread.Pending)
	}
}
