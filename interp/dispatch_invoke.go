package interp

// NativeInvoker is the native-method calling-convention collaborator:
// the nativebridge package's concrete bridge satisfies this, choosing
// between the fast and slow native paths per Method.Native.Fast (§6).
// Machine.Native is nil-checked: a VM with no native methods registered
// never needs one.
type NativeInvoker interface {
	InvokeNative(t *Thread, m *Method) (result []Slot, err error)
}

// dispatchInvoke handles returns, the four invoke* forms, and the
// bootstrap-reentry opcode (§4.4 Invocation/Return groups, §4.5 Native
// bridge, §4.6's classInit-before-call rule).
func (t *Thread) dispatchInvoke(op Opcode) (done bool, rs []Slot, rv bool, err error) {
	switch op {
	case OpIreturn, OpFreturn, OpAreturn:
		return t.doReturn1()
	case OpLreturn, OpDreturn:
		return t.doReturn2()
	case OpReturn:
		return t.doReturnVoid()
	case OpInvokestatic:
		return t.invokestatic()
	case OpInvokespecial:
		return t.invokespecial()
	case OpInvokevirtual:
		return t.invokevirtual()
	case OpInvokeinterface:
		return t.invokeinterface()
	case OpImpdep1:
		return t.reenterBootstrap()
	}
	abort("dispatchInvoke: unhandled opcode %s", op)
	return false, nil, false, nil
}

// doReturn1 implements ireturn/freturn/areturn: one operand-stack slot,
// popped before the frame so it survives PopFrame's SP truncation.
func (t *Thread) doReturn1() (bool, []Slot, bool, error) {
	v := t.Stack.Pop()
	t.PopFrame()
	if t.fp < t.runBase {
		return true, []Slot{v}, true, nil
	}
	checkErr(t.Stack.Push(v))
	return false, nil, false, nil
}

// doReturn2 implements lreturn/dreturn: two slots, high word first.
func (t *Thread) doReturn2() (bool, []Slot, bool, error) {
	lo := t.Stack.Pop()
	hi := t.Stack.Pop()
	t.PopFrame()
	if t.fp < t.runBase {
		return true, []Slot{hi, lo}, true, nil
	}
	checkErr(t.Stack.Push(hi))
	checkErr(t.Stack.Push(lo))
	return false, nil, false, nil
}

func (t *Thread) doReturnVoid() (bool, []Slot, bool, error) {
	t.PopFrame()
	if t.fp < t.runBase {
		return true, nil, false, nil
	}
	return false, nil, false, nil
}

// invoke is the synchronous, one-shot call entry point used by
// ClassInit and the Processor Facade: it pushes m's frame (or runs it
// through the native bridge) and drives the dispatch loop to
// completion via a nested Run, rather than returning control to an
// outer dispatch loop. A native callback into bytecode re-enters here
// on the same thread; runBase save/restore in Run keeps the nesting
// correct.
func (t *Thread) invoke(m *Method) error {
	_, err := t.invokeSync(m)
	return err
}

// invokeSync is invoke's result-returning form, used by the Processor
// Facade (facade.go) whose callers need the value a top-level call
// produced rather than just its error.
func (t *Thread) invokeSync(m *Method) ([]Slot, error) {
	if m.IsNative() {
		return t.callNative(m)
	}
	if !t.CheckStack(m) {
		t.Raise(t.machine.StackOverflowError())
		t.Unwind()
		return nil, nil
	}
	if err := t.PushFrame(m); err != nil {
		return nil, err
	}
	rs, _, err := t.Run()
	return rs, err
}

// callNative pops m's declared argument footprint into an args vector
// and hands off to the configured NativeInvoker. Used both by invoke
// (classInit, facade calls) and enterOrNative (invoke* opcodes).
func (t *Thread) callNative(m *Method) ([]Slot, error) {
	if t.machine.Native == nil {
		t.Raise(t.machine.UnsatisfiedLinkError(m.Name))
		t.Unwind()
		return nil, nil
	}
	return t.machine.Native.InvokeNative(t, m)
}

// enterOrNative is the shared tail of every invoke* opcode once the
// target Method has been resolved: native methods run through the
// bridge and their result (if any) is pushed directly; bytecode methods
// get a new frame laid over their already-pushed arguments, and the
// flat dispatch loop simply continues — no recursive Run call, keeping
// Go's call stack flat regardless of Java call depth.
func (t *Thread) enterOrNative(m *Method) (bool, []Slot, bool, error) {
	if m.IsNative() {
		result, err := t.callNative(m)
		if err != nil {
			return false, nil, false, err
		}
		if t.Pending != NullRef {
			if t.fp < t.runBase {
				return true, nil, false, nil
			}
			return false, nil, false, nil
		}
		for _, s := range result {
			checkErr(t.Stack.Push(s))
		}
		return false, nil, false, nil
	}

	if !t.CheckStack(m) {
		return t.throwRuntime(t.machine.StackOverflowError())
	}
	if err := t.PushFrame(m); err != nil {
		return false, nil, false, err
	}
	return false, nil, false, nil
}

// receiverAt returns the object reference sitting at the bottom of a
// method's already-pushed argument list — the receiver slot — without
// disturbing the stack, so dynamic dispatch can inspect its runtime
// class before a frame is laid over the arguments.
func (t *Thread) receiverAt(symbolic *Method) Ref {
	pf := symbolic.ParameterFootprint
	return t.Stack.Get(t.Stack.SP() - pf).asObject()
}

func (t *Thread) invokestatic() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	target, err := t.machine.ResolveMethod(t.Method, idx)
	if err != nil || target == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	if target.Class.NeedsInit() {
		did, cerr := t.ClassInit(target.Class, 3)
		if cerr != nil {
			return false, nil, false, cerr
		}
		if did {
			return false, nil, false, nil
		}
	}
	return t.enterOrNative(target)
}

// invokespecial uses the resolved target directly, except when the
// resolver flags it as needing special lookup: then the calling class's
// superclass is initialized if needed and the target is looked up
// through its virtual table (§4.4).
func (t *Thread) invokespecial() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	target, err := t.machine.ResolveMethod(t.Method, idx)
	if err != nil || target == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	if t.receiverAt(target) == NullRef {
		return t.throwRuntime(t.machine.NullPointerException())
	}
	if t.machine.IsSpecialMethod(target, t.Method.Class) {
		super := t.Method.Class.Super
		if super.NeedsInit() {
			did, cerr := t.ClassInit(super, 3)
			if cerr != nil {
				return false, nil, false, cerr
			}
			if did {
				return false, nil, false, nil
			}
		}
		target, err = t.machine.FindVirtualMethod(target, super)
		if err != nil || target == nil {
			return t.throwRuntime(t.machine.IncompatibleClassChangeError())
		}
	}
	return t.enterOrNative(target)
}

func (t *Thread) invokevirtual() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	symbolic, err := t.machine.ResolveMethod(t.Method, idx)
	if err != nil || symbolic == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	recv := t.receiverAt(symbolic)
	if recv == NullRef {
		return t.throwRuntime(t.machine.NullPointerException())
	}
	target, err := t.resolveVirtual(symbolic, t.machine.ClassOf(recv))
	if err != nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	return t.enterOrNative(target)
}

func (t *Thread) invokeinterface() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	t.readU8() // count, historical
	t.readU8() // reserved 0 byte
	symbolic, err := t.machine.ResolveMethod(t.Method, idx)
	if err != nil || symbolic == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	recv := t.receiverAt(symbolic)
	if recv == NullRef {
		return t.throwRuntime(t.machine.NullPointerException())
	}
	actual := t.machine.ClassOf(recv)
	target, err := t.machine.FindInterfaceMethod(symbolic, actual)
	if err != nil || target == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	return t.enterOrNative(target)
}

// resolveVirtual picks the vtable search vs. direct-dispatch rule: a
// method the resolver flags as special (private, or an invokevirtual
// of a constructor-like target reached some other way) is taken as-is,
// everything else goes through the virtual table of the receiver's
// actual runtime class (§4.4).
func (t *Thread) resolveVirtual(symbolic *Method, actual *Class) (*Method, error) {
	if t.machine.IsSpecialMethod(symbolic, actual) {
		return symbolic, nil
	}
	return t.machine.FindVirtualMethod(symbolic, actual)
}

// reenterBootstrap handles the impdep1 trap: a virtual/interface
// dispatch landed on a placeholder method body installed for a class
// whose vtable was still Bootstrap-pending at link time. It re-resolves
// the real target against the now-current vtable and restarts dispatch
// there, discarding the placeholder frame.
func (t *Thread) reenterBootstrap() (bool, []Slot, bool, error) {
	frame := t.Frames[t.fp]
	placeholder := frame.Method
	class := placeholder.Class

	if class.NeedsInit() {
		did, err := t.ClassInit(class, 0)
		if err != nil {
			return false, nil, false, err
		}
		if did {
			return false, nil, false, nil
		}
	}

	real, err := t.machine.FindVirtualMethod(placeholder, class)
	if err != nil || real == nil || real == placeholder {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	t.PopFrame()
	return t.enterOrNative(real)
}
