package interp

// dispatchControl handles stack reshuffling, branches, goto/jsr/ret,
// the two switch forms, athrow, the monitor pair, and the wide prefix
// (§4.4 Stack/Control-transfer groups, §5 monitor entry points).
func (t *Thread) dispatchControl(op Opcode) (done bool, rs []Slot, rv bool, err error) {
	// opStart is the address of this opcode byte itself: ip has already
	// advanced past it by the time dispatch reaches here, and every
	// branch offset in the class file is defined relative to it.
	opStart := t.IP - 1

	switch op {
	case OpPop:
		t.Stack.Pop()
	case OpPop2:
		t.Stack.Pop()
		t.Stack.Pop()
	case OpDup:
		v := t.Stack.Pop()
		checkErr(t.Stack.Push(v))
		checkErr(t.Stack.Push(v))
	case OpDupX1:
		v1 := t.Stack.Pop()
		v2 := t.Stack.Pop()
		checkErr(t.Stack.Push(v1))
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
	case OpDupX2:
		v1 := t.Stack.Pop()
		v2 := t.Stack.Pop()
		v3 := t.Stack.Pop()
		checkErr(t.Stack.Push(v1))
		checkErr(t.Stack.Push(v3))
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
	case OpDup2:
		v1 := t.Stack.Pop()
		v2 := t.Stack.Pop()
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
	case OpDup2X1:
		v1 := t.Stack.Pop()
		v2 := t.Stack.Pop()
		v3 := t.Stack.Pop()
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
		checkErr(t.Stack.Push(v3))
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
	case OpDup2X2:
		v1 := t.Stack.Pop()
		v2 := t.Stack.Pop()
		v3 := t.Stack.Pop()
		v4 := t.Stack.Pop()
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
		checkErr(t.Stack.Push(v4))
		checkErr(t.Stack.Push(v3))
		checkErr(t.Stack.Push(v2))
		checkErr(t.Stack.Push(v1))
	case OpSwap:
		v1 := t.Stack.Pop()
		v2 := t.Stack.Pop()
		checkErr(t.Stack.Push(v1))
		checkErr(t.Stack.Push(v2))

	case OpIfeq:
		return t.branchIf(opStart, t.Stack.PopInt() == 0)
	case OpIfne:
		return t.branchIf(opStart, t.Stack.PopInt() != 0)
	case OpIflt:
		return t.branchIf(opStart, t.Stack.PopInt() < 0)
	case OpIfge:
		return t.branchIf(opStart, t.Stack.PopInt() >= 0)
	case OpIfgt:
		return t.branchIf(opStart, t.Stack.PopInt() > 0)
	case OpIfle:
		return t.branchIf(opStart, t.Stack.PopInt() <= 0)
	case OpIfIcmpeq:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		return t.branchIf(opStart, a == b)
	case OpIfIcmpne:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		return t.branchIf(opStart, a != b)
	case OpIfIcmplt:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		return t.branchIf(opStart, a < b)
	case OpIfIcmpge:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		return t.branchIf(opStart, a >= b)
	case OpIfIcmpgt:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		return t.branchIf(opStart, a > b)
	case OpIfIcmple:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		return t.branchIf(opStart, a <= b)
	case OpIfAcmpeq:
		b, a := t.Stack.PopObject(), t.Stack.PopObject()
		return t.branchIf(opStart, a == b)
	case OpIfAcmpne:
		b, a := t.Stack.PopObject(), t.Stack.PopObject()
		return t.branchIf(opStart, a != b)
	case OpIfnull:
		return t.branchIf(opStart, t.Stack.PopObject() == NullRef)
	case OpIfnonnull:
		return t.branchIf(opStart, t.Stack.PopObject() != NullRef)

	case OpGoto:
		t.branchTo(opStart, int(t.readI16()))
	case OpGotoW:
		t.branchTo(opStart, int(t.readI32()))
	case OpJsr:
		offset := int(t.readI16())
		checkErr(t.Stack.PushInt(int32(t.IP)))
		t.branchTo(opStart, offset)
	case OpJsrW:
		offset := int(t.readI32())
		checkErr(t.Stack.PushInt(int32(t.IP)))
		t.branchTo(opStart, offset)
	case OpRet:
		idx := t.Frames[t.fp].Base + int(t.readU8())
		t.IP = int(t.Stack.PeekInt(idx))

	case OpTableswitch:
		t.tableswitch(opStart)
	case OpLookupswitch:
		t.lookupswitch(opStart)

	case OpAthrow:
		exc := t.Stack.PopObject()
		if exc == NullRef {
			return t.throwRuntime(t.machine.NullPointerException())
		}
		return t.throwRuntime(exc)

	case OpMonitorenter:
		obj := t.Stack.PopObject()
		if obj == NullRef {
			return t.throwRuntime(t.machine.NullPointerException())
		}
		if e := t.machine.Acquire(obj); e != nil {
			return false, nil, false, e
		}
	case OpMonitorexit:
		obj := t.Stack.PopObject()
		if obj == NullRef {
			return t.throwRuntime(t.machine.NullPointerException())
		}
		if e := t.machine.Release(obj); e != nil {
			return false, nil, false, e
		}

	case OpWide:
		t.wide()

	default:
		abort("dispatchControl: unhandled opcode %s", op)
	}
	return false, nil, false, nil
}

// branchIf reads the 16-bit relative offset that always follows an if*
// opcode and takes it when taken is true; opStart is that opcode's own
// address, the base every branch offset is relative to.
func (t *Thread) branchIf(opStart int, taken bool) (bool, []Slot, bool, error) {
	offset := int(t.readI16())
	if taken {
		t.branchTo(opStart, offset)
	}
	return false, nil, false, nil
}

// branchTo sets ip to opStart+offset, per the class-file convention that
// every branch offset is relative to its own opcode's address.
func (t *Thread) branchTo(opStart, offset int) {
	t.IP = opStart + offset
}

// tableswitch implements the padded, densely-indexed switch form.
func (t *Thread) tableswitch(base int) {
	t.align4()
	def := t.readI32()
	low := t.readI32()
	high := t.readI32()
	key := t.Stack.PopInt()
	if key < low || key > high {
		t.IP = base + int(def)
		return
	}
	off := int(key-low) * 4
	t.IP += off
	target := t.readI32()
	t.IP = base + int(target)
}

// lookupswitch implements the sparse, (match,offset)-paired switch form.
func (t *Thread) lookupswitch(base int) {
	t.align4()
	def := t.readI32()
	n := int(t.readI32())
	key := t.Stack.PopInt()
	for i := 0; i < n; i++ {
		match := t.readI32()
		offset := t.readI32()
		if match == key {
			t.IP = base + int(offset)
			return
		}
	}
	t.IP = base + int(def)
}

// align4 advances ip to the next 4-byte boundary measured from the
// start of the method's code array, as tableswitch/lookupswitch require
// between their opcode byte and their first operand.
func (t *Thread) align4() {
	for t.IP%4 != 0 {
		t.readU8()
	}
}

// wide reinterprets the next opcode's local-variable index (and, for
// iinc, its constant) as 16-bit rather than 8-bit (§4.4).
func (t *Thread) wide() {
	frame := t.Frames[t.fp]
	base := frame.Base
	op := Opcode(t.readU8())
	idx := base + int(t.readU16())
	switch op {
	case OpIload, OpFload, OpAload:
		checkErr(t.Stack.Push(t.Stack.Get(idx)))
	case OpLload, OpDload:
		checkErr(t.Stack.Push(t.Stack.Get(idx)))
		checkErr(t.Stack.Push(t.Stack.Get(idx + 1)))
	case OpIstore, OpFstore, OpAstore:
		t.Stack.Store(idx)
	case OpLstore, OpDstore:
		t.Stack.StoreWide(idx)
	case OpIinc:
		c := int32(t.readI16())
		t.Stack.PokeInt(idx, t.Stack.PeekInt(idx)+c)
	case OpRet:
		t.IP = int(t.Stack.PeekInt(idx))
	default:
		abort("wide: unsupported opcode %s", op)
	}
}
