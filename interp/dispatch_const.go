package interp

import "math"

// dispatchConstLocal handles constants, scalar locals load/store, iinc,
// arithmetic, conversions, and comparisons (§4.4 Constants/Loads-stores/
// Arithmetic/Conversion/Comparison groups).
func (t *Thread) dispatchConstLocal(op Opcode) (done bool, rs []Slot, rv bool, err error) {
	frame := t.Frames[t.fp]
	base := frame.Base

	switch op {
	case OpNop:
	case OpAconstNull:
		checkErr(t.Stack.PushObject(NullRef))
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		checkErr(t.Stack.PushInt(int32(op) - int32(OpIconst0)))
	case OpLconst0, OpLconst1:
		checkErr(t.Stack.PushLong(int64(op) - int64(OpLconst0)))
	case OpFconst0, OpFconst1, OpFconst2:
		checkErr(t.Stack.PushFloat(float32(int32(op) - int32(OpFconst0))))
	case OpDconst0, OpDconst1:
		checkErr(t.Stack.PushDouble(float64(int32(op) - int32(OpDconst0))))
	case OpBipush:
		checkErr(t.Stack.PushInt(int32(t.readI8())))
	case OpSipush:
		checkErr(t.Stack.PushInt(int32(t.readI16())))
	case OpLdc:
		return t.ldc(int(t.readU8()))
	case OpLdcW:
		return t.ldc(int(t.readU16()))
	case OpLdc2W:
		t.ldc2(int(t.readU16()))

	case OpIload, OpFload, OpAload:
		checkErr(t.Stack.Push(t.Stack.Get(base + int(t.readU8()))))
	case OpLload, OpDload:
		idx := base + int(t.readU8())
		checkErr(t.Stack.Push(t.Stack.Get(idx)))
		checkErr(t.Stack.Push(t.Stack.Get(idx + 1)))
	case OpIload0, OpFload0, OpAload0:
		checkErr(t.Stack.Push(t.Stack.Get(base + 0)))
	case OpIload1, OpFload1, OpAload1:
		checkErr(t.Stack.Push(t.Stack.Get(base + 1)))
	case OpIload2, OpFload2, OpAload2:
		checkErr(t.Stack.Push(t.Stack.Get(base + 2)))
	case OpIload3, OpFload3, OpAload3:
		checkErr(t.Stack.Push(t.Stack.Get(base + 3)))
	case OpLload0, OpDload0:
		checkErr(t.Stack.Push(t.Stack.Get(base + 0)))
		checkErr(t.Stack.Push(t.Stack.Get(base + 1)))
	case OpLload1, OpDload1:
		checkErr(t.Stack.Push(t.Stack.Get(base + 1)))
		checkErr(t.Stack.Push(t.Stack.Get(base + 2)))
	case OpLload2, OpDload2:
		checkErr(t.Stack.Push(t.Stack.Get(base + 2)))
		checkErr(t.Stack.Push(t.Stack.Get(base + 3)))
	case OpLload3, OpDload3:
		checkErr(t.Stack.Push(t.Stack.Get(base + 3)))
		checkErr(t.Stack.Push(t.Stack.Get(base + 4)))

	case OpIstore, OpFstore, OpAstore:
		t.Stack.Store(base + int(t.readU8()))
	case OpLstore, OpDstore:
		t.Stack.StoreWide(base + int(t.readU8()))
	case OpIstore0, OpFstore0, OpAstore0:
		t.Stack.Store(base + 0)
	case OpIstore1, OpFstore1, OpAstore1:
		t.Stack.Store(base + 1)
	case OpIstore2, OpFstore2, OpAstore2:
		t.Stack.Store(base + 2)
	case OpIstore3, OpFstore3, OpAstore3:
		t.Stack.Store(base + 3)
	case OpLstore0, OpDstore0:
		t.Stack.StoreWide(base + 0)
	case OpLstore1, OpDstore1:
		t.Stack.StoreWide(base + 1)
	case OpLstore2, OpDstore2:
		t.Stack.StoreWide(base + 2)
	case OpLstore3, OpDstore3:
		t.Stack.StoreWide(base + 3)

	case OpIinc:
		idx := base + int(t.readU8())
		t.Stack.PokeInt(idx, t.Stack.PeekInt(idx)+int32(t.readI8()))

	case OpIadd:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a + b))
	case OpIsub:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a - b))
	case OpImul:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a * b))
	case OpIdiv:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		if b == 0 {
			return t.throwArithmetic("/ by zero")
		}
		if a == math.MinInt32 && b == -1 {
			checkErr(t.Stack.PushInt(math.MinInt32))
		} else {
			checkErr(t.Stack.PushInt(a / b))
		}
	case OpIrem:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		if b == 0 {
			return t.throwArithmetic("/ by zero")
		}
		if a == math.MinInt32 && b == -1 {
			checkErr(t.Stack.PushInt(0))
		} else {
			checkErr(t.Stack.PushInt(a % b))
		}
	case OpIneg:
		checkErr(t.Stack.PushInt(-t.Stack.PopInt()))
	case OpIshl:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a << (uint32(b) & 0x1F)))
	case OpIshr:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a >> (uint32(b) & 0x1F)))
	case OpIushr:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(int32(uint32(a) >> (uint32(b) & 0x1F))))
	case OpIand:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a & b))
	case OpIor:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a | b))
	case OpIxor:
		b, a := t.Stack.PopInt(), t.Stack.PopInt()
		checkErr(t.Stack.PushInt(a ^ b))

	case OpLadd:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a + b))
	case OpLsub:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a - b))
	case OpLmul:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a * b))
	case OpLdiv:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		if b == 0 {
			return t.throwArithmetic("/ by zero")
		}
		if a == math.MinInt64 && b == -1 {
			checkErr(t.Stack.PushLong(math.MinInt64))
		} else {
			checkErr(t.Stack.PushLong(a / b))
		}
	case OpLrem:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		if b == 0 {
			return t.throwArithmetic("/ by zero")
		}
		if a == math.MinInt64 && b == -1 {
			checkErr(t.Stack.PushLong(0))
		} else {
			checkErr(t.Stack.PushLong(a % b))
		}
	case OpLneg:
		checkErr(t.Stack.PushLong(-t.Stack.PopLong()))
	case OpLshl:
		b, a := t.Stack.PopInt(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a << (uint32(b) & 0x3F)))
	case OpLshr:
		b, a := t.Stack.PopInt(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a >> (uint32(b) & 0x3F)))
	case OpLushr:
		b, a := t.Stack.PopInt(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(int64(uint64(a) >> (uint32(b) & 0x3F))))
	case OpLand:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a & b))
	case OpLor:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a | b))
	case OpLxor:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		checkErr(t.Stack.PushLong(a ^ b))

	case OpFadd:
		b, a := t.Stack.PopFloat(), t.Stack.PopFloat()
		checkErr(t.Stack.PushFloat(a + b))
	case OpFsub:
		b, a := t.Stack.PopFloat(), t.Stack.PopFloat()
		checkErr(t.Stack.PushFloat(a - b))
	case OpFmul:
		b, a := t.Stack.PopFloat(), t.Stack.PopFloat()
		checkErr(t.Stack.PushFloat(a * b))
	case OpFdiv:
		b, a := t.Stack.PopFloat(), t.Stack.PopFloat()
		checkErr(t.Stack.PushFloat(a / b))
	case OpFrem:
		b, a := t.Stack.PopFloat(), t.Stack.PopFloat()
		checkErr(t.Stack.PushFloat(float32(math.Mod(float64(a), float64(b)))))
	case OpFneg:
		checkErr(t.Stack.PushFloat(-t.Stack.PopFloat()))

	case OpDadd:
		b, a := t.Stack.PopDouble(), t.Stack.PopDouble()
		checkErr(t.Stack.PushDouble(a + b))
	case OpDsub:
		b, a := t.Stack.PopDouble(), t.Stack.PopDouble()
		checkErr(t.Stack.PushDouble(a - b))
	case OpDmul:
		b, a := t.Stack.PopDouble(), t.Stack.PopDouble()
		checkErr(t.Stack.PushDouble(a * b))
	case OpDdiv:
		b, a := t.Stack.PopDouble(), t.Stack.PopDouble()
		checkErr(t.Stack.PushDouble(a / b))
	case OpDrem:
		b, a := t.Stack.PopDouble(), t.Stack.PopDouble()
		checkErr(t.Stack.PushDouble(math.Mod(a, b)))
	case OpDneg:
		checkErr(t.Stack.PushDouble(-t.Stack.PopDouble()))

	case OpI2l:
		checkErr(t.Stack.PushLong(int64(t.Stack.PopInt())))
	case OpI2f:
		checkErr(t.Stack.PushFloat(float32(t.Stack.PopInt())))
	case OpI2d:
		checkErr(t.Stack.PushDouble(float64(t.Stack.PopInt())))
	case OpL2i:
		checkErr(t.Stack.PushInt(int32(t.Stack.PopLong())))
	case OpL2f:
		checkErr(t.Stack.PushFloat(float32(t.Stack.PopLong())))
	case OpL2d:
		checkErr(t.Stack.PushDouble(float64(t.Stack.PopLong())))
	case OpF2i:
		checkErr(t.Stack.PushInt(float32ToInt32(t.Stack.PopFloat())))
	case OpF2l:
		checkErr(t.Stack.PushLong(float32ToInt64(t.Stack.PopFloat())))
	case OpF2d:
		checkErr(t.Stack.PushDouble(float64(t.Stack.PopFloat())))
	case OpD2i:
		checkErr(t.Stack.PushInt(float64ToInt32(t.Stack.PopDouble())))
	case OpD2l:
		checkErr(t.Stack.PushLong(float64ToInt64(t.Stack.PopDouble())))
	case OpD2f:
		checkErr(t.Stack.PushFloat(float32(t.Stack.PopDouble())))
	case OpI2b:
		checkErr(t.Stack.PushInt(int32(int8(t.Stack.PopInt()))))
	case OpI2c:
		checkErr(t.Stack.PushInt(int32(uint16(t.Stack.PopInt()))))
	case OpI2s:
		checkErr(t.Stack.PushInt(int32(int16(t.Stack.PopInt()))))

	case OpLcmp:
		b, a := t.Stack.PopLong(), t.Stack.PopLong()
		checkErr(t.Stack.PushInt(cmp3(a, b)))
	case OpFcmpl:
		b, a := t.Stack.PopFloat(), t.Stack.PopFloat()
		checkErr(t.Stack.PushInt(fcmp(float64(a), float64(b), -1)))
	case OpFcmpg:
		b, a := t.Stack.PopFloat(), t.Stack.PopFloat()
		checkErr(t.Stack.PushInt(fcmp(float64(a), float64(b), 1)))
	case OpDcmpl:
		b, a := t.Stack.PopDouble(), t.Stack.PopDouble()
		checkErr(t.Stack.PushInt(fcmp(a, b, -1)))
	case OpDcmpg:
		b, a := t.Stack.PopDouble(), t.Stack.PopDouble()
		checkErr(t.Stack.PushInt(fcmp(a, b, 1)))

	default:
		abort("dispatchConstLocal: unhandled opcode %s", op)
	}
	return false, nil, false, nil
}

func cmp3[T int64 | int32](a, b T) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// fcmp implements fcmpl/fcmpg/dcmpl/dcmpg: nanResult is -1 for the *l
// variants, +1 for the *g variants (§4.4 Comparison, §8 Laws).
func fcmp(a, b float64, nanResult int32) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return nanResult
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float32ToInt32(f float32) int32 {
	return float64ToInt32(float64(f))
}

func float32ToInt64(f float32) int64 {
	return float64ToInt64(float64(f))
}

func float64ToInt32(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

func float64ToInt64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

// checkErr panics on an overflow that checkStack should have already
// precluded — a defensive backstop, not a normal control path.
func checkErr(err error) {
	if err != nil {
		abort("%v", err)
	}
}

// throwRuntime raises exc and unwinds; if no handler within this Run's
// scope catches it, it reports done=true with Pending still set so Run
// returns control to whatever owns this scope.
func (t *Thread) throwRuntime(exc Ref) (bool, []Slot, bool, error) {
	t.Raise(exc)
	if !t.Unwind() {
		return t.fp < t.runBase, nil, false, nil
	}
	return false, nil, false, nil
}

func (t *Thread) throwArithmetic(msg string) (bool, []Slot, bool, error) {
	return t.throwRuntime(t.machine.ArithmeticException(msg))
}

// ldc/ldc_w: push an int, float, or resolved-string literal from the
// constant pool (§4.4 Constants). ldc_w shares ldc's implementation,
// differing only in operand width.
func (t *Thread) ldc(idx int) (bool, []Slot, bool, error) {
	pool := t.Code.Pool
	switch {
	case pool.IsClassRef(idx):
		cls, err := t.machine.ResolveClassInPool(t.Method, idx)
		if err != nil {
			return t.throwRuntime(t.machine.IncompatibleClassChangeError())
		}
		checkErr(t.Stack.PushObject(cls.Mirror()))
	case pool.IsStringRef(idx):
		ref, err := t.machine.MakeString("%s", pool.StringBytes(idx))
		if err != nil {
			abort("%v", err)
		}
		checkErr(t.Stack.PushObject(ref))
	default:
		checkErr(t.Stack.PushInt(pool.Int(idx)))
	}
	return false, nil, false, nil
}

// ldc2_w pushes a long or double literal (§4.4 Constants); the pool
// entry's own tag picks which of Long/Double to read.
func (t *Thread) ldc2(idx int) {
	pool := t.Code.Pool
	if pool.IsDoubleRef(idx) {
		checkErr(t.Stack.PushDouble(pool.Double(idx)))
		return
	}
	checkErr(t.Stack.PushLong(pool.Long(idx)))
}
