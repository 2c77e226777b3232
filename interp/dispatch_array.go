package interp

import "math"

// dispatchArrayField handles array load/store, the field quartet,
// object/array construction, arraylength, and the two type-test
// opcodes (§4.4 Array/Field/Object groups).
func (t *Thread) dispatchArrayField(op Opcode) (done bool, rs []Slot, rv bool, err error) {
	switch op {
	case OpIaload:
		return t.arrayLoadInt()
	case OpFaload:
		return t.arrayLoadFloat()
	case OpAaload:
		return t.arrayLoadObject()
	case OpBaload, OpCaload, OpSaload:
		return t.arrayLoadInt()
	case OpLaload:
		return t.arrayLoadLong()
	case OpDaload:
		return t.arrayLoadDouble()

	case OpIastore:
		return t.arrayStoreInt()
	case OpFastore:
		return t.arrayStoreFloat()
	case OpAastore:
		return t.arrayStoreObject()
	case OpBastore, OpCastore, OpSastore:
		return t.arrayStoreInt()
	case OpLastore:
		return t.arrayStoreLong()
	case OpDastore:
		return t.arrayStoreDouble()

	case OpGetstatic:
		return t.getstatic()
	case OpPutstatic:
		return t.putstatic()
	case OpGetfield:
		return t.getfield()
	case OpPutfield:
		return t.putfield()

	case OpNew:
		return t.opNew()
	case OpNewarray:
		return t.opNewarray()
	case OpAnewarray:
		return t.opAnewarray()
	case OpMultianewarray:
		return t.opMultianewarray()
	case OpArraylength:
		return t.opArraylength()
	case OpCheckcast:
		return t.opCheckcast()
	case OpInstanceof:
		return t.opInstanceof()

	default:
		abort("dispatchArrayField: unhandled opcode %s", op)
	}
	return false, nil, false, nil
}

// arrayBoundsCheck pops index then arrayref, returning both once a null
// check and a bounds check have passed; callers that fail return
// through the caller's own throwRuntime so the caller's (bool,[]Slot,
// bool,error) shape is preserved without an extra indirection layer.
func (t *Thread) arrayBoundsCheck() (arr Ref, idx int32, thrown bool, res bool, rs []Slot, rv bool, err error) {
	idx = t.Stack.PopInt()
	arr = t.Stack.PopObject()
	if arr == NullRef {
		res, rs, rv, err = t.throwRuntime(t.machine.NullPointerException())
		return 0, 0, true, res, rs, rv, err
	}
	if idx < 0 || idx >= t.machine.ArrayLength(arr) {
		res, rs, rv, err = t.throwRuntime(t.machine.ArrayIndexOutOfBoundsException(indexMsg(idx)))
		return 0, 0, true, res, rs, rv, err
	}
	return arr, idx, false, false, nil, false, nil
}

func indexMsg(idx int32) string {
	if idx < 0 {
		return "index out of bounds"
	}
	return "index out of bounds: " + itoa(idx)
}

func itoa(v int32) string {
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (t *Thread) arrayLoadInt() (bool, []Slot, bool, error) {
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	checkErr(t.Stack.PushInt(t.machine.LoadInt(arr, int(idx))))
	return false, nil, false, nil
}

func (t *Thread) arrayLoadFloat() (bool, []Slot, bool, error) {
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	checkErr(t.Stack.PushFloat(t.machine.LoadFloat(arr, int(idx))))
	return false, nil, false, nil
}

func (t *Thread) arrayLoadObject() (bool, []Slot, bool, error) {
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	checkErr(t.Stack.PushObject(t.machine.LoadObject(arr, int(idx))))
	return false, nil, false, nil
}

func (t *Thread) arrayLoadLong() (bool, []Slot, bool, error) {
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	checkErr(t.Stack.PushLong(t.machine.LoadLong(arr, int(idx))))
	return false, nil, false, nil
}

func (t *Thread) arrayLoadDouble() (bool, []Slot, bool, error) {
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	checkErr(t.Stack.PushDouble(t.machine.LoadDouble(arr, int(idx))))
	return false, nil, false, nil
}

func (t *Thread) arrayStoreInt() (bool, []Slot, bool, error) {
	v := t.Stack.PopInt()
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	t.machine.StoreInt(arr, int(idx), v)
	return false, nil, false, nil
}

func (t *Thread) arrayStoreFloat() (bool, []Slot, bool, error) {
	v := t.Stack.PopFloat()
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	t.machine.StoreFloat(arr, int(idx), v)
	return false, nil, false, nil
}

func (t *Thread) arrayStoreObject() (bool, []Slot, bool, error) {
	v := t.Stack.PopObject()
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	if serr := t.machine.StoreObject(arr, int(idx), v); serr != nil {
		return t.throwRuntime(t.machine.ClassCastException(serr.Error()))
	}
	return false, nil, false, nil
}

func (t *Thread) arrayStoreLong() (bool, []Slot, bool, error) {
	v := t.Stack.PopLong()
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	t.machine.StoreLong(arr, int(idx), v)
	return false, nil, false, nil
}

func (t *Thread) arrayStoreDouble() (bool, []Slot, bool, error) {
	v := t.Stack.PopDouble()
	arr, idx, thrown, res, rs, rv, err := t.arrayBoundsCheck()
	if thrown {
		return res, rs, rv, err
	}
	t.machine.StoreDouble(arr, int(idx), v)
	return false, nil, false, nil
}

// resolveFieldRef reads the u16 pool operand common to all four field
// opcodes and resolves it against the current method's pool. On
// failure it raises IncompatibleClassChangeError itself and returns the
// (done, rs, rv, err) tuple the caller should return verbatim.
func (t *Thread) resolveFieldRef() (f *Field, thrown bool, done bool, rs []Slot, rv bool, err error) {
	idx := int(t.readU16())
	f, rerr := t.machine.ResolveField(t.Method, idx)
	if rerr != nil || f == nil {
		done, rs, rv, err = t.throwRuntime(t.machine.IncompatibleClassChangeError())
		return nil, true, done, rs, rv, err
	}
	return f, false, false, nil, false, nil
}

func (t *Thread) getstatic() (bool, []Slot, bool, error) {
	f, thrown, done, rs, rv, err := t.resolveFieldRef()
	if thrown {
		return done, rs, rv, err
	}
	if f.Class.NeedsInit() {
		did, cerr := t.ClassInit(f.Class, 3)
		if cerr != nil {
			return false, nil, false, cerr
		}
		if did {
			return false, nil, false, nil
		}
	}
	holder := f.Class.Mirror()
	return t.pushFieldValue(holder, f)
}

func (t *Thread) putstatic() (bool, []Slot, bool, error) {
	f, thrown, done, rs, rv, err := t.resolveFieldRef()
	if thrown {
		return done, rs, rv, err
	}
	if f.Class.NeedsInit() {
		did, cerr := t.ClassInit(f.Class, 3)
		if cerr != nil {
			return false, nil, false, cerr
		}
		if did {
			return false, nil, false, nil
		}
	}
	holder := f.Class.Mirror()
	return t.popFieldValue(holder, f)
}

func (t *Thread) getfield() (bool, []Slot, bool, error) {
	f, thrown, done, rs, rv, err := t.resolveFieldRef()
	if thrown {
		return done, rs, rv, err
	}
	obj := t.Stack.PopObject()
	if obj == NullRef {
		return t.throwRuntime(t.machine.NullPointerException())
	}
	return t.pushFieldValue(obj, f)
}

func (t *Thread) putfield() (bool, []Slot, bool, error) {
	f, thrown, done, rs, rv, err := t.resolveFieldRef()
	if thrown {
		return done, rs, rv, err
	}
	// The operand stack holds ..., objectref, value — pop the value by
	// type first so the objectref pop below matches the layout for every
	// width.
	var v1, v2 Slot
	wide := f.TypeCode.IsWide()
	if wide {
		v2 = t.Stack.Pop()
		v1 = t.Stack.Pop()
	} else {
		v1 = t.Stack.Pop()
	}
	obj := t.Stack.PopObject()
	if obj == NullRef {
		return t.throwRuntime(t.machine.NullPointerException())
	}
	if t.machine.FieldWriteGuard != nil {
		if gerr := t.machine.FieldWriteGuard(t, f); gerr != nil {
			return false, nil, false, gerr
		}
	}
	t.storeFieldSlots(obj, f, v1, v2, wide)
	return false, nil, false, nil
}

// pushFieldValue reads obj.f by its declared width and pushes it.
func (t *Thread) pushFieldValue(obj Ref, f *Field) (bool, []Slot, bool, error) {
	switch f.TypeCode {
	case ReturnFloat:
		checkErr(t.Stack.PushFloat(t.machine.GetFloat(obj, f)))
	case ReturnLong:
		checkErr(t.Stack.PushLong(t.machine.GetLong(obj, f)))
	case ReturnDouble:
		checkErr(t.Stack.PushDouble(t.machine.GetDouble(obj, f)))
	case ReturnObject:
		checkErr(t.Stack.PushObject(t.machine.GetObject(obj, f)))
	default:
		checkErr(t.Stack.PushInt(t.machine.GetInt(obj, f)))
	}
	return false, nil, false, nil
}

// popFieldValue pops a value of f's declared width off the stack and
// writes it to obj.f, used by putstatic (putfield pops ahead of the
// null check, see putfield above, so it calls storeFieldSlots directly).
func (t *Thread) popFieldValue(obj Ref, f *Field) (bool, []Slot, bool, error) {
	if t.machine.FieldWriteGuard != nil {
		if err := t.machine.FieldWriteGuard(t, f); err != nil {
			return false, nil, false, err
		}
	}
	switch f.TypeCode {
	case ReturnFloat:
		t.machine.SetFloat(obj, f, t.Stack.PopFloat())
	case ReturnLong:
		t.machine.SetLong(obj, f, t.Stack.PopLong())
	case ReturnDouble:
		t.machine.SetDouble(obj, f, t.Stack.PopDouble())
	case ReturnObject:
		t.machine.SetObject(obj, f, t.Stack.PopObject())
	default:
		t.machine.SetInt(obj, f, t.Stack.PopInt())
	}
	return false, nil, false, nil
}

// storeFieldSlots writes already-popped slots to obj.f, for putfield's
// pop-before-null-check ordering.
func (t *Thread) storeFieldSlots(obj Ref, f *Field, v1, v2 Slot, wide bool) {
	switch f.TypeCode {
	case ReturnFloat:
		t.machine.SetFloat(obj, f, v1.asFloat())
	case ReturnLong:
		t.machine.SetLong(obj, f, recombine(v1, v2))
	case ReturnDouble:
		t.machine.SetDouble(obj, f, slotsToDouble(v1, v2))
	case ReturnObject:
		t.machine.SetObject(obj, f, v1.asObject())
	default:
		t.machine.SetInt(obj, f, v1.asInt())
	}
	_ = wide
}

func recombine(hi, lo Slot) int64 {
	return int64(uint64(uint32(hi.asInt()))<<32 | uint64(uint32(lo.asInt())))
}

func slotsToDouble(hi, lo Slot) float64 {
	return math.Float64frombits(uint64(recombine(hi, lo)))
}

func (t *Thread) opNew() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	cls, err := t.machine.ResolveClassInPool(t.Method, idx)
	if err != nil || cls == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	if cls.NeedsInit() {
		did, cerr := t.ClassInit(cls, 3)
		if cerr != nil {
			return false, nil, false, cerr
		}
		if did {
			return false, nil, false, nil
		}
	}
	obj, merr := t.machine.Make(cls)
	if merr != nil {
		return false, nil, false, merr
	}
	checkErr(t.Stack.PushObject(obj))
	return false, nil, false, nil
}

func (t *Thread) opNewarray() (bool, []Slot, bool, error) {
	kind := ArrayKind(t.readU8())
	n := t.Stack.PopInt()
	if n < 0 {
		return t.throwRuntime(t.machine.NegativeArraySizeException(indexMsg(n)))
	}
	arr, err := t.machine.MakeTypedArray(kind, int(n))
	if err != nil {
		return false, nil, false, err
	}
	checkErr(t.Stack.PushObject(arr))
	return false, nil, false, nil
}

func (t *Thread) opAnewarray() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	if _, err := t.machine.ResolveClassInPool(t.Method, idx); err != nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	n := t.Stack.PopInt()
	if n < 0 {
		return t.throwRuntime(t.machine.NegativeArraySizeException(indexMsg(n)))
	}
	arr, err := t.machine.MakeArray(int(n))
	if err != nil {
		return false, nil, false, err
	}
	checkErr(t.Stack.PushObject(arr))
	return false, nil, false, nil
}

func (t *Thread) opMultianewarray() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	dimCount := int(t.readU8())
	if _, err := t.machine.ResolveClassInPool(t.Method, idx); err != nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	dims := make([]int32, dimCount)
	for i := dimCount - 1; i >= 0; i-- {
		dims[i] = t.Stack.PopInt()
	}
	arr, neg, err := t.buildMultiArray(dims)
	if err != nil {
		return false, nil, false, err
	}
	if neg {
		return t.throwRuntime(t.machine.NegativeArraySizeException("negative dimension"))
	}
	checkErr(t.Stack.PushObject(arr))
	return false, nil, false, nil
}

func (t *Thread) buildMultiArray(dims []int32) (Ref, bool, error) {
	n := dims[0]
	if n < 0 {
		return NullRef, true, nil
	}
	arr, err := t.machine.MakeArray(int(n))
	if err != nil {
		return NullRef, false, err
	}
	if len(dims) > 1 {
		for i := int32(0); i < n; i++ {
			sub, neg, serr := t.buildMultiArray(dims[1:])
			if serr != nil || neg {
				return NullRef, neg, serr
			}
			if serr := t.machine.StoreObject(arr, int(i), sub); serr != nil {
				return NullRef, false, serr
			}
		}
	}
	return arr, false, nil
}

func (t *Thread) opArraylength() (bool, []Slot, bool, error) {
	arr := t.Stack.PopObject()
	if arr == NullRef {
		return t.throwRuntime(t.machine.NullPointerException())
	}
	checkErr(t.Stack.PushInt(t.machine.ArrayLength(arr)))
	return false, nil, false, nil
}

func (t *Thread) opCheckcast() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	cls, err := t.machine.ResolveClassInPool(t.Method, idx)
	if err != nil || cls == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	top := t.Stack.Get(t.Stack.SP() - 1)
	if top.asObject() == NullRef {
		return false, nil, false, nil
	}
	if !t.machine.InstanceOf(cls, top.asObject()) {
		return t.throwRuntime(t.machine.ClassCastException(cls.Name))
	}
	return false, nil, false, nil
}

func (t *Thread) opInstanceof() (bool, []Slot, bool, error) {
	idx := int(t.readU16())
	cls, err := t.machine.ResolveClassInPool(t.Method, idx)
	if err != nil || cls == nil {
		return t.throwRuntime(t.machine.IncompatibleClassChangeError())
	}
	obj := t.Stack.PopObject()
	if obj == NullRef {
		checkErr(t.Stack.PushInt(0))
		return false, nil, false, nil
	}
	if t.machine.InstanceOf(cls, obj) {
		checkErr(t.Stack.PushInt(1))
	} else {
		checkErr(t.Stack.PushInt(0))
	}
	return false, nil, false, nil
}
