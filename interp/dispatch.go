package interp

import "fmt"

// abort panics on a verifier-bug condition: an unreachable opcode-switch
// default or a tag-mismatch that should have been impossible had the
// class file actually been verified (§7 category 2, Fatal aborts).
// Recovered only at Run's own boundary, never silently swallowed deeper
// in the dispatcher.
func abort(format string, args ...any) {
	panic(fmt.Sprintf("interp: "+format, args...))
}

func (t *Thread) readU8() byte {
	b := t.Code.Body[t.IP]
	t.IP++
	return b
}

func (t *Thread) readI8() int8 { return int8(t.readU8()) }

func (t *Thread) readU16() uint16 {
	hi, lo := t.readU8(), t.readU8()
	return uint16(hi)<<8 | uint16(lo)
}

func (t *Thread) readI16() int16 { return int16(t.readU16()) }

func (t *Thread) readU32() uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v = v<<8 | uint32(t.readU8())
	}
	return v
}

func (t *Thread) readI32() int32 { return int32(t.readU32()) }

// Run executes the dispatch loop starting at the thread's current
// frame until the outermost frame on entry returns or an uncaught
// exception bubbles past the call base (§2, §4.4). The caller must have
// already pushed the entry frame (see Machine facade helpers).
//
// result holds the returned value's slots: empty for void, one slot for
// int/float/object, two (high word first) for long/double, mirroring
// how the same value would sit on the operand stack.
//
// A non-nil error is a fatal abort: a verifier-bug assertion fired. A
// nil error with t.Pending set means the invocation raised an exception
// that no handler on this call's frames caught; the caller surfaces it.
func (t *Thread) Run() (result []Slot, returned bool, err error) {
	savedBase := t.runBase
	t.runBase = t.fp
	defer func() { t.runBase = savedBase }()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	for t.fp >= t.runBase {
		if t.Code == nil {
			// Current frame is a native method reached directly (e.g. the
			// facade invoked a native method as the outermost call); the
			// native bridge already ran it before Run was entered in that
			// case, so reaching here with no code mid-loop is a bug.
			abort("dispatch: no code for frame at fp=%d", t.fp)
		}

		op := Opcode(t.readU8())
		if hook := t.machine.OnOpcode; hook != nil {
			hook(op)
		}
		done, rs, rv, derr := t.step(op)
		if derr != nil {
			return nil, false, derr
		}
		if done {
			if t.fp < t.runBase {
				return rs, rv, nil
			}
			// A return popped back to a frame still within this Run's
			// scope (an inner invoke returned to its caller); keep looping.
		}
	}
	return nil, false, nil
}

// step decodes and executes one instruction. done is true when a
// return/areturn/... popped the frame that was current when Run (or the
// enclosing invoke) was entered, signaling Run to return rs/rv to its
// caller.
func (t *Thread) step(op Opcode) (done bool, rs []Slot, rv bool, err error) {
	switch {
	case isConstOrLocalOpcode(op):
		return t.dispatchConstLocal(op)
	case isControlOpcode(op):
		return t.dispatchControl(op)
	case isInvokeOpcode(op):
		return t.dispatchInvoke(op)
	case isArrayOrFieldOpcode(op):
		return t.dispatchArrayField(op)
	default:
		abort("unknown opcode 0x%02X at ip=%d", op, t.IP-1)
	}
	return false, nil, false, nil
}

// raiseAndUnwind sets the pending exception and immediately attempts to
// unwind to a handler. If none is found within the frames Run owns (the
// exception propagates past runBase), the caller must stop the loop.
func (t *Thread) raiseAndUnwind(exc Ref) (stoppedAtBase bool) {
	t.Raise(exc)
	return !t.Unwind()
}
