package nativebridge

import "github.com/chazu/classvm/interp"

// Bridge is the interp.NativeInvoker installed on Machine.Native: it
// resolves each native method's descriptor on first use and dispatches
// to the fast or slow calling path per §4.5.
type Bridge struct {
	machine *interp.Machine
}

// NewBridge wraps m's NativeResolver/SystemCaller collaborators as a
// NativeInvoker.
func NewBridge(m *interp.Machine) *Bridge {
	return &Bridge{machine: m}
}

// InvokeNative implements interp.NativeInvoker.
func (b *Bridge) InvokeNative(t *interp.Thread, m *interp.Method) ([]interp.Slot, error) {
	nd, rerr := b.resolve(m)
	if rerr != nil {
		t.Raise(b.machine.UnsatisfiedLinkError(m.Name + ": " + rerr.Error()))
		t.Unwind()
		return nil, nil
	}
	if nd.Fast {
		return fastCall(t, m, nd)
	}
	return slowCall(t, m, nd)
}

// resolve returns m's cached NativeDescriptor, computing and publishing
// it on first use (§4.5's "on first use" descriptor-parse-then-cache
// rule): parse the signature, then resolve the backing symbol.
func (b *Bridge) resolve(m *interp.Method) (*interp.NativeDescriptor, error) {
	if nd := m.Native.Load(); nd != nil {
		return nd, nil
	}
	tags, argTableSize, err := ParseDescriptor(m.Spec, m.IsStatic())
	if err != nil {
		return nil, err
	}
	fn, err := b.machine.ResolveNativeMethod(m)
	if err != nil {
		return nil, err
	}
	nd := &interp.NativeDescriptor{
		Func:         fn,
		ParamTags:    tags,
		ArgTableSize: argTableSize,
		ReturnCode:   m.ReturnCode,
		Fast:         m.VMFlags&interp.VMFlagFastNative != 0,
	}
	m.Native.Store(nd)
	return nd, nil
}

// paramWords reads a method's already-pushed argument list off the
// stack (the caller has not yet popped them; PushFrame's base=sp-pf
// convention applies to native calls too) and consumes it, returning
// the receiver handle (zero if static) and each declared parameter
// widened to one 64-bit word — recombining a wide parameter's two
// stack slots (high word first, per Stack.PushLong) into one word.
func paramWords(t *interp.Thread, m *interp.Method) (this interp.Ref, params []uint64) {
	pf := m.ParameterFootprint
	base := t.Stack.SP() - pf
	i := base
	if !m.IsStatic() {
		this = interp.Ref(t.Stack.Get(i).Value)
		i++
	}
	params = make([]uint64, 0, len(m.ParamCodes))
	for _, pc := range m.ParamCodes {
		lo := t.Stack.Get(i)
		i++
		if pc.IsWide() {
			hi := lo
			lo = t.Stack.Get(i)
			i++
			params = append(params, uint64(uint32(hi.Value))<<32|uint64(uint32(lo.Value)))
			continue
		}
		params = append(params, lo.Value)
	}
	t.Stack.SetSP(base)
	return this, params
}

// thisOrClassWord picks the second ABI prefix word: the receiver handle
// for an instance method, or the defining class's mirror handle for a
// static one (§4.5's "(env, this_or_class)" prefix).
func thisOrClassWord(m *interp.Method, this interp.Ref) uint64 {
	if m.IsStatic() {
		return uint64(m.Class.Mirror())
	}
	return uint64(this)
}

// typeResult widens the raw u64 the system trampoline returns into the
// tagged Slot(s) the caller's operand stack expects, per §4.5's return
// value typing rule (fast path's typed-load-of-a-handle case is not
// distinguished from the plain object case here: this port has no
// separate "unless fast path" indirection to undo, since arguments are
// never indirected on the fast path in the first place).
func typeResult(raw uint64, rc interp.ReturnCode) []interp.Slot {
	switch rc {
	case interp.ReturnVoid:
		return nil
	case interp.ReturnObject:
		return []interp.Slot{{Tag: interp.ObjectTag, Value: raw}}
	case interp.ReturnLong, interp.ReturnDouble:
		return []interp.Slot{
			{Tag: interp.IntTag, Value: uint64(uint32(raw >> 32))},
			{Tag: interp.IntTag, Value: uint64(uint32(raw))},
		}
	case interp.ReturnByte:
		return []interp.Slot{{Tag: interp.IntTag, Value: uint64(uint32(int32(int8(raw))))}}
	case interp.ReturnBoolean:
		v := uint32(0)
		if raw != 0 {
			v = 1
		}
		return []interp.Slot{{Tag: interp.IntTag, Value: uint64(v)}}
	case interp.ReturnChar:
		return []interp.Slot{{Tag: interp.IntTag, Value: uint64(uint16(raw))}}
	case interp.ReturnShort:
		return []interp.Slot{{Tag: interp.IntTag, Value: uint64(uint32(int32(int16(raw))))}}
	default: // int, float: 32-bit, already in the low word
		return []interp.Slot{{Tag: interp.IntTag, Value: uint64(uint32(raw))}}
	}
}
