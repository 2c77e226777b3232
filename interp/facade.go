package interp

import "fmt"

// This file is the Processor Facade (§4.6): the public surface the
// surrounding runtime (native bridge callbacks, the server package's
// invoke/stack RPCs, the debugger) drives the interpreter through,
// rather than reaching into Thread's dispatch internals directly.

// StackVisitor is called once per live frame during WalkStack, from the
// current frame (depth 0) down to the outermost. Returning false stops
// the walk early.
type StackVisitor func(depth int, m *Method, ip int) bool

// ObjectVisitor is called once per heap root during VisitObjects.
type ObjectVisitor func(r Ref)

// Invoke implements "invoke by method + args array" (§4.6): this (for
// an instance method) and args, already typed by the method's
// signature, are pushed as the callee's argument list before invoke
// runs. The class-init invariant — a non-native virtual method's class
// must be initialized, or initializing on this thread, before its
// first instruction runs — is enforced here rather than relying on the
// caller to have done it.
func (t *Thread) Invoke(m *Method, this Ref, args []Slot) ([]Slot, error) {
	if err := t.pushArgs(m, this, args); err != nil {
		return nil, err
	}
	return t.invokeChecked(m)
}

// InvokeVarargs implements "invoke by method + varargs" (§4.6). Go has
// no native C varargs list to consume, so args are typed dynamically:
// int32, float32, int64, float64 push as the matching primitive; Ref
// pushes as a plain handle unless indirectObjects is set, in which case
// object arguments are supplied as *Ref (pointer-to-handle) — the same
// indirection the slow native path uses so the callee can observe a GC
// relocating the argument mid-call.
func (t *Thread) InvokeVarargs(m *Method, this Ref, indirectObjects bool, args ...any) ([]Slot, error) {
	if !m.IsStatic() {
		if err := t.Stack.PushObject(this); err != nil {
			return nil, err
		}
	}
	for _, a := range args {
		if err := t.pushVararg(a, indirectObjects); err != nil {
			return nil, err
		}
	}
	return t.invokeChecked(m)
}

func (t *Thread) pushVararg(a any, indirectObjects bool) error {
	switch v := a.(type) {
	case int32:
		return t.Stack.PushInt(v)
	case bool:
		if v {
			return t.Stack.PushInt(1)
		}
		return t.Stack.PushInt(0)
	case float32:
		return t.Stack.PushFloat(v)
	case int64:
		return t.Stack.PushLong(v)
	case float64:
		return t.Stack.PushDouble(v)
	case Ref:
		if indirectObjects {
			return fmt.Errorf("interp: varargs indirectObjects requires *Ref, got Ref")
		}
		return t.Stack.PushObject(v)
	case *Ref:
		if !indirectObjects {
			return fmt.Errorf("interp: varargs got *Ref without indirectObjects")
		}
		if v == nil {
			return t.Stack.PushObject(NullRef)
		}
		return t.Stack.PushObject(*v)
	default:
		return fmt.Errorf("interp: unsupported vararg type %T", a)
	}
}

// InvokeSymbolic implements "invoke by symbolic triple" (§4.6): args
// are pushed first, then the method is resolved by name and descriptor
// against a class reached through loader, and only then invoked —
// mirroring the spec's "push arguments first, resolve the method, then
// invoke" ordering, since the resolved Method (not the caller) is what
// determines the frame's parameter footprint.
func (t *Thread) InvokeSymbolic(loader Ref, className, methodName, spec string, this Ref, args []Slot) ([]Slot, error) {
	class, err := t.machine.ResolveClass(loader, []byte(className))
	if err != nil {
		return nil, err
	}
	m, err := t.machine.FindMethodByName(class, methodName, spec)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("interp: no method %s.%s%s", className, methodName, spec)
	}
	if err := t.pushArgs(m, this, args); err != nil {
		return nil, err
	}
	return t.invokeChecked(m)
}

// pushArgs lays out an already-typed argument list for invoke by
// method + args array and by symbolic triple: the receiver (if any)
// followed by each argument slot verbatim.
func (t *Thread) pushArgs(m *Method, this Ref, args []Slot) error {
	if !m.IsStatic() {
		if err := t.Stack.PushObject(this); err != nil {
			return err
		}
	}
	for _, a := range args {
		if err := t.Stack.Push(a); err != nil {
			return err
		}
	}
	return nil
}

// invokeChecked enforces the facade's class-init invariant (§4.6) —
// initClass runs before the native-or-bytecode choice is made, not
// folded into invokeSync, because invokeSync also backs invoke, which
// ClassInit uses to run <clinit> for a class it has already put on the
// class-init list. The invoke* opcodes do not go through invokeSync;
// they run their own ClassInit check and then enterOrNative.
func (t *Thread) invokeChecked(m *Method) ([]Slot, error) {
	if m.Class != nil && m.Class.NeedsInit() && !t.IsInitializing(m.Class) {
		if _, err := t.ClassInit(m.Class, 0); err != nil {
			return nil, err
		}
	}
	return t.invokeSync(m)
}

// WalkStack implements walkStack (§4.6): the live ip is flushed to the
// current frame's save slot (so the visitor sees an accurate value for
// depth 0 too), then frames are visited from the current frame down to
// the outermost.
func (t *Thread) WalkStack(visit StackVisitor) {
	if t.fp < 0 {
		return
	}
	t.Frames[t.fp].IP = t.IP
	for i := t.fp; i >= 0; i-- {
		f := t.Frames[i]
		if !visit(t.fp-i, f.Method, f.IP) {
			return
		}
	}
}

// VisitObjects implements visitObjects (§4.6): the roots owned
// directly by this thread rather than reachable only through the heap
// graph. The currently executing method's class mirror stands in for
// "the current code" object root spec.md describes, since this port
// carries no separate boxed bytecode-array root distinct from the
// class it belongs to.
func (t *Thread) VisitObjects(visit ObjectVisitor) {
	if t.Method != nil && t.Method.Class != nil {
		if mir := t.Method.Class.Mirror(); mir != NullRef {
			visit(mir)
		}
	}
	if t.fp >= 0 {
		t.Frames[t.fp].IP = t.IP
	}
	for i := 0; i < t.Stack.SP(); i++ {
		if s := t.Stack.Get(i); s.Tag == ObjectTag {
			visit(s.asObject())
		}
	}
	if t.ClassInitList != nil {
		for n := t.ClassInitList.top; n != nil; n = n.next {
			if mir := n.class.Mirror(); mir != NullRef {
				visit(mir)
			}
		}
	}
	if t.ClassInitStack != nil {
		for _, c := range t.ClassInitStack.items {
			if mir := c.Mirror(); mir != NullRef {
				visit(mir)
			}
		}
	}
	if t.Pending != NullRef {
		visit(t.Pending)
	}
}

// MakeLocalReference implements makeLocalReference (§4.6): a thin
// wrapper over Stack.PushReference.
func (t *Thread) MakeLocalReference(o Ref) (*Ref, error) {
	return t.Stack.PushReference(o)
}

// DisposeLocalReference implements dispose (§4.6): zeroing the handle
// so a stale pointer into the stack buffer can't be mistaken for a
// live root by a later VisitObjects pass.
func (t *Thread) DisposeLocalReference(ref *Ref) {
	if ref != nil {
		*ref = NullRef
	}
}
