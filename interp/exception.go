package interp

// TraceFrame is one entry of a captured stack-trace snapshot: the
// method and the instruction pointer active in it at capture time.
type TraceFrame struct {
	Method *Method
	IP     int
}

// CaptureTrace snapshots (method, ip) for every live frame, from the
// current frame down to the outermost, immediately — not lazily at
// unwind time. This matches the original Avian interpreter's makeTrace,
// which builds the trace at construction so later unwinding (which
// mutates sp and frame.ip) cannot corrupt it.
func (t *Thread) CaptureTrace() []TraceFrame {
	if t.fp < 0 {
		return nil
	}
	if t.fp >= 0 {
		t.Frames[t.fp].IP = t.IP
	}
	trace := make([]TraceFrame, 0, t.fp+1)
	for i := t.fp; i >= 0; i-- {
		f := t.Frames[i]
		trace = append(trace, TraceFrame{Method: f.Method, IP: f.IP})
	}
	return trace
}

// Raise sets the thread's pending-exception slot and attaches a stack
// trace snapshot, the entry point for both `athrow` and any
// collaborator-raised propagated exception (§7 category 1).
func (t *Thread) Raise(exc Ref) {
	t.Pending = exc
	t.PendingTrace = t.CaptureTrace()
}

// findExceptionHandler searches one method's handler table for an entry
// covering ip-1 whose catch type (if any) matches the pending
// exception. A catch-type resolution failure disqualifies only that
// handler, per §4.4/§7 — it never aborts the search.
func (t *Thread) findExceptionHandler(m *Method, ip int, exc Ref) *ExceptionHandler {
	if m.Code == nil {
		return nil
	}
	pc := ip - 1
	for i := range m.Code.ExceptionHandlerTable {
		h := &m.Code.ExceptionHandlerTable[i]
		if pc < h.Start || pc >= h.End {
			continue
		}
		if h.CatchTypePoolIndex == 0 {
			return h // finally
		}
		catchClass, err := t.machine.ResolveClassInPool(m, h.CatchTypePoolIndex)
		if err != nil || catchClass == nil {
			continue
		}
		if t.machine.InstanceOf(catchClass, exc) {
			return h
		}
	}
	return nil
}

// Unwind implements the throw_ path (§4.4, §7): it walks frames from
// the current one down to runBase (the frame Run was entered with, not
// necessarily the thread's outermost frame — a nested invoke, such as a
// native callback into bytecode or classInit's <clinit> call, owns only
// the frames above its own entry point). Popping any frame whose handler
// table has no match, it resumes the dispatcher at the first matching
// handler. It returns handled=false (with Pending still set) if no frame
// at or above runBase matches, at which point the caller that owns this
// Run scope surfaces the exception up to whatever invoked it.
func (t *Thread) Unwind() (handled bool) {
	exc := t.Pending
	if t.fp >= 0 {
		t.Frames[t.fp].IP = t.IP
	}

	for t.fp >= t.runBase {
		frame := t.Frames[t.fp]
		if h := t.findExceptionHandler(frame.Method, frame.IP, exc); h != nil {
			t.Stack.SetSP(frame.Base + frame.Locals)
			t.IP = h.HandlerPC
			t.Code = frame.Method.Code
			t.Method = frame.Method
			_ = t.Stack.PushObject(exc)
			t.Pending = NullRef
			t.PendingTrace = nil
			return true
		}
		t.PopFrame()
	}
	return false
}
