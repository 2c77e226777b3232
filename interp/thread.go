package interp

import "sync/atomic"

// Thread is one OS-thread's interpreter state: its own stack buffer,
// frame chain, class-init list, and pending-exception slot (§5 — each
// thread owns an independent interpreter; no two threads share a frame
// chain).
type Thread struct {
	ID uint64

	Stack  *Stack
	Frames []*Frame
	fp     int // index into Frames of the current frame, -1 if none

	// runBase is the fp Run() was entered with, saved so a return opcode
	// deep in dispatch_invoke.go can tell whether popping the current
	// frame exits this Run call (fp falls below runBase, done bubbles up
	// to the caller) or merely returns to a caller frame Run already owns
	// (the result gets pushed onto that frame's stack and dispatch keeps
	// looping). Run saves/restores it, so a native callback that reenters
	// Run on the same thread nests correctly.
	runBase int

	// Code, IP, and Method mirror the live "registers" spec.md describes
	// as kept outside the stack and spilled to frame.ip at suspension.
	Code   *Code
	IP     int
	Method *Method

	ClassInitList  *ClassInitList
	ClassInitStack *ClassInitStack

	// Pending is the thread's single pending-exception reference (§9:
	// cause chains are a heap/GC concern, not the interpreter's).
	Pending      Ref
	PendingTrace []TraceFrame

	interrupted atomic.Bool

	// idle marks the thread as parked in a slow native call (§4.5): set
	// for the duration of the blocking system.call trampoline invocation,
	// so a cooperative safepoint scan (e.g. a stop-the-world GC root walk
	// triggered by another thread) can tell this thread's registers are
	// quiescent rather than racing a live dispatch loop.
	idle atomic.Bool

	machine *Machine
}

// SetIdle marks or clears the thread's slow-native idle state.
func (t *Thread) SetIdle(v bool) { t.idle.Store(v) }

// Idle reports whether the thread is currently parked in a slow native call.
func (t *Thread) Idle() bool { return t.idle.Load() }

// Machine returns the owning Machine, giving dispatch code access to
// the shared collaborator set.
func (t *Thread) Machine() *Machine { return t.machine }

// Interrupt sets the thread's cooperative cancellation flag; Wait
// observes it and returns interrupted=true (§5 Cancellation).
func (t *Thread) Interrupt()        { t.interrupted.Store(true) }
func (t *Thread) ClearInterrupt()   { t.interrupted.Store(false) }
func (t *Thread) Interrupted() bool { return t.interrupted.Load() }

// FP returns the current frame index, or -1 if no frame is active.
func (t *Thread) FP() int { return t.fp }
