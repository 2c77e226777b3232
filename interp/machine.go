package interp

import (
	"sync"

	"github.com/petermattis/goid"
	"github.com/tliron/commonlog"
)

// Machine owns the collaborator set and per-process configuration shared
// by every thread. One Machine typically backs one running VM instance.
type Machine struct {
	Collaborators

	// Log is a scoped logger, following the teacher's
	// commonlog.GetLogger(scope) convention.
	Log commonlog.Logger

	// StackSlots sizes every thread's operand/local buffer; see
	// DefaultStackSlots.
	StackSlots int

	// FieldWriteGuard is an optional pluggable write-barrier hook (§9 Open
	// Question): when set, putfield/putstatic call it before the write and
	// abort the write (raising the returned error as an exception) if it
	// returns non-nil. Nil by default, matching the teacher's set-or-default
	// style for optional collaborator hooks (VM.compilerBackend).
	FieldWriteGuard func(t *Thread, f *Field) error

	// Native dispatches invoke* opcodes and invoke's own native path to
	// the fast/slow native bridge (see the nativebridge package). Nil
	// disables native methods entirely: any attempt raises
	// UnsatisfiedLinkError rather than panicking.
	Native NativeInvoker

	// OnOpcode, when set, is called once per decoded instruction before
	// it executes (see the profiler package's Recorder.Hook). Nil by
	// default: an unprofiled VM pays no cost beyond the nil check.
	OnOpcode func(op Opcode)

	threads sync.Map // uint64 -> *Thread
	nextTID uint64
	tidMu   sync.Mutex

	byGoroutine sync.Map // int64 goroutine id -> *Thread
}

// NewMachine constructs a Machine over a collaborator set. If log is nil,
// a scoped logger is obtained from commonlog's default manager.
func NewMachine(c Collaborators, log commonlog.Logger) *Machine {
	if log == nil {
		log = commonlog.GetLogger("classvm.interp")
	}
	return &Machine{Collaborators: c, Log: log, StackSlots: DefaultStackSlots}
}

// NewThread allocates per-thread interpreter state over a fresh id,
// implementing the Processor Facade's "create thread" operation (§4.6).
func (m *Machine) NewThread() *Thread {
	m.tidMu.Lock()
	m.nextTID++
	id := m.nextTID
	m.tidMu.Unlock()

	t := &Thread{
		ID:      id,
		Stack:   NewStack(m.StackSlots),
		fp:      -1,
		machine: m,
	}
	m.threads.Store(id, t)
	m.Log.Debugf("thread %d created, %d stack slots", id, m.StackSlots)
	return t
}

// DropThread releases a thread's registration. It does not tear down any
// frames still on the thread; callers must ensure the thread has
// returned to the facade first.
func (m *Machine) DropThread(t *Thread) {
	m.threads.Delete(t.ID)
}

// Threads returns a snapshot of all live thread ids, used by
// visitObjects-style whole-heap root walks.
func (m *Machine) Threads() []*Thread {
	var out []*Thread
	m.threads.Range(func(_, v any) bool {
		out = append(out, v.(*Thread))
		return true
	})
	return out
}

// BindCurrentGoroutine records t as the interpreter thread running on
// the calling goroutine, following the same goroutine-id-keyed lookup
// the teacher's VM uses for its own per-goroutine interpreter map. The
// facade calls this once before running a thread's dispatch loop;
// collaborators with no explicit thread argument (monitors) recover the
// caller via CurrentThread.
func (m *Machine) BindCurrentGoroutine(t *Thread) {
	m.byGoroutine.Store(goid.Get(), t)
}

// UnbindCurrentGoroutine removes the calling goroutine's binding, called
// when a thread's dispatch loop returns control to its embedder.
func (m *Machine) UnbindCurrentGoroutine() {
	m.byGoroutine.Delete(goid.Get())
}

// CurrentThread returns the Thread bound to the calling goroutine, or
// nil if none is bound.
func (m *Machine) CurrentThread() *Thread {
	v, ok := m.byGoroutine.Load(goid.Get())
	if !ok {
		return nil
	}
	return v.(*Thread)
}
