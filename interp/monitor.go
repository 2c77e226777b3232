package interp

import (
	"errors"
	"sync/atomic"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// ErrNotMonitorOwner is returned by Wait when the calling thread does
// not hold the monitor it is waiting on.
var ErrNotMonitorOwner = errors.New("interp: thread does not own monitor")

// monitorNode is one entry of the acquire queue.
type monitorNode struct {
	next  atomic.Pointer[monitorNode]
	t     *Thread
	ready chan struct{}
}

// acquireQueue is a Michael-Scott two-lock FIFO queue: a thread appends
// at the tail under tailLock, the releasing thread polls the head under
// headLock, giving wait-free enqueue/dequeue under their respective
// locks and FIFO hand-off fairness (§5 Monitor discipline).
type acquireQueue struct {
	head, tail          atomic.Pointer[monitorNode]
	headLock, tailLock  deadlock.Mutex
}

func newAcquireQueue() *acquireQueue {
	dummy := &monitorNode{}
	q := &acquireQueue{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

func (q *acquireQueue) enqueue(n *monitorNode) {
	q.tailLock.Lock()
	q.tail.Load().next.Store(n)
	q.tail.Store(n)
	q.tailLock.Unlock()
}

// dequeue pops the next waiter, or nil if the queue is empty.
func (q *acquireQueue) dequeue() *monitorNode {
	q.headLock.Lock()
	defer q.headLock.Unlock()
	h := q.head.Load()
	next := h.next.Load()
	if next == nil {
		return nil
	}
	q.head.Store(next)
	return next
}

// waitNode is one entry of a monitor's wait list.
type waitNode struct {
	t       *Thread
	ready   chan struct{}
	removed atomic.Bool
	next    *waitNode
}

// monitor is a reentrant lock + FIFO condition queue associated 1:1
// with an object. The acquire path is the lock-free-ish two-lock queue
// above; the wait list is a separate singly linked FIFO that only the
// current owner ever mutates, per §5's "protected by the monitor owner
// invariant".
type monitor struct {
	owner atomic.Uint64 // thread id, 0 = unowned
	depth int           // valid only while owner != 0; mutated only by the owner

	queue *acquireQueue

	waitMu         deadlock.Mutex // guards waitHead/waitTail against the rare cross-thread timeout removal
	waitHead, waitTail *waitNode
}

func newMonitor() *monitor {
	return &monitor{queue: newAcquireQueue()}
}

func (m *monitor) acquire(t *Thread) {
	if m.owner.CompareAndSwap(0, t.ID) {
		m.depth = 1
		return
	}
	if m.owner.Load() == t.ID {
		m.depth++
		return
	}
	n := &monitorNode{t: t, ready: make(chan struct{})}
	m.queue.enqueue(n)
	<-n.ready // idle until handed ownership by a release/notify
	m.depth = 1
}

// handoff transfers ownership to the next FIFO waiter, or clears the
// owner word if the queue is empty. Called with the monitor effectively
// unowned (depth already dropped to 0).
func (m *monitor) handoff() {
	if next := m.queue.dequeue(); next != nil {
		m.owner.Store(next.t.ID)
		close(next.ready)
		return
	}
	m.owner.Store(0)
}

func (m *monitor) release(t *Thread) error {
	if m.owner.Load() != t.ID {
		return ErrNotMonitorOwner
	}
	m.depth--
	if m.depth > 0 {
		return nil
	}
	m.handoff()
	return nil
}

func (m *monitor) appendWaiter(n *waitNode) {
	m.waitMu.Lock()
	if m.waitTail == nil {
		m.waitHead, m.waitTail = n, n
	} else {
		m.waitTail.next = n
		m.waitTail = n
	}
	m.waitMu.Unlock()
}

func (m *monitor) popWaiter() *waitNode {
	m.waitMu.Lock()
	defer m.waitMu.Unlock()
	for m.waitHead != nil {
		n := m.waitHead
		m.waitHead = n.next
		if m.waitHead == nil {
			m.waitTail = nil
		}
		if n.removed.CompareAndSwap(false, true) {
			return n
		}
	}
	return nil
}

func (m *monitor) wait(t *Thread, ms int64) (bool, error) {
	if m.owner.Load() != t.ID {
		return false, ErrNotMonitorOwner
	}
	savedDepth := m.depth

	n := &waitNode{t: t, ready: make(chan struct{})}
	m.appendWaiter(n)

	// release atomically with joining the wait list: the wait list
	// append above happened while still holding the monitor, so no
	// notify can race ahead of this thread joining.
	m.depth = 0
	m.handoff()

	interrupted := false
	if ms > 0 {
		select {
		case <-n.ready:
		case <-time.After(time.Duration(ms) * time.Millisecond):
			n.removed.CompareAndSwap(false, true)
		}
	} else {
		for {
			if t.Interrupted() {
				interrupted = true
				n.removed.CompareAndSwap(false, true)
				break
			}
			select {
			case <-n.ready:
			case <-time.After(50 * time.Millisecond):
				continue
			}
			break
		}
	}

	m.acquire(t)
	m.depth = savedDepth
	return interrupted, nil
}

func (m *monitor) notify() {
	for {
		n := m.popWaiter()
		if n == nil {
			return
		}
		close(n.ready)
		return
	}
}

func (m *monitor) notifyAll() {
	for {
		n := m.popWaiter()
		if n == nil {
			return
		}
		close(n.ready)
	}
}

// MonitorTable is a reference MonitorManager implementation: a
// process-wide registry of per-object monitors, grounded in the
// teacher's mutexRegistry (a map behind a RWMutex, lazily populated).
// Embedding runtimes may use it directly or supply their own
// MonitorManager if monitors are stored on the object header instead.
//
// §6 specifies the collaborator signature as acquire(obj) with no
// explicit calling thread, the same shape the teacher's own VM uses for
// its per-goroutine interpreter lookup (vm.go's `interpreters
// sync.Map`, keyed by goroutine id). MonitorTable follows the same
// idiom: the calling thread is recovered from the current goroutine via
// Machine.CurrentThread rather than threaded through every call.
type MonitorTable struct {
	machine *Machine
	mu      deadlock.RWMutex
	byRef   map[Ref]*monitor
}

func NewMonitorTable(m *Machine) *MonitorTable {
	return &MonitorTable{machine: m, byRef: make(map[Ref]*monitor)}
}

func (mt *MonitorTable) monitorFor(obj Ref) *monitor {
	mt.mu.RLock()
	m, ok := mt.byRef[obj]
	mt.mu.RUnlock()
	if ok {
		return m
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if m, ok = mt.byRef[obj]; ok {
		return m
	}
	m = newMonitor()
	mt.byRef[obj] = m
	return m
}

func (mt *MonitorTable) currentThread() *Thread {
	t := mt.machine.CurrentThread()
	if t == nil {
		panic("interp: monitor op called off an interpreter goroutine")
	}
	return t
}

func (mt *MonitorTable) Acquire(obj Ref) error {
	mt.monitorFor(obj).acquire(mt.currentThread())
	return nil
}

func (mt *MonitorTable) Release(obj Ref) error {
	return mt.monitorFor(obj).release(mt.currentThread())
}

func (mt *MonitorTable) Wait(obj Ref, ms int64) (bool, error) {
	return mt.monitorFor(obj).wait(mt.currentThread(), ms)
}

func (mt *MonitorTable) Notify(obj Ref) error {
	mt.monitorFor(obj).notify()
	return nil
}

func (mt *MonitorTable) NotifyAll(obj Ref) error {
	mt.monitorFor(obj).notifyAll()
	return nil
}
