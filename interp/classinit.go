package interp

// classInitNode is one link of a per-thread singly linked list; a class
// appears on it for exactly the duration of its <clinit> activation on
// this thread (§3 Class-init list).
type classInitNode struct {
	class *Class
	next  *classInitNode
}

// ClassInitList is the per-thread class-initialization tracker (§4.3).
type ClassInitList struct {
	top *classInitNode
}

func (l *ClassInitList) Push(c *Class) {
	l.top = &classInitNode{class: c, next: l.top}
}

// Peek returns the most recently pushed class, or nil if empty.
func (l *ClassInitList) Peek() *Class {
	if l.top == nil {
		return nil
	}
	return l.top.class
}

// Pop removes the most recently pushed class.
func (l *ClassInitList) Pop() *Class {
	if l.top == nil {
		return nil
	}
	c := l.top.class
	l.top = l.top.next
	return c
}

// Each visits every class on the list from most-recently-pushed to
// least, without mutating it — the non-destructive counterpart to
// Peek/Pop, used by wire.FromClassInitList to build a snapshot.
func (l *ClassInitList) Each(visit func(*Class)) {
	for n := l.top; n != nil; n = n.next {
		visit(n.class)
	}
}

// Contains reports whether c is anywhere on the list, walking from the
// most recent entry.
func (l *ClassInitList) Contains(c *Class) bool {
	for n := l.top; n != nil; n = n.next {
		if n.class == c {
			return true
		}
	}
	return false
}

// ClassInitStack is a separate nested stack of classes mid-init,
// consulted by isInitializing alongside ClassInitList so that reflective
// entry paths (which re-enter the interpreter without going through the
// normal frame chain) see consistent answers (§4.3).
type ClassInitStack struct {
	items []*Class
}

func (s *ClassInitStack) Push(c *Class) { s.items = append(s.items, c) }

func (s *ClassInitStack) Pop() *Class {
	if len(s.items) == 0 {
		return nil
	}
	c := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return c
}

func (s *ClassInitStack) Contains(c *Class) bool {
	for _, x := range s.items {
		if x == c {
			return true
		}
	}
	return false
}

// IsInitializing reports whether c is currently mid-<clinit> on this
// thread, via either tracker (§4.3).
func (t *Thread) IsInitializing(c *Class) bool {
	if t.ClassInitList != nil && t.ClassInitList.Contains(c) {
		return true
	}
	if t.ClassInitStack != nil && t.ClassInitStack.Contains(c) {
		return true
	}
	return false
}

// ClassInit implements §4.3: before executing the first instruction of
// any method, and before any opcode that references a class not yet
// initialized, the dispatcher calls this. If it returns true, the
// caller must stop decoding the triggering instruction immediately —
// ClassInit has already rewound ip and run <clinit> to completion
// through invoke's nested Run, so the dispatch loop's next iteration
// re-executes the triggering instruction. <clinit> is not entered as a
// frame of the caller's own dispatch loop; it runs on a nested Go call.
func (t *Thread) ClassInit(c *Class, ipRewindBytes int) (bool, error) {
	if !c.NeedsInit() {
		return false, nil
	}
	if !t.machine.PreInitClass(c, t) {
		return false, nil
	}

	if t.ClassInitList == nil {
		t.ClassInitList = &ClassInitList{}
	}
	t.ClassInitList.Push(c)
	t.IP -= ipRewindBytes

	init := c.Initializer
	if init == nil {
		// No <clinit>: nothing to run. The list entry is popped before
		// postInitClass runs, the same order PopFrame uses for <clinit>.
		t.ClassInitList.Pop()
		t.machine.PostInitClass(c, t)
		t.IP += ipRewindBytes
		return false, nil
	}

	if err := t.invoke(init); err != nil {
		return false, err
	}
	return true, nil
}
