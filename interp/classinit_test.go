package interp

import "testing"

func TestClassInitListPushPeekPopLIFO(t *testing.T) {
	var l ClassInitList
	if got := l.Peek(); got != nil {
		t.Fatalf("Peek on empty list = %v, want nil", got)
	}

	a := &Class{Name: "A"}
	b := &Class{Name: "B"}
	l.Push(a)
	l.Push(b)

	if got := l.Peek(); got != b {
		t.Fatalf("Peek = %v, want most recently pushed B", got)
	}
	if got := l.Pop(); got != b {
		t.Fatalf("Pop = %v, want B", got)
	}
	if got := l.Pop(); got != a {
		t.Fatalf("Pop = %v, want A", got)
	}
	if got := l.Pop(); got != nil {
		t.Fatalf("Pop on exhausted list = %v, want nil", got)
	}
}

func TestClassInitListEachVisitsMostRecentFirstWithoutMutating(t *testing.T) {
	var l ClassInitList
	a := &Class{Name: "A"}
	b := &Class{Name: "B"}
	c := &Class{Name: "C"}
	l.Push(a)
	l.Push(b)
	l.Push(c)

	var seen []*Class
	l.Each(func(cl *Class) { seen = append(seen, cl) })

	if len(seen) != 3 || seen[0] != c || seen[1] != b || seen[2] != a {
		t.Fatalf("Each order = %v, want [C B A]", seen)
	}
	// Each must not consume the list.
	if got := l.Peek(); got != c {
		t.Fatalf("Peek after Each = %v, want C (list unchanged)", got)
	}
}

func TestClassInitListContains(t *testing.T) {
	var l ClassInitList
	a := &Class{Name: "A"}
	b := &Class{Name: "B"}

	if l.Contains(a) {
		t.Fatal("Contains on empty list reported true")
	}
	l.Push(a)
	if !l.Contains(a) {
		t.Fatal("Contains(a) after Push(a) = false, want true")
	}
	if l.Contains(b) {
		t.Fatal("Contains(b) = true, want false (never pushed)")
	}
}

func TestClassInitStackPushPopContains(t *testing.T) {
	var s ClassInitStack
	a := &Class{Name: "A"}
	b := &Class{Name: "B"}

	if s.Pop() != nil {
		t.Fatal("Pop on empty stack did not return nil")
	}
	s.Push(a)
	s.Push(b)
	if !s.Contains(a) || !s.Contains(b) {
		t.Fatal("Contains missed a pushed class")
	}
	if got := s.Pop(); got != b {
		t.Fatalf("Pop = %v, want B (LIFO)", got)
	}
	if s.Contains(b) {
		t.Fatal("Contains(b) after popping b = true, want false")
	}
}

func TestIsInitializingChecksBothTrackers(t *testing.T) {
	machine := testMachine()
	thread := machine.NewThread()
	a := &Class{Name: "A"}
	b := &Class{Name: "B"}

	if thread.IsInitializing(a) {
		t.Fatal("IsInitializing on a fresh thread reported true")
	}

	thread.ClassInitList = &ClassInitList{}
	thread.ClassInitList.Push(a)
	if !thread.IsInitializing(a) {
		t.Fatal("IsInitializing(a) after pushing onto ClassInitList = false")
	}
	if thread.IsInitializing(b) {
		t.Fatal("IsInitializing(b) = true, want false")
	}

	thread.ClassInitStack = &ClassInitStack{}
	thread.ClassInitStack.Push(b)
	if !thread.IsInitializing(b) {
		t.Fatal("IsInitializing(b) after pushing onto ClassInitStack = false")
	}
}
