package interp

import (
	"sync"
	"testing"
	"time"
)

func newMonitorTestMachine() (*Machine, *MonitorTable) {
	m := NewMachine(Collaborators{}, nil)
	mt := NewMonitorTable(m)
	m.MonitorManager = mt
	return m, mt
}

func TestMonitorAcquireReleaseReentrant(t *testing.T) {
	machine, _ := newMonitorTestMachine()
	thread := machine.NewThread()
	machine.BindCurrentGoroutine(thread)
	defer machine.UnbindCurrentGoroutine()

	obj := Ref(1)
	if err := machine.Acquire(obj); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := machine.Acquire(obj); err != nil {
		t.Fatalf("reentrant Acquire: %v", err)
	}
	if err := machine.Release(obj); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := machine.Release(obj); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	// A third release with no outstanding depth is not this thread's to
	// give back.
	if err := machine.Release(obj); err != ErrNotMonitorOwner {
		t.Fatalf("over-release error = %v, want ErrNotMonitorOwner", err)
	}
}

func TestMonitorExcludesOtherThread(t *testing.T) {
	machine, _ := newMonitorTestMachine()
	obj := Ref(2)

	owner := machine.NewThread()
	acquired := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		machine.BindCurrentGoroutine(owner)
		defer machine.UnbindCurrentGoroutine()
		if err := machine.Acquire(obj); err != nil {
			t.Errorf("owner Acquire: %v", err)
		}
		close(acquired)
		<-release
		if err := machine.Release(obj); err != nil {
			t.Errorf("owner Release: %v", err)
		}
	}()
	<-acquired

	contender := machine.NewThread()
	gotAcquire := make(chan struct{})
	go func() {
		machine.BindCurrentGoroutine(contender)
		defer machine.UnbindCurrentGoroutine()
		machine.Acquire(obj)
		close(gotAcquire)
	}()

	select {
	case <-gotAcquire:
		t.Fatal("contender acquired the monitor while the owner still held it")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()

	select {
	case <-gotAcquire:
	case <-time.After(time.Second):
		t.Fatal("contender never acquired the monitor after release")
	}
}

func TestMonitorNotifyWakesWaiter(t *testing.T) {
	machine, _ := newMonitorTestMachine()
	obj := Ref(3)

	waiter := machine.NewThread()
	woke := make(chan struct{})
	go func() {
		machine.BindCurrentGoroutine(waiter)
		defer machine.UnbindCurrentGoroutine()
		machine.Acquire(obj)
		machine.Wait(obj, 0)
		machine.Release(obj)
		close(woke)
	}()

	// Give the waiter time to join the monitor's wait queue before notifying.
	time.Sleep(20 * time.Millisecond)

	notifier := machine.NewThread()
	machine.BindCurrentGoroutine(notifier)
	machine.Acquire(obj)
	if err := machine.Notify(obj); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	machine.Release(obj)
	machine.UnbindCurrentGoroutine()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after Notify")
	}
}

func TestMonitorOpOffInterpreterGoroutinePanics(t *testing.T) {
	machine, _ := newMonitorTestMachine()
	defer func() {
		if recover() == nil {
			t.Fatal("Acquire with no bound thread did not panic")
		}
	}()
	machine.Acquire(Ref(4))
}
