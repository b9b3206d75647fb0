package syncx

import (
	"testing"
	"time"

	"kernelcore/config"
	"kernelcore/kerrors"
	"kernelcore/scheduler"
	"kernelcore/thread"
)

func TestSemaphore_TryWaitConsumesAvailableUnit(t *testing.T) {
	sched := scheduler.New(config.Default(), fakeAdapter{})
	sem := NewSemaphore(sched, 1, 0)

	if err := sem.TryWait(); err != nil {
		t.Fatalf("TryWait() = %v, want nil", err)
	}
	if sem.Value() != 0 {
		t.Errorf("Value() = %d, want 0", sem.Value())
	}
}

func TestSemaphore_TryWaitOnEmptyReturnsBusy(t *testing.T) {
	sched := scheduler.New(config.Default(), fakeAdapter{})
	sem := NewSemaphore(sched, 0, 0)

	if err := sem.TryWait(); !kerrors.IsKind(err, kerrors.Busy) {
		t.Errorf("TryWait() on empty = %v, want Busy", err)
	}
}

func TestSemaphore_PostOnFullWithMaxReturnsOverflow(t *testing.T) {
	sched := scheduler.New(config.Default(), fakeAdapter{})
	sem := NewSemaphore(sched, 2, 2)

	if err := sem.Post(); !kerrors.IsKind(err, kerrors.Overflow) {
		t.Errorf("Post() at max = %v, want Overflow", err)
	}
}

func TestSemaphore_PostUnblocksWaiterWithoutChangingValue(t *testing.T) {
	sched := scheduler.New(config.Default(), fakeAdapter{})
	sem := NewSemaphore(sched, 0, 0)

	worker := newTCB("worker", 5, thread.Fifo)
	idle := newTCB("idle", 0, thread.Fifo)
	resultCh := make(chan error, 1)

	worker.Entry = func() {
		resultCh <- sem.Wait()
	}
	idle.Entry = func() {
		sem.Post()
		<-make(chan struct{})
	}

	if err := sched.Init(worker, idle); err != nil {
		t.Fatalf("Init: %v", err)
	}

	select {
	case err := <-resultCh:
		if err != nil {
			t.Errorf("Wait() after Post = %v, want nil", err)
		}
		if sem.Value() != 0 {
			t.Errorf("Value() after handoff = %d, want 0 (unit handed directly to waiter)", sem.Value())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker was never woken by Post")
	}
}

func TestSemaphore_WaitForTimesOutWithNoPost(t *testing.T) {
	sched := scheduler.New(config.Default(), fakeAdapter{})
	sem := NewSemaphore(sched, 0, 0)

	worker := newTCB("worker", 5, thread.Fifo)
	idle := newTCB("idle", 0, thread.Fifo)
	resultCh := make(chan error, 1)

	worker.Entry = func() {
		resultCh <- sem.WaitFor(5)
	}
	idle.Entry = func() {
		for i := 0; i < 10; i++ {
			sched.TickISR()
		}
		<-make(chan struct{})
	}

	if err := sched.Init(worker, idle); err != nil {
		t.Fatalf("Init: %v", err)
	}

	select {
	case err := <-resultCh:
		if !kerrors.IsKind(err, kerrors.Timeout) {
			t.Errorf("WaitFor() with no post = %v, want Timeout", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker was never woken by timeout")
	}
}
