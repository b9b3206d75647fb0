// Package demo builds the seed scenarios used to exercise a running
// kernelcore scheduler end to end: priority inversion/inheritance,
// recursive mutex saturation, a timed semaphore wait, a producer/
// consumer condition variable, a bounded message queue, and a periodic
// software timer. Each scenario boots its own scheduler, runs to
// completion, and reports what it observed.
//
// Scenarios drive the tick source themselves rather than through
// arch/host's wall-clock adapter: the idle thread spins calling
// Scheduler.TickISR whenever nothing else is runnable, the same pattern
// the kernel packages' own tests use to make timeout-based waits
// resolve deterministically instead of racing a real clock.
package demo

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kernelcore/arch"
	"kernelcore/config"
	"kernelcore/kstack"
	"kernelcore/queue"
	"kernelcore/scheduler"
	"kernelcore/syncx"
	"kernelcore/thread"
	"kernelcore/timer"
)

// Result is a scenario's report: the log of events it observed, in the
// order they happened, plus whether the scenario's expectation held.
type Result struct {
	Name   string
	Events []string
	Passed bool
}

func (r Result) String() string {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	s := fmt.Sprintf("[%s] %s\n", status, r.Name)
	for _, e := range r.Events {
		s += "  " + e + "\n"
	}
	return s
}

// recorder collects timestamped events from multiple thread goroutines.
// Unlike the kernel packages it drives, a recorder is plain
// application-level bookkeeping rather than kernel state mutated only
// while one thread's goroutine is running, so it carries its own mutex.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) log(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// noopAdapter satisfies arch.Adapter without a live tick source or real
// interrupt masking; every scenario advances ticks explicitly via
// Scheduler.TickISR from its idle thread instead.
type noopAdapter struct {
	mainStack []byte
}

func (noopAdapter) DisableInterruptMasking() arch.MaskState              { return 0 }
func (noopAdapter) EnableInterruptMasking() arch.MaskState               { return 0 }
func (noopAdapter) RestoreInterruptMasking(arch.MaskState)               {}
func (noopAdapter) InitializeStack(*kstack.Stack, func()) error          { return nil }
func (noopAdapter) RequestContextSwitch()                                {}
func (noopAdapter) StartScheduling(arch.TickHandler, arch.SwitchHandler) {}
func (a noopAdapter) GetMainStack() []byte                               { return a.mainStack }

// boot constructs a scheduler, a main thread observing a borrowed boot
// stack, and an idle thread that calls TickISR until done is closed.
func boot(cfg config.Config, done <-chan struct{}) (*scheduler.Scheduler, *thread.TCB, *thread.TCB) {
	adapter := noopAdapter{mainStack: make([]byte, int(cfg.MainThreadStackSize))}
	sched := scheduler.New(cfg, adapter)

	idle := thread.New("idle", kstack.NewOwned(int(cfg.IdleThreadStackSize), int(cfg.StackGuardSize)), 0, thread.Fifo, 0, nil)
	idle.Entry = func() {
		for {
			select {
			case <-done:
				return
			default:
				sched.TickISR()
			}
		}
	}
	main := thread.NewMain("main", kstack.NewBorrowed(adapter.GetMainStack()), cfg.MainThreadPriority)
	return sched, main, idle
}

// run builds the scenario's threads from inside main's entry, joins
// every one of them, then signals idle to stop driving ticks. It blocks
// until that has happened or the safety-net timeout elapses.
func run(cfg config.Config, build func(sched *scheduler.Scheduler) []*thread.TCB) error {
	done := make(chan struct{})
	finished := make(chan struct{})
	sched, main, idle := boot(cfg, done)

	main.Entry = func() {
		for _, t := range build(sched) {
			sched.Join(t)
		}
		close(finished)
		close(done)
	}

	if err := sched.Init(main, idle); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("scenario did not complete within the safety-net timeout")
	}
}

// Names lists every seed scenario in a stable order.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var scenarios = map[string]func(config.Config) (Result, error){
	"s1": RunPriorityInversion,
	"s2": RunRecursiveMutex,
	"s3": RunTimedSemaphore,
	"s4": RunConditionVariable,
	"s5": RunQueueOverflow,
	"s6": RunSoftwareTimer,
}

// Run dispatches to the named scenario.
func Run(name string, cfg config.Config) (Result, error) {
	fn, ok := scenarios[name]
	if !ok {
		return Result{}, fmt.Errorf("unknown scenario %q (known: %v)", name, Names())
	}
	return fn(cfg)
}

// RunPriorityInversion is S1: L (prio 1) holds a PI mutex and sleeps 1
// tick inside its critical section; M (prio 2) spins the whole time; H
// (prio 3) blocks on the mutex. Expected order: L releases, H acquires
// immediately, M only finishes after both.
func RunPriorityInversion(cfg config.Config) (Result, error) {
	rec := &recorder{}

	build := func(sched *scheduler.Scheduler) []*thread.TCB {
		mtx := syncx.NewMutex(sched, syncx.PriorityInheritance, syncx.Normal, 0, 0)
		low := thread.New("L", kstack.NewOwned(4096, 32), 1, thread.Fifo, 0, nil)
		mid := thread.New("M", kstack.NewOwned(4096, 32), 2, thread.Fifo, 0, nil)
		high := thread.New("H", kstack.NewOwned(4096, 32), 3, thread.Fifo, 0, nil)

		low.Entry = func() {
			mtx.Lock()
			rec.log("L acquired mutex")
			sched.SleepFor(2)
			rec.log("L releasing mutex")
			mtx.Unlock()
			rec.log("L done")
		}
		mid.Entry = func() {
			for i := 0; i < 4; i++ {
				sched.Yield()
			}
			rec.log("M done")
		}
		high.Entry = func() {
			sched.SleepFor(1) // let L acquire the mutex first
			rec.log("H waiting for mutex")
			mtx.Lock()
			rec.log("H acquired mutex")
			mtx.Unlock()
			rec.log("H done")
		}

		sched.Add(low)
		sched.Add(mid)
		sched.Add(high)
		return []*thread.TCB{low, mid, high}
	}

	if err := run(cfg, build); err != nil {
		return Result{}, err
	}

	events := rec.snapshot()
	hAcquired := indexOf(events, "H acquired mutex")
	mDone := indexOf(events, "M done")
	lReleasing := indexOf(events, "L releasing mutex")
	passed := hAcquired >= 0 && mDone >= 0 && lReleasing >= 0 &&
		hAcquired < mDone && lReleasing < hAcquired
	return Result{Name: "S1 priority inversion", Events: events, Passed: passed}, nil
}

// RunRecursiveMutex is S2: four successive locks against RecursiveMax=3
// return nil, nil, nil, ResourceLimit; four unlocks return nil, nil, nil,
// NotPermitted once the mutex is no longer owned by the caller.
func RunRecursiveMutex(cfg config.Config) (Result, error) {
	rec := &recorder{}

	build := func(sched *scheduler.Scheduler) []*thread.TCB {
		mtx := syncx.NewMutex(sched, syncx.ProtocolNone, syncx.Recursive, 0, 3)
		worker := thread.New("worker", kstack.NewOwned(4096, 32), 1, thread.Fifo, 0, nil)
		worker.Entry = func() {
			for i := 0; i < 4; i++ {
				rec.log("lock #%d -> %v", i+1, mtx.Lock())
			}
			for i := 0; i < 4; i++ {
				rec.log("unlock #%d -> %v", i+1, mtx.Unlock())
			}
		}
		sched.Add(worker)
		return []*thread.TCB{worker}
	}

	if err := run(cfg, build); err != nil {
		return Result{}, err
	}

	events := rec.snapshot()
	passed := len(events) == 8 &&
		contains(events[3], "recursion count would exceed configured maximum") &&
		contains(events[7], "unlock by thread that does not own the mutex")
	return Result{Name: "S2 recursive mutex", Events: events, Passed: passed}, nil
}

// RunTimedSemaphore is S3: a semaphore at value 0, one waiter calls
// WaitFor(10) with no Post ever arriving; it must return Timeout with a
// tick-count delta of at least 10.
func RunTimedSemaphore(cfg config.Config) (Result, error) {
	rec := &recorder{}
	var delta uint64

	build := func(sched *scheduler.Scheduler) []*thread.TCB {
		sem := syncx.NewSemaphore(sched, 0, 0)
		waiter := thread.New("waiter", kstack.NewOwned(4096, 32), 1, thread.Fifo, 0, nil)
		waiter.Entry = func() {
			start := sched.TickCount()
			err := sem.WaitFor(10)
			delta = sched.TickCount() - start
			rec.log("WaitFor(10) -> %v after %d ticks", err, delta)
		}
		sched.Add(waiter)
		return []*thread.TCB{waiter}
	}

	if err := run(cfg, build); err != nil {
		return Result{}, err
	}

	events := rec.snapshot()
	passed := len(events) == 1 && contains(events[0], "deadline reached before unit became available") && delta >= 10
	return Result{Name: "S3 timed semaphore wait", Events: events, Passed: passed}, nil
}

// RunConditionVariable is S4: a producer posts 100 messages into a
// mutex+CV-guarded deque; a consumer waits on the CV and must observe
// exactly 100 messages in FIFO order with no deadlock.
func RunConditionVariable(cfg config.Config) (Result, error) {
	rec := &recorder{}
	var deque []int
	const total = 100

	build := func(sched *scheduler.Scheduler) []*thread.TCB {
		mtx := syncx.NewMutex(sched, syncx.ProtocolNone, syncx.Normal, 0, 0)
		cond := syncx.NewCond(sched)
		producer := thread.New("producer", kstack.NewOwned(4096, 32), 1, thread.Fifo, 0, nil)
		consumer := thread.New("consumer", kstack.NewOwned(4096, 32), 1, thread.Fifo, 0, nil)

		producer.Entry = func() {
			for i := 0; i < total; i++ {
				mtx.Lock()
				deque = append(deque, i)
				cond.NotifyOne()
				mtx.Unlock()
				sched.Yield()
			}
		}
		consumer.Entry = func() {
			received := 0
			inOrder := true
			for received < total {
				mtx.Lock()
				for len(deque) == 0 {
					cond.Wait(mtx)
				}
				value := deque[0]
				deque = deque[1:]
				mtx.Unlock()
				if value != received {
					inOrder = false
				}
				received++
			}
			rec.log("consumer received %d messages, in order: %v", received, inOrder)
		}

		sched.Add(consumer)
		sched.Add(producer)
		return []*thread.TCB{producer, consumer}
	}

	if err := run(cfg, build); err != nil {
		return Result{}, err
	}

	events := rec.snapshot()
	passed := len(events) == 1 && contains(events[0], "received 100") && contains(events[0], "in order: true")
	return Result{Name: "S4 condition variable", Events: events, Passed: passed}, nil
}

// RunQueueOverflow is S5: a capacity-4 queue, five try_push calls (first
// four succeed, fifth returns Busy), then one pop frees a slot so the
// next try_push succeeds again.
func RunQueueOverflow(cfg config.Config) (Result, error) {
	rec := &recorder{}

	build := func(sched *scheduler.Scheduler) []*thread.TCB {
		q := queue.New(sched, 4, queue.FIFODiscipline)
		worker := thread.New("worker", kstack.NewOwned(4096, 32), 1, thread.Fifo, 0, nil)
		worker.Entry = func() {
			for i := 0; i < 5; i++ {
				err := q.TryPush(0, []byte(fmt.Sprintf("msg-%d", i)))
				rec.log("try_push #%d -> %v", i+1, err)
			}
			if _, _, err := q.TryPop(); err != nil {
				rec.log("pop -> %v", err)
			} else {
				rec.log("pop -> ok")
			}
			err := q.TryPush(0, []byte("msg-5"))
			rec.log("try_push after pop -> %v", err)
		}
		sched.Add(worker)
		return []*thread.TCB{worker}
	}

	if err := run(cfg, build); err != nil {
		return Result{}, err
	}

	events := rec.snapshot()
	passed := len(events) == 7 &&
		contains(events[0], "nil") && contains(events[1], "nil") &&
		contains(events[2], "nil") && contains(events[3], "nil") &&
		contains(events[4], "no units available") &&
		contains(events[6], "nil")
	return Result{Name: "S5 message queue overflow", Events: events, Passed: passed}, nil
}

// RunSoftwareTimer is S6: a periodic 5-tick timer armed 5 ticks from the
// starting tick fires three times, five ticks apart; cancelling from
// inside its own callback on the third firing prevents a fourth.
func RunSoftwareTimer(cfg config.Config) (Result, error) {
	rec := &recorder{}
	sup := timer.NewSupervisor()

	build := func(sched *scheduler.Scheduler) []*thread.TCB {
		driver := thread.New("driver", kstack.NewOwned(4096, 32), 1, thread.Fifo, 0, nil)
		driver.Entry = func() {
			fireCount := 0
			var handle *timer.Timer
			handle = sup.Arm(sched.TickCount()+5, 5, func() {
				fireCount++
				rec.log("fired at tick %d (count %d)", sched.TickCount(), fireCount)
				if fireCount == 3 {
					sup.Disarm(handle)
				}
			})
			for i := 0; i < 25; i++ {
				sched.SleepFor(1)
				sup.Tick(sched.TickCount())
			}
			rec.log("total firings: %d", fireCount)
		}
		sched.Add(driver)
		return []*thread.TCB{driver}
	}

	if err := run(cfg, build); err != nil {
		return Result{}, err
	}

	events := rec.snapshot()
	passed := len(events) == 4 &&
		contains(events[0], "count 1") &&
		contains(events[1], "count 2") &&
		contains(events[2], "count 3") &&
		contains(events[3], "total firings: 3")
	return Result{Name: "S6 software timer", Events: events, Passed: passed}, nil
}

func indexOf(events []string, substr string) int {
	for i, e := range events {
		if strings.Contains(e, substr) {
			return i
		}
	}
	return -1
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
