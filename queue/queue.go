// Package queue implements the bounded message/FIFO queue: a fixed
// capacity slot array, a free list and a used list of slot indices, and
// two counting semaphores gating push and pop the way spec.md's
// free_list/used_list/push_semaphore/pop_semaphore description lays it
// out. Like syncx, it adds no internal mutex of its own: list
// manipulation only ever happens while the calling thread's goroutine is
// the one running kernel code.
package queue

import (
	"kernelcore/pool"
	"kernelcore/scheduler"
	"kernelcore/syncx"
)

// Discipline selects how the used list orders pending messages.
type Discipline int

const (
	// FIFODiscipline pops messages in send order regardless of priority.
	FIFODiscipline Discipline = iota
	// PriorityDiscipline pops the highest-priority message first, FIFO
	// among messages of equal priority.
	PriorityDiscipline
)

// slot is one message-queue entry: a payload, its priority tag, and the
// intrusive next-index link of the used list (ordered per Discipline,
// owned by Queue). Free slots are tracked by pool.Pool's own index list.
type slot struct {
	priority uint8
	value    []byte
	next     int32 // -1 when last in the used list
}

const noNext = int32(-1)

// Queue is a fixed-capacity message queue.
type Queue struct {
	discipline Discipline
	slots      *pool.Pool[slot]

	usedHead int32 // -1 when empty
	usedTail int32 // -1 when empty; only meaningful for FIFODiscipline

	popSem  *syncx.Semaphore
	pushSem *syncx.Semaphore
}

// New builds a queue with room for capacity messages.
func New(sched *scheduler.Scheduler, capacity int, discipline Discipline) *Queue {
	return &Queue{
		discipline: discipline,
		slots:      pool.New[slot](capacity),
		usedHead:   noNext,
		usedTail:   noNext,
		popSem:     syncx.NewSemaphore(sched, 0, int64(capacity)),
		pushSem:    syncx.NewSemaphore(sched, int64(capacity), int64(capacity)),
	}
}

// Len returns the number of messages currently queued.
func (q *Queue) Len() int { return q.slots.Len() }

// Cap returns the queue's total capacity.
func (q *Queue) Cap() int { return q.slots.Cap() }

// Push blocks until a free slot is available, then enqueues value at the
// given priority.
func (q *Queue) Push(priority uint8, value []byte) error {
	if err := q.pushSem.Wait(); err != nil {
		return err
	}
	q.enqueue(priority, value)
	return q.popSem.Post()
}

// TryPush enqueues only if a slot is immediately free.
func (q *Queue) TryPush(priority uint8, value []byte) error {
	if err := q.pushSem.TryWait(); err != nil {
		return err
	}
	q.enqueue(priority, value)
	return q.popSem.Post()
}

// PushFor blocks for at most duration ticks waiting for a free slot.
func (q *Queue) PushFor(priority uint8, value []byte, duration uint64) error {
	if err := q.pushSem.WaitFor(duration); err != nil {
		return err
	}
	q.enqueue(priority, value)
	return q.popSem.Post()
}

// PushUntil blocks until deadline waiting for a free slot.
func (q *Queue) PushUntil(priority uint8, value []byte, deadline uint64) error {
	if err := q.pushSem.WaitUntil(deadline); err != nil {
		return err
	}
	q.enqueue(priority, value)
	return q.popSem.Post()
}

// Pop blocks until a message is available, then returns the oldest/
// highest-priority one per the queue's discipline.
func (q *Queue) Pop() (uint8, []byte, error) {
	if err := q.popSem.Wait(); err != nil {
		return 0, nil, err
	}
	priority, value := q.dequeue()
	return priority, value, q.pushSem.Post()
}

// TryPop pops only if a message is immediately available.
func (q *Queue) TryPop() (uint8, []byte, error) {
	if err := q.popSem.TryWait(); err != nil {
		return 0, nil, err
	}
	priority, value := q.dequeue()
	return priority, value, q.pushSem.Post()
}

// PopFor blocks for at most duration ticks waiting for a message.
func (q *Queue) PopFor(duration uint64) (uint8, []byte, error) {
	if err := q.popSem.WaitFor(duration); err != nil {
		return 0, nil, err
	}
	priority, value := q.dequeue()
	return priority, value, q.pushSem.Post()
}

// PopUntil blocks until deadline waiting for a message.
func (q *Queue) PopUntil(deadline uint64) (uint8, []byte, error) {
	if err := q.popSem.WaitUntil(deadline); err != nil {
		return 0, nil, err
	}
	priority, value := q.dequeue()
	return priority, value, q.pushSem.Post()
}

// enqueue claims a free slot and splices it into the used list. The
// caller must already hold a push-semaphore unit, guaranteeing the pool
// has room.
func (q *Queue) enqueue(priority uint8, value []byte) {
	s, idx, err := q.slots.Get()
	if err != nil {
		// Unreachable: pushSem's count never exceeds the pool's capacity.
		panic("queue: slot pool and push semaphore desynchronized")
	}
	s.priority = priority
	s.value = value
	s.next = noNext

	switch q.discipline {
	case PriorityDiscipline:
		q.insertByPriority(idx, s)
	default:
		q.appendFIFO(idx)
	}
}

func (q *Queue) insertByPriority(idx int32, s *slot) {
	if q.usedHead == noNext {
		q.usedHead, q.usedTail = idx, idx
		return
	}
	if s.priority > q.slots.At(q.usedHead).priority {
		s.next = q.usedHead
		q.usedHead = idx
		return
	}
	prev := q.usedHead
	for {
		next := q.slots.At(prev).next
		if next == noNext || s.priority > q.slots.At(next).priority {
			q.slots.At(prev).next = idx
			s.next = next
			if next == noNext {
				q.usedTail = idx
			}
			return
		}
		prev = next
	}
}

func (q *Queue) appendFIFO(idx int32) {
	if q.usedHead == noNext {
		q.usedHead, q.usedTail = idx, idx
		return
	}
	q.slots.At(q.usedTail).next = idx
	q.usedTail = idx
}

// dequeue pops the head of the used list and returns its slot to the
// free list. The caller must already hold a pop-semaphore unit,
// guaranteeing the used list is non-empty.
func (q *Queue) dequeue() (uint8, []byte) {
	idx := q.usedHead
	s := q.slots.At(idx)
	q.usedHead = s.next
	if q.usedHead == noNext {
		q.usedTail = noNext
	}
	priority, value := s.priority, s.value
	q.slots.Put(idx)
	return priority, value
}
