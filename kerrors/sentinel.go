// Package kerrors provides predefined sentinel errors for common failure cases.
package kerrors

// Thread lifecycle errors.
var (
	// ErrNotRunnable indicates an operation expected the thread to be
	// runnable but it was not.
	ErrNotRunnable = &KernelError{
		Kind:   InvalidArgument,
		Detail: "thread is not in runnable state",
	}

	// ErrNotSuspended indicates resume() was called on a thread that is
	// not suspended.
	ErrNotSuspended = &KernelError{
		Kind:   InvalidArgument,
		Detail: "thread is not in suspended state",
	}

	// ErrSelfJoin indicates a thread attempted to join itself.
	ErrSelfJoin = &KernelError{
		Kind:   Deadlock,
		Detail: "thread cannot join itself",
	}

	// ErrAlreadyStarted indicates add() was called on a thread that is
	// not in the "new" state.
	ErrAlreadyStarted = &KernelError{
		Kind:   InvalidArgument,
		Detail: "thread has already been started",
	}
)

// Mutex errors.
var (
	// ErrMutexDeadlock indicates an error-checking mutex was relocked by
	// its current owner.
	ErrMutexDeadlock = &KernelError{
		Kind:   Deadlock,
		Detail: "mutex already owned by calling thread",
	}

	// ErrMutexRecursionLimit indicates a recursive mutex's lock count
	// would exceed its configured maximum.
	ErrMutexRecursionLimit = &KernelError{
		Kind:   ResourceLimit,
		Detail: "recursive mutex lock count exceeded",
	}

	// ErrMutexCeilingExceeded indicates a priority-protect mutex was
	// locked by a thread whose priority exceeds the mutex's ceiling.
	ErrMutexCeilingExceeded = &KernelError{
		Kind:   InvalidArgument,
		Detail: "caller priority exceeds mutex ceiling",
	}

	// ErrMutexBusy indicates tryLock() found the mutex already locked.
	ErrMutexBusy = &KernelError{
		Kind:   Busy,
		Detail: "mutex is already locked",
	}

	// ErrMutexNotOwned indicates unlock() was called by a thread that
	// does not own the mutex (errorChecking or recursive kind).
	ErrMutexNotOwned = &KernelError{
		Kind:   NotPermitted,
		Detail: "mutex is not owned by calling thread",
	}

	// ErrMutexTimeout indicates a timed lock attempt expired.
	ErrMutexTimeout = &KernelError{
		Kind:   Timeout,
		Detail: "timed out waiting for mutex",
	}
)

// Semaphore errors.
var (
	// ErrSemaphoreOverflow indicates post() was called on a semaphore
	// already at its configured maximum value.
	ErrSemaphoreOverflow = &KernelError{
		Kind:   Overflow,
		Detail: "semaphore value already at maximum",
	}

	// ErrSemaphoreTimeout indicates a timed wait expired.
	ErrSemaphoreTimeout = &KernelError{
		Kind:   Timeout,
		Detail: "timed out waiting for semaphore",
	}

	// ErrSemaphoreBusy indicates tryWait() found no units available.
	ErrSemaphoreBusy = &KernelError{
		Kind:   Busy,
		Detail: "semaphore has no units available",
	}

	// ErrSemaphoreInterrupted indicates a wait was aborted by a signal.
	ErrSemaphoreInterrupted = &KernelError{
		Kind:   Interrupted,
		Detail: "wait interrupted by signal delivery",
	}
)

// Queue errors.
var (
	// ErrQueueFull indicates a non-blocking push found no free slots.
	ErrQueueFull = &KernelError{
		Kind:   Busy,
		Detail: "queue is full",
	}

	// ErrQueueEmpty indicates a non-blocking pop found no messages.
	ErrQueueEmpty = &KernelError{
		Kind:   Busy,
		Detail: "queue is empty",
	}

	// ErrQueueTimeout indicates a timed push/pop expired.
	ErrQueueTimeout = &KernelError{
		Kind:   Timeout,
		Detail: "timed out waiting on queue",
	}
)

// Signal errors.
var (
	// ErrSignalNotSupported indicates the thread was created without a
	// signal receiver and cannot generate/queue/wait for signals.
	ErrSignalNotSupported = &KernelError{
		Kind:   NotSupported,
		Detail: "signal reception disabled for this thread",
	}

	// ErrSignalQueueFull indicates the bounded queued-signal FIFO is full.
	ErrSignalQueueFull = &KernelError{
		Kind:   ResourceLimit,
		Detail: "queued signal list is full",
	}

	// ErrSignalTimeout indicates a timed signal wait expired.
	ErrSignalTimeout = &KernelError{
		Kind:   Timeout,
		Detail: "timed out waiting for signal",
	}
)
