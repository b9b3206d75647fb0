// Package kstack abstracts a thread's stack storage: ownership (allocated
// vs. borrowed), the guard region painted with a sentinel byte to detect
// overflow, and the high-water mark derived from how much of the sentinel
// painting has been overwritten.
package kstack

// GuardSentinel is the byte value used to paint both the guard region and
// the rest of an allocated stack before first use.
const GuardSentinel byte = 0xA5

// Stack owns or borrows a region of memory used as a thread's stack.
type Stack struct {
	storage    []byte
	guardSize  int
	owned      bool
	stackPtr   int // offset into storage; bookkeeping only, no real SP here
}

// NewOwned allocates size bytes of storage, paints the guard region
// (guardSize bytes at the low end) plus the remainder with GuardSentinel,
// and returns a Stack that frees its storage when released.
//
// guardSize must be less than size; a guard that consumes the whole stack
// leaves no usable space and is a configuration error the caller should
// have rejected (see config.Config.StackGuardSize vs. stack-size fields).
func NewOwned(size, guardSize int) *Stack {
	storage := make([]byte, size)
	for i := range storage {
		storage[i] = GuardSentinel
	}
	return &Stack{
		storage:   storage,
		guardSize: guardSize,
		owned:     true,
		stackPtr:  size,
	}
}

// NewBorrowed adopts existing storage (the boot stack observed by
// thread.NewMain) without painting it: the caller is already running on
// it, so overwriting it with sentinel bytes would corrupt live state.
func NewBorrowed(storage []byte) *Stack {
	return &Stack{
		storage:   storage,
		guardSize: 0,
		owned:     false,
		stackPtr:  len(storage),
	}
}

// Size returns the usable size of the stack, excluding the guard region.
func (s *Stack) Size() int {
	if s.guardSize >= len(s.storage) {
		return 0
	}
	return len(s.storage) - s.guardSize
}

// Owned reports whether this Stack allocated its own storage (and should
// therefore be released when the owning thread terminates).
func (s *Stack) Owned() bool {
	return s.owned
}

// StackPointer returns the current bookkeeping stack-pointer offset,
// measured from the start of storage. The architecture adapter is the
// only caller expected to write meaningful values here via SetStackPointer;
// all other code treats it opaquely.
func (s *Stack) StackPointer() int {
	return s.stackPtr
}

// SetStackPointer records a new stack-pointer offset, as reported by the
// architecture adapter after a context switch.
func (s *Stack) SetStackPointer(offset int) {
	s.stackPtr = offset
}

// CheckGuard reports whether the guard region still holds the sentinel
// byte unmodified. A false return means the stack overflowed into the
// guard and the kernel should treat it as a fatal condition (hooks.Assert).
func (s *Stack) CheckGuard() bool {
	if s.guardSize == 0 {
		return true
	}
	for i := 0; i < s.guardSize && i < len(s.storage); i++ {
		if s.storage[i] != GuardSentinel {
			return false
		}
	}
	return true
}

// HighWaterMark returns the maximum number of usable-region bytes that
// have ever been overwritten away from GuardSentinel, scanning from the
// stack's far end inward (the direction stack usage grows in a
// full-descending convention). Borrowed stacks, which are never painted,
// always report a high-water mark equal to their full usable size.
func (s *Stack) HighWaterMark() int {
	if !s.owned {
		return s.Size()
	}
	usable := s.storage[s.guardSize:]
	for i, b := range usable {
		if b != GuardSentinel {
			return len(usable) - i
		}
	}
	return 0
}

// CheckPointer reports whether sp, an offset into storage, falls within
// the stack's valid (non-guard) range.
func (s *Stack) CheckPointer(sp int) bool {
	return sp >= s.guardSize && sp <= len(s.storage)
}
