// Package arch declares the architecture-adapter interface the scheduler
// depends on but never implements itself: interrupt masking, stack
// initialization, the tick source, and the context-switch primitive. A
// real port backs this with hardware registers; arch/host backs it with
// goroutines and a wall-clock ticker so the core can run and be tested
// without hardware.
package arch

import "kernelcore/kstack"

// MaskState is an opaque token returned by the masking primitives and
// replayed into RestoreInterruptMasking. Callers must never inspect it.
type MaskState uint32

// TickHandler is invoked once per tick by the adapter's tick source. It
// returns whether a context switch is now required.
type TickHandler func() (switchRequired bool)

// SwitchHandler is the scheduler's switchContext entry point: given the
// stack-pointer bookkeeping value the adapter saved for the previously
// running thread, it updates scheduler state and returns the new current
// thread's saved stack-pointer bookkeeping value.
type SwitchHandler func(currentSP int) (newSP int)

// Adapter is the architecture port the scheduler runs on.
type Adapter interface {
	// DisableInterruptMasking fully masks interrupts (including the tick
	// source) and returns the previous masking state.
	DisableInterruptMasking() MaskState

	// EnableInterruptMasking masks interrupts up to the kernel's
	// configured threshold, leaving higher-priority interrupts live, and
	// returns the previous masking state.
	EnableInterruptMasking() MaskState

	// RestoreInterruptMasking restores a previously captured state.
	RestoreInterruptMasking(prev MaskState)

	// InitializeStack paints stack's guard region and prepares it to run
	// entry when first scheduled.
	InitializeStack(stack *kstack.Stack, entry func()) error

	// RequestContextSwitch pends an unconditional context switch, to be
	// serviced as soon as interrupts are next unmasked.
	RequestContextSwitch()

	// StartScheduling hands control to the adapter's run loop: it begins
	// driving tick and switch handler from the tick source, and does not
	// return until the adapter is stopped.
	StartScheduling(tick TickHandler, sw SwitchHandler)

	// GetMainStack returns the storage backing the stack main() is
	// already running on, for thread.NewMain to adopt.
	GetMainStack() []byte
}

// CriticalSection disables interrupt masking and returns a function that
// restores the previous state, letting callers write:
//
//	defer arch.CriticalSection(a)()
func CriticalSection(a Adapter) func() {
	prev := a.DisableInterruptMasking()
	return func() { a.RestoreInterruptMasking(prev) }
}
