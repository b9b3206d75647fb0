package syncx

import (
	"kernelcore/arch"
	"kernelcore/kstack"
	"kernelcore/thread"
)

// fakeAdapter is a minimal arch.Adapter: it never drives a real tick
// source, since every test wakes threads directly through the scheduler.
type fakeAdapter struct{}

func (fakeAdapter) DisableInterruptMasking() arch.MaskState               { return 0 }
func (fakeAdapter) EnableInterruptMasking() arch.MaskState                { return 0 }
func (fakeAdapter) RestoreInterruptMasking(arch.MaskState)                {}
func (fakeAdapter) InitializeStack(*kstack.Stack, func()) error           { return nil }
func (fakeAdapter) RequestContextSwitch()                                 {}
func (fakeAdapter) StartScheduling(arch.TickHandler, arch.SwitchHandler)  {}
func (fakeAdapter) GetMainStack() []byte                                  { return make([]byte, 256) }

func newTCB(name string, priority uint8, policy thread.Policy) *thread.TCB {
	return thread.New(name, kstack.NewOwned(256, 16), priority, policy, 0, nil)
}
