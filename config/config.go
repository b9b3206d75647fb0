// Package config holds the process-wide, read-only-at-boot kernel
// configuration and its on-disk representation.
//
// The shape mirrors the teacher's spec package: a plain struct marshaled
// to JSON, loaded with a simple os.ReadFile plus json.Unmarshal, and saved
// atomically through a temp-file-then-rename so a crash mid-write never
// leaves a half-written config behind.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"kernelcore/kerrors"
)

// Config is the set of values fixed at boot and never mutated while the
// scheduler is running.
type Config struct {
	// TickRateHz is the frequency of the tick ISR.
	TickRateHz uint32 `json:"tickRateHz"`

	// MainThreadPriority is the priority assigned to the thread that
	// observes the boot stack (see thread.NewMain).
	MainThreadPriority uint8 `json:"mainThreadPriority"`

	// MainThreadStackSize is only used for bookkeeping (high-water mark,
	// guard painting); the main thread's stack is borrowed, not allocated.
	MainThreadStackSize uint32 `json:"mainThreadStackSize"`

	// IdleThreadStackSize sizes the stack allocated for the idle thread.
	IdleThreadStackSize uint32 `json:"idleThreadStackSize"`

	// StackGuardSize is the number of bytes at the low end of an
	// allocated stack painted with the guard sentinel and checked on
	// context switch.
	StackGuardSize uint32 `json:"stackGuardSize"`

	// RecursiveMax is the highest legal lock count for a Recursive
	// mutex; the (RecursiveMax+1)-th lock returns ResourceLimit.
	RecursiveMax uint16 `json:"recursiveMax"`

	// SignalsEnabled gates the per-thread signal subsystem at build
	// time; threads created while false get a NotSupported error from
	// signal Generate, Queue, Wait and TimedWait.
	SignalsEnabled bool `json:"signalsEnabled"`

	// MaxQueuedSignalsPerThread bounds the per-thread queued (signo,
	// value) FIFO.
	MaxQueuedSignalsPerThread uint16 `json:"maxQueuedSignalsPerThread"`

	// RoundRobinQuantum is the number of ticks a RoundRobin-policy
	// thread runs before the scheduler forces a rotation among equal
	// priority peers.
	RoundRobinQuantum uint32 `json:"roundRobinQuantum"`

	// KernelInterruptMaskThreshold is the architecture-specific
	// interrupt priority above which the kernel never masks; passed
	// straight through to the arch adapter.
	KernelInterruptMaskThreshold uint8 `json:"kernelInterruptMaskThreshold"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		TickRateHz:                   1000,
		MainThreadPriority:           1,
		MainThreadStackSize:          4096,
		IdleThreadStackSize:          1024,
		StackGuardSize:               32,
		RecursiveMax:                 255,
		SignalsEnabled:               true,
		MaxQueuedSignalsPerThread:    16,
		RoundRobinQuantum:            10,
		KernelInterruptMaskThreshold: 0,
	}
}

// Validate checks that a loaded or hand-built Config is internally
// consistent enough to boot the scheduler with.
func (c Config) Validate() error {
	if c.TickRateHz == 0 {
		return kerrors.New(kerrors.InvalidArgument, "config.Validate", "tickRateHz must be nonzero")
	}
	if c.MainThreadStackSize == 0 {
		return kerrors.New(kerrors.InvalidArgument, "config.Validate", "mainThreadStackSize must be nonzero")
	}
	if c.IdleThreadStackSize == 0 {
		return kerrors.New(kerrors.InvalidArgument, "config.Validate", "idleThreadStackSize must be nonzero")
	}
	if c.RecursiveMax == 0 {
		return kerrors.New(kerrors.InvalidArgument, "config.Validate", "recursiveMax must be nonzero")
	}
	if c.RoundRobinQuantum == 0 {
		return kerrors.New(kerrors.InvalidArgument, "config.Validate", "roundRobinQuantum must be nonzero")
	}
	return nil
}

// Load reads a Config from a JSON file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, kerrors.WrapWithSubject(err, kerrors.NotSupported, "config.Load", path)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, kerrors.WrapWithSubject(err, kerrors.InvalidArgument, "config.Load", path)
	}
	return cfg, nil
}

// Save writes cfg to path atomically: it writes to a temp file in the same
// directory, syncs it, then renames it over path so a reader never
// observes a partially written file.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return kerrors.WrapWithSubject(err, kerrors.InvalidArgument, "config.Save", path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "config.Save", path)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "config.Save", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "config.Save", path)
	}
	if err := tmp.Close(); err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "config.Save", path)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "config.Save", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "config.Save", path)
	}

	success = true
	return nil
}
