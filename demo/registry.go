package demo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kernelcore/config"
	"kernelcore/kerrors"
	"kernelcore/kstack"
	"kernelcore/scheduler"
	"kernelcore/signal"
	"kernelcore/thread"
)

// Status is a descriptor's lifecycle stage, mirroring the teacher's
// container status enum (created/running/stopped) collapsed to what a
// single-process, non-persistent scheduler can actually represent: a
// descriptor is either waiting for the next Start or has already run to
// completion inside one.
type Status string

const (
	StatusCreated Status = "created"
	StatusExited  Status = "exited"
)

// ThreadDescriptor is the on-disk, cross-invocation record for one
// demo thread: just enough to rebuild its TCB the next time Start runs,
// since no scheduler or goroutine survives between separate kernelctl
// invocations.
type ThreadDescriptor struct {
	Name          string   `json:"name"`
	Priority      uint8    `json:"priority"`
	Policy        string   `json:"policy"` // "fifo" | "roundrobin"
	StackSize     uint32   `json:"stackSize"`
	SleepTicks    uint64   `json:"sleepTicks"`
	Status        Status   `json:"status"`
	PendingSignal *int     `json:"pendingSignal,omitempty"`
	ExitEvents    []string `json:"exitEvents,omitempty"`
}

// Registry is the JSON-file-backed set of known thread descriptors,
// the stand-in for the teacher's on-disk container state directory:
// every kernelctl invocation is a fresh process, so Registry is how
// create/list/state/signal/rm agree on what exists across invocations
// of a scheduler that itself lives only for the duration of Start.
type Registry struct {
	path    string
	Threads []ThreadDescriptor `json:"threads"`
}

// LoadRegistry reads path, returning an empty Registry if the file does
// not exist yet.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Registry{path: path}, nil
	}
	if err != nil {
		return nil, kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.LoadRegistry", path)
	}
	reg := &Registry{path: path}
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, kerrors.WrapWithSubject(err, kerrors.InvalidArgument, "demo.LoadRegistry", path)
	}
	return reg, nil
}

// Save writes the registry back to its backing file atomically: a temp
// file in the same directory, synced and renamed over path, the same
// write-then-rename sequence config.Save uses so a reader never
// observes a half-written registry.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.Registry.Save", r.path)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return kerrors.WrapWithSubject(err, kerrors.InvalidArgument, "demo.Registry.Save", r.path)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".threads-*.tmp")
	if err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.Registry.Save", r.path)
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
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.Registry.Save", r.path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.Registry.Save", r.path)
	}
	if err := tmp.Close(); err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.Registry.Save", r.path)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.Registry.Save", r.path)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return kerrors.WrapWithSubject(err, kerrors.NotSupported, "demo.Registry.Save", r.path)
	}

	success = true
	return nil
}

// Add registers a new descriptor, rejecting a name already present the
// way the teacher's container create rejects a duplicate ID.
func (r *Registry) Add(d ThreadDescriptor) error {
	if _, ok := r.Find(d.Name); ok {
		return kerrors.New(kerrors.InvalidArgument, "demo.Registry.Add", "a thread named "+d.Name+" already exists")
	}
	d.Status = StatusCreated
	r.Threads = append(r.Threads, d)
	return nil
}

// Find returns the descriptor named name, if any.
func (r *Registry) Find(name string) (*ThreadDescriptor, bool) {
	for i := range r.Threads {
		if r.Threads[i].Name == name {
			return &r.Threads[i], true
		}
	}
	return nil, false
}

// Remove drops a descriptor, refusing to drop one that has not yet
// exited (mirroring the teacher's refusal to delete a running
// container without --force).
func (r *Registry) Remove(name string) error {
	for i, d := range r.Threads {
		if d.Name != name {
			continue
		}
		if d.Status != StatusExited {
			return kerrors.New(kerrors.NotPermitted, "demo.Registry.Remove", "thread "+name+" has not exited yet")
		}
		r.Threads = append(r.Threads[:i], r.Threads[i+1:]...)
		return nil
	}
	return kerrors.New(kerrors.InvalidArgument, "demo.Registry.Remove", "no thread named "+name)
}

// Names lists every descriptor's name in a stable order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.Threads))
	for i, d := range r.Threads {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}

func policyOf(s string) thread.Policy {
	if s == "roundrobin" {
		return thread.RoundRobin
	}
	return thread.Fifo
}

// StartAll boots one scheduler, builds a TCB for every descriptor
// currently StatusCreated, delivers any pending signal recorded against
// it, runs every one of them to completion (sleeping for its configured
// tick count, the synthetic workload a descriptor can express without
// carrying arbitrary executable code across a process boundary), and
// persists the resulting exit events and Status back to the registry.
//
// This is kernelctl start's entire boot sequence: a fresh scheduler and
// idle/main pair, every created thread wired in from inside main's
// entry, then a join on each one before the call returns — the same
// boot shape demo.run uses for the seed scenarios, generalized to an
// arbitrary descriptor set.
func (r *Registry) StartAll(cfg config.Config) error {
	rec := &recorder{}

	pending := make([]*ThreadDescriptor, 0, len(r.Threads))
	for i := range r.Threads {
		if r.Threads[i].Status == StatusCreated {
			pending = append(pending, &r.Threads[i])
		}
	}
	if len(pending) == 0 {
		return nil
	}

	build := func(sched *scheduler.Scheduler) []*thread.TCB {
		sup := signal.New(sched)
		built := make([]*thread.TCB, 0, len(pending))
		for _, d := range pending {
			d := d
			tcb := thread.New(d.Name, kstack.NewOwned(int(d.StackSize), int(cfg.StackGuardSize)), d.Priority, policyOf(d.Policy), cfg.RoundRobinQuantum, nil)
			tcb.Signals.Enabled = cfg.SignalsEnabled
			tcb.Signals.AcceptMask = 0xFFFFFFFF

			tcb.Entry = func() {
				if d.PendingSignal != nil && cfg.SignalsEnabled {
					sup.Generate(tcb, *d.PendingSignal)
					if signo, _, err := sup.Wait(tcb, 1<<uint(*d.PendingSignal)); err == nil {
						rec.log("%s received signal %d before running", d.Name, signo)
					}
					d.PendingSignal = nil
				}
				rec.log("%s started (priority %d)", d.Name, d.Priority)
				sched.SleepFor(d.SleepTicks)
				rec.log("%s finished", d.Name)
			}
			sched.Add(tcb)
			built = append(built, tcb)
		}
		return built
	}

	if err := run(cfg, build); err != nil {
		return err
	}

	events := rec.snapshot()
	for _, d := range pending {
		d.Status = StatusExited
		d.ExitEvents = nil
		for _, e := range events {
			if strings.Contains(e, d.Name) {
				d.ExitEvents = append(d.ExitEvents, e)
			}
		}
	}
	return r.Save()
}
