// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kernel implements the trap boundary between user tasks and the
// sentry: syscall dispatch, validated access to user memory, per-task file
// tables and the task lifecycle (exec, wait, exit, halt).
//
// Each task runs on its own goroutine. User code enters the kernel by calling
// Task.Trap with the syscall number and arguments pushed on its stack.
//
// Lock order (outermost locks must be taken first):
//
//	Kernel.mu
//	  Task.mu
//	    FDTable.mu
//
// The filesystem serializer is never held together with any of the above.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/sentry/devices/console"
	"gvisor.dev/trapgate/pkg/sentry/vfs"
)

// ErrHalted is returned by Kernel.RunInit when the kernel was powered off
// before the task exited.
var ErrHalted = errors.New("kernel halted")

// Entry is the user code of a loaded task. It runs on the task goroutine and
// normally ends with an exit syscall.
type Entry func(t *Task)

// Loader builds task images.
type Loader interface {
	// Load builds the image for argv in t's address space and sets up t's
	// user stack. It returns the user code to run.
	Load(t *Task, argv []string) (Entry, error)
}

// Shutdown powers off the machine.
type Shutdown interface {
	PowerOff()
}

// BufferCheck selects how user buffers are checked against the user region.
type BufferCheck int

const (
	// BufferCheckFull requires every byte of a buffer to be a user address.
	BufferCheckFull BufferCheck = iota

	// BufferCheckStart only checks the first byte of a buffer. Bytes past
	// the first are still subject to the address space mapping.
	BufferCheckStart
)

// UnknownSyscall selects what happens when a task issues an unknown syscall
// number.
type UnknownSyscall int

const (
	// UnknownSyscallKill terminates the task with trap.ExitAbnormal.
	UnknownSyscallKill UnknownSyscall = iota

	// UnknownSyscallENOSYS fails the syscall, returning -1 in Eax.
	UnknownSyscallENOSYS
)

// Kernel holds state shared by all tasks. It must be initialized by calling
// Init.
type Kernel struct {
	// The following fields are immutable after Init.
	table          *SyscallTable
	fs             *vfs.Serializer
	console        console.Device
	loader         Loader
	shutdown       Shutdown
	maxFDs         int
	bufferCheck    BufferCheck
	unknownSyscall UnknownSyscall
	stracer        Stracer

	// faultLog reports forced terminations.
	faultLog log.Logger

	// mu protects below.
	mu sync.Mutex

	// tasks contains every task that has not yet been released.
	tasks map[ThreadID]*Task

	// lastTID is the last allocated thread ID.
	lastTID ThreadID

	// halted is true once Halt has been called.
	halted bool

	// haltedCh is closed by Halt.
	haltedCh chan struct{}

	// running counts task goroutines.
	running sync.WaitGroup
}

// InitKernelArgs holds arguments to Init.
type InitKernelArgs struct {
	// Table is the syscall table.
	Table *SyscallTable

	// FS is the serializer in front of the filesystem.
	FS *vfs.Serializer

	// Console backs descriptors 0 and 1.
	Console console.Device

	// Loader builds task images.
	Loader Loader

	// Shutdown is invoked by the halt syscall.
	Shutdown Shutdown

	// MaxFDs is the per-task open file limit. 0 means no limit.
	MaxFDs int

	// BufferCheck is the user buffer validation mode.
	BufferCheck BufferCheck

	// UnknownSyscall is the unknown syscall policy.
	UnknownSyscall UnknownSyscall

	// Stracer traces syscalls. Stracer may be nil.
	Stracer Stracer
}

// Init initializes the Kernel with no tasks.
func (k *Kernel) Init(args InitKernelArgs) error {
	if args.Table == nil {
		return fmt.Errorf("Table is nil")
	}
	if err := args.Table.Validate(); err != nil {
		return fmt.Errorf("invalid syscall table: %w", err)
	}
	if args.FS == nil {
		return fmt.Errorf("FS is nil")
	}
	if args.Console == nil {
		return fmt.Errorf("Console is nil")
	}
	if args.Loader == nil {
		return fmt.Errorf("Loader is nil")
	}
	if args.Shutdown == nil {
		return fmt.Errorf("Shutdown is nil")
	}
	if args.MaxFDs < 0 {
		return fmt.Errorf("MaxFDs is negative: %d", args.MaxFDs)
	}

	k.table = args.Table
	k.fs = args.FS
	k.console = args.Console
	k.loader = args.Loader
	k.shutdown = args.Shutdown
	k.maxFDs = args.MaxFDs
	k.bufferCheck = args.BufferCheck
	k.unknownSyscall = args.UnknownSyscall
	k.stracer = args.Stracer
	k.faultLog = log.BasicRateLimitedLogger(time.Second)
	k.tasks = make(map[ThreadID]*Task)
	k.haltedCh = make(chan struct{})
	return nil
}

// FS returns the filesystem serializer.
func (k *Kernel) FS() *vfs.Serializer {
	return k.fs
}

// Console returns the console device.
func (k *Kernel) Console() console.Device {
	return k.console
}

// SyscallTable returns the syscall table.
func (k *Kernel) SyscallTable() *SyscallTable {
	return k.table
}

// RunInit starts a root task for cmdline and waits for it to exit, returning
// its exit status. It returns ErrHalted if the kernel is powered off first,
// or ctx.Err() if ctx is done first; in both cases the task keeps running.
func (k *Kernel) RunInit(ctx context.Context, cmdline string) (int32, error) {
	t, err := k.spawn(nil, cmdline)
	if err != nil {
		return trap.ExitAbnormal, err
	}
	select {
	case <-t.exited.Done():
	case <-k.haltedCh:
		if !t.exited.Fired() {
			go t.decRefOnExit()
			return trap.ExitAbnormal, ErrHalted
		}
	case <-ctx.Done():
		go t.decRefOnExit()
		return trap.ExitAbnormal, ctx.Err()
	}
	status := t.exitStatus
	halted := t.exitKind == exitHalted
	t.decRef()
	if halted {
		return trap.ExitAbnormal, ErrHalted
	}
	return status, nil
}

// Halt powers off the machine and wakes every task blocked in exec or wait.
// Only the first call has an effect.
func (k *Kernel) Halt() {
	k.mu.Lock()
	if k.halted {
		k.mu.Unlock()
		return
	}
	k.halted = true
	k.mu.Unlock()

	log.Infof("Powering off")
	k.shutdown.PowerOff()
	close(k.haltedCh)
}

// Halted returns a channel that is closed when the kernel halts.
func (k *Kernel) Halted() <-chan struct{} {
	return k.haltedCh
}

// IsHalted returns true if the kernel has halted.
func (k *Kernel) IsHalted() bool {
	select {
	case <-k.haltedCh:
		return true
	default:
		return false
	}
}

// Wait blocks until every task goroutine has returned.
func (k *Kernel) Wait() {
	k.running.Wait()
}

// TaskIDs returns the IDs of all tasks that have not been released, in
// increasing order.
func (k *Kernel) TaskIDs() []ThreadID {
	k.mu.Lock()
	defer k.mu.Unlock()
	tids := make([]ThreadID, 0, len(k.tasks))
	for tid := range k.tasks {
		tids = append(tids, tid)
	}
	sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })
	return tids
}

// spawn creates a task for cmdline and starts its goroutine. The new task is
// a child of parent, or a root task if parent is nil. The caller holds the
// parent side reference on the task.
func (k *Kernel) spawn(parent *Task, cmdline string) (*Task, error) {
	argv := strings.Fields(cmdline)
	if len(argv) == 0 {
		return nil, linuxerr.ENOEXEC
	}

	k.mu.Lock()
	if k.halted {
		k.mu.Unlock()
		return nil, ErrHalted
	}
	k.lastTID++
	t := newTask(k, k.lastTID, parent, argv)
	k.tasks[t.tid] = t
	k.running.Add(1)
	k.mu.Unlock()

	if parent != nil {
		parent.mu.Lock()
		parent.children[t.tid] = t
		parent.mu.Unlock()
	}
	t.Debugf("Spawned from %q", cmdline)
	go t.run()
	return t, nil
}

// release removes t from the task set.
func (k *Kernel) release(t *Task) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.tasks, t.tid)
}
