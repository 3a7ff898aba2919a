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

package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/usermem"
)

// ThreadID is a task identifier.
type ThreadID int32

// String returns a decimal representation of the ThreadID.
func (tid ThreadID) String() string {
	return fmt.Sprintf("%d", tid)
}

// LoadState is the outcome of building a task's image.
type LoadState int32

const (
	// LoadPending means the task has not finished loading.
	LoadPending LoadState = iota

	// LoadSucceeded means the task's image was built.
	LoadSucceeded

	// LoadFailed means the task's image could not be built.
	LoadFailed
)

// String implements fmt.Stringer.
func (s LoadState) String() string {
	switch s {
	case LoadPending:
		return "pending"
	case LoadSucceeded:
		return "succeeded"
	case LoadFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int32(s))
	}
}

// Task represents a user process.
//
// A task is shared between its own goroutine and its parent. Each side holds
// one reference; the task is released from the kernel's task set when both
// are dropped, that is when the task has exited and its parent has waited for
// it or abandoned it.
type Task struct {
	k   *Kernel
	tid ThreadID

	// name is the first word of the command line, truncated to
	// trap.MaxNameLen bytes. name is immutable.
	name string

	// argv is the command line, split into words. argv is immutable.
	argv []string

	// logPrefix is prepended to log messages emitted by Task.Infof etc.
	logPrefix string

	// regs is the trap frame. regs is owned by the task goroutine.
	regs arch.Registers

	// mm is the task's address space.
	mm *usermem.AddressSpace

	// fdTable is the task's open files.
	fdTable *FDTable

	// loadState is written by the task goroutine before loaded is fired.
	loadState LoadState

	// loaded is fired once the task has tried to build its image.
	loaded oneshot

	// exitStatus is written by the task goroutine before exited is fired.
	exitStatus int32

	// exitKind is how the task exited. It is written by the task goroutine
	// before exited is fired.
	exitKind string

	// exited is fired once the task has exited.
	exited oneshot

	// exiting is true once the task has started exiting. exiting is owned by
	// the task goroutine.
	exiting bool

	// refs is the number of holders of the task.
	refs atomic.Int32

	// mu protects children.
	mu sync.Mutex

	// children are the children that have not been waited for or abandoned.
	children map[ThreadID]*Task
}

func newTask(k *Kernel, tid ThreadID, parent *Task, argv []string) *Task {
	name := argv[0]
	if len(name) > trap.MaxNameLen {
		name = name[:trap.MaxNameLen]
	}
	t := &Task{
		k:         k,
		tid:       tid,
		name:      name,
		argv:      argv,
		logPrefix: fmt.Sprintf("[%5d:%s] ", tid, name),
		mm:        usermem.NewAddressSpace(),
		fdTable:   NewFDTable(k.maxFDs),
		children:  make(map[ThreadID]*Task),
	}
	t.loaded.init()
	t.exited.init()
	// One reference for the task goroutine and one for the parent, or for
	// Kernel.RunInit if there is no parent.
	t.refs.Store(2)
	return t
}

// Kernel returns the kernel that t belongs to.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// ThreadID returns t's ID.
func (t *Task) ThreadID() ThreadID {
	return t.tid
}

// Name returns t's name.
func (t *Task) Name() string {
	return t.name
}

// Argv returns t's command line words.
func (t *Task) Argv() []string {
	return t.argv
}

// Regs returns t's trap frame.
//
// Preconditions: The caller must be running on the task goroutine, or t
// must not be running.
func (t *Task) Regs() *arch.Registers {
	return &t.regs
}

// MemoryManager returns t's address space.
func (t *Task) MemoryManager() *usermem.AddressSpace {
	return t.mm
}

// FDTable returns t's file table.
func (t *Task) FDTable() *FDTable {
	return t.fdTable
}

// LoadState returns the outcome of loading t. It is only meaningful once the
// load has been reported.
func (t *Task) LoadState() LoadState {
	if !t.loaded.Fired() {
		return LoadPending
	}
	return t.loadState
}

// ExitStatus returns t's exit status and true if t has exited.
func (t *Task) ExitStatus() (int32, bool) {
	if !t.exited.Fired() {
		return 0, false
	}
	return t.exitStatus, true
}

// decRef drops a reference on t, releasing it from the task set when the last
// is dropped.
func (t *Task) decRef() {
	switch n := t.refs.Add(-1); {
	case n == 0:
		t.Debugf("Released")
		t.k.release(t)
	case n < 0:
		panic(fmt.Sprintf("task %d released too many times", t.tid))
	}
}

// decRefOnExit drops a reference on t once it has exited.
func (t *Task) decRefOnExit() {
	<-t.exited.Done()
	t.decRef()
}

// Debugf logs at debug level, prefixed with the task's ID and name.
func (t *Task) Debugf(fmt string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.DebugfAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Infof logs at info level, prefixed with the task's ID and name.
func (t *Task) Infof(fmt string, v ...any) {
	if log.IsLogging(log.Info) {
		log.InfofAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Warningf logs at warning level, prefixed with the task's ID and name.
func (t *Task) Warningf(fmt string, v ...any) {
	if log.IsLogging(log.Warning) {
		log.WarningfAtDepth(1, t.logPrefix+fmt, v...)
	}
}
