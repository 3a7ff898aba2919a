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
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"testing"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/devices/console"
	"gvisor.dev/trapgate/pkg/sentry/fsimpl/memfs"
	"gvisor.dev/trapgate/pkg/sentry/vfs"
	"gvisor.dev/trapgate/pkg/usermem"
)

// Test task memory layout.
const (
	stackSize  = 0x2000
	stackStart = hostarch.Addr(trap.UserHigh - stackSize)
	initialSP  = hostarch.Addr(trap.UserHigh - 0x100)

	dataStart = hostarch.Addr(0x08050000)
	dataSize  = 0x2000

	// kernelPage is mapped only by loaders with mapKernelPage set.
	kernelPage = hostarch.Addr(trap.UserHigh)
)

type testShutdown struct {
	calls atomic.Int32
}

func (s *testShutdown) PowerOff() {
	s.calls.Add(1)
}

// testLoader runs Go functions as task images.
type testLoader struct {
	progs         map[string]Entry
	mapKernelPage bool
}

func (l *testLoader) Load(t *Task, argv []string) (Entry, error) {
	entry, ok := l.progs[argv[0]]
	if !ok {
		return nil, linuxerr.ENOEXEC
	}
	mm := t.MemoryManager()
	if err := mm.Map(stackStart, stackSize); err != nil {
		return nil, err
	}
	if err := mm.Map(dataStart, dataSize); err != nil {
		return nil, err
	}
	if l.mapKernelPage {
		if err := mm.Map(kernelPage, 0x1000); err != nil {
			return nil, err
		}
	}
	t.Regs().SetStack(initialSP)
	return entry, nil
}

// testSyscalls gives the argument counts of the trap ABI.
var testSyscalls = [trap.NumSyscalls]struct {
	args    int
	returns bool
}{
	trap.SYS_HALT:     {0, false},
	trap.SYS_EXIT:     {1, false},
	trap.SYS_EXEC:     {1, true},
	trap.SYS_WAIT:     {1, true},
	trap.SYS_CREATE:   {2, true},
	trap.SYS_REMOVE:   {1, true},
	trap.SYS_OPEN:     {1, true},
	trap.SYS_FILESIZE: {1, true},
	trap.SYS_READ:     {3, true},
	trap.SYS_WRITE:    {3, true},
	trap.SYS_SEEK:     {2, false},
	trap.SYS_TELL:     {1, true},
	trap.SYS_CLOSE:    {1, false},
}

// newTestTable returns a table with the lifecycle syscalls implemented by the
// kernel and the rest by fns.
func newTestTable(fns map[trap.Sysno]SyscallFn) *SyscallTable {
	all := map[trap.Sysno]SyscallFn{
		trap.SYS_HALT: func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error) {
			return 0, t.Halt(), nil
		},
		trap.SYS_EXIT: func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error) {
			return 0, t.Exit(args[0].Int()), nil
		},
		trap.SYS_EXEC: func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error) {
			cmdline, err := t.CopyInString(args[0].Pointer())
			if err != nil {
				return 0, nil, err
			}
			tid, ctrl, err := t.Exec(cmdline)
			return uintptr(tid), ctrl, err
		},
		trap.SYS_WAIT: func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error) {
			status, ctrl, err := t.Wait(ThreadID(args[0].Int()))
			return uintptr(status), ctrl, err
		},
	}
	for sysno, fn := range fns {
		all[sysno] = fn
	}
	table := &SyscallTable{Arch: arch.I386}
	for sysno, fn := range all {
		table.Table[sysno] = Syscall{
			Name:    sysno.String(),
			Args:    testSyscalls[sysno].args,
			Returns: testSyscalls[sysno].returns,
			Fn:      fn,
		}
	}
	return table
}

type testKernel struct {
	*Kernel
	console  *console.Buffer
	shutdown *testShutdown
}

func newTestKernel(t *testing.T, loader *testLoader, table *SyscallTable, opts ...func(*InitKernelArgs)) *testKernel {
	t.Helper()
	tk := &testKernel{
		Kernel:   &Kernel{},
		console:  console.NewBuffer(nil, true),
		shutdown: &testShutdown{},
	}
	args := InitKernelArgs{
		Table:    table,
		FS:       vfs.NewSerializer(memfs.New()),
		Console:  tk.console,
		Loader:   loader,
		Shutdown: tk.shutdown,
		MaxFDs:   128,
	}
	for _, opt := range opts {
		opt(&args)
	}
	if err := tk.Init(args); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return tk
}

// run runs cmdline as a root task and returns its exit status.
func (tk *testKernel) run(t *testing.T, cmdline string) int32 {
	t.Helper()
	status, err := tk.RunInit(context.Background(), cmdline)
	if err != nil {
		t.Fatalf("RunInit(%q): %v", cmdline, err)
	}
	return status
}

// doTrap pushes sysno and args on t's stack and traps, as the user-side stub
// does. It returns Eax, or ends the goroutine if the task stops.
func doTrap(t *Task, sysno uint32, args ...uint32) uint32 {
	sp := t.Regs().StackPointer()
	words := append([]uint32{sysno}, args...)
	newSP := sp - hostarch.Addr(len(words)*trap.WordSize)
	for i, w := range words {
		if err := usermem.CopyOutUint32(t.MemoryManager(), newSP+hostarch.Addr(i*trap.WordSize), w); err != nil {
			panic(err)
		}
	}
	t.Regs().SetStack(newSP)
	ctrl := t.Trap()
	t.Regs().SetStack(sp)
	if ctrl.Stop() {
		runtime.Goexit()
	}
	return t.Regs().Return()
}

// trapAt traps with the stack pointer set to sp.
func trapAt(t *Task, sp hostarch.Addr) {
	old := t.Regs().StackPointer()
	t.Regs().SetStack(sp)
	ctrl := t.Trap()
	t.Regs().SetStack(old)
	if ctrl.Stop() {
		runtime.Goexit()
	}
}

// putString stores s with a trailing NUL at addr in t's memory.
func putString(t *Task, addr hostarch.Addr, s string) hostarch.Addr {
	if _, err := t.MemoryManager().CopyOut(addr, append([]byte(s), 0)); err != nil {
		panic(err)
	}
	return addr
}

func exitWith(status int32) Entry {
	return func(t *Task) {
		doTrap(t, uint32(trap.SYS_EXIT), uint32(status))
	}
}

// exitWithArg exits with the status given as the first argument.
func exitWithArg(t *Task) {
	status, err := strconv.Atoi(t.Argv()[1])
	if err != nil {
		panic(err)
	}
	doTrap(t, uint32(trap.SYS_EXIT), uint32(int32(status)))
}

// putWord stores v at addr in t's memory.
func putWord(t *Task, addr hostarch.Addr, v uint32) {
	if err := usermem.CopyOutUint32(t.MemoryManager(), addr, v); err != nil {
		panic(err)
	}
}

// atomic32 is a flag set by task goroutines and read by tests.
type atomic32 struct {
	v atomic.Int32
}

func (a *atomic32) set()      { a.v.Store(1) }
func (a *atomic32) get() bool { return a.v.Load() != 0 }
