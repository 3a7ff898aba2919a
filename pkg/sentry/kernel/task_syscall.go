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
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/metric"
	"gvisor.dev/trapgate/pkg/sentry/arch"
)

// unknownSyscallName is the metric field value for unknown syscall numbers.
const unknownSyscallName = "unknown"

var syscallCounter = metric.MustCreateNewUint64Metric("/kernel/syscalls", "Number of syscalls dispatched, by syscall.",
	metric.NewField("syscall", syscallNames()))

var taskExits = metric.MustCreateNewUint64Metric("/kernel/task_exits", "Number of task exits, by kind.",
	metric.NewField("kind", []string{exitNormal, exitForced}))

func syscallNames() []string {
	names := make([]string, 0, trap.NumSyscalls+1)
	for s := trap.Sysno(0); s < trap.NumSyscalls; s++ {
		names = append(names, s.String())
	}
	return append(names, unknownSyscallName)
}

// Trap handles a syscall trap. The syscall number is the word at the user
// stack pointer and argument words follow it. On return, Eax holds the
// result of value-returning syscalls.
//
// If the returned control says to stop, the caller must not run any more user
// code; user-side trap stubs end the task goroutine with runtime.Goexit.
// Once the kernel has halted, every trap stops the task without running the
// syscall.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Trap() *SyscallControl {
	if t.exiting {
		return CtrlStop
	}
	if t.k.IsHalted() {
		t.exit(trap.ExitAbnormal, exitHalted)
		return CtrlStop
	}
	return t.doSyscall()
}

// doSyscall is the syscall dispatcher.
func (t *Task) doSyscall() *SyscallControl {
	sp := t.regs.StackPointer()
	word, err := t.CopyInWord(sp)
	if err != nil {
		t.Debugf("Bad syscall number address %v", sp)
		return t.fault(err)
	}
	sysno := trap.Sysno(word)

	s, ok := t.k.table.Lookup(sysno)
	if !ok {
		return t.unknownSyscall(sysno)
	}

	args, err := t.marshalArgs(sp, s.Args)
	if err != nil {
		t.Debugf("Bad argument address for %s at sp %v", s.Name, sp)
		return t.fault(err)
	}
	syscallCounter.Increment(s.Name)

	var info any
	if t.k.stracer != nil {
		info = t.k.stracer.SyscallEnter(t, sysno, args)
	}
	rval, ctrl, err := s.Fn(t, args)
	if ctrl.Stop() {
		return ctrl
	}
	if t.k.stracer != nil {
		t.k.stracer.SyscallExit(info, t, sysno, rval, err)
	}
	if err != nil {
		if linuxerr.Equals(linuxerr.EFAULT, err) {
			return t.fault(err)
		}
		t.Debugf("%s failed: %v", s.Name, err)
		rval = uintptr(trap.Failure)
	}
	if s.Returns {
		t.regs.SetReturn(uint32(rval))
	}
	return ctrl
}

// marshalArgs reads n argument words following the syscall number at sp.
func (t *Task) marshalArgs(sp hostarch.Addr, n int) (arch.SyscallArguments, error) {
	var args arch.SyscallArguments
	for i := 0; i < n; i++ {
		addr := sp + hostarch.Addr((i+1)*trap.WordSize)
		if addr < sp {
			return args, linuxerr.EFAULT
		}
		v, err := t.CopyInWord(addr)
		if err != nil {
			return args, err
		}
		args[i].Value = v
	}
	return args, nil
}

// unknownSyscall applies the kernel's unknown syscall policy.
func (t *Task) unknownSyscall(sysno trap.Sysno) *SyscallControl {
	syscallCounter.Increment(unknownSyscallName)
	if t.k.unknownSyscall == UnknownSyscallENOSYS {
		t.Debugf("Unknown syscall %d", uint32(sysno))
		t.regs.SetReturn(trap.Failure)
		return nil
	}
	t.Debugf("Unknown syscall %d, killing task", uint32(sysno))
	return t.fault(linuxerr.ENOSYS)
}

// fault terminates t after an invalid request.
func (t *Task) fault(err error) *SyscallControl {
	t.k.faultLog.Warningf("%sKilled: %v", t.logPrefix, err)
	t.exit(trap.ExitAbnormal, exitForced)
	return CtrlStop
}
