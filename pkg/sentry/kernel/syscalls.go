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

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/sentry/arch"
)

// SyscallFn is a syscall implementation.
type SyscallFn func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error)

// Syscall includes the syscall implementation and compatibility information.
type Syscall struct {
	// Name is the syscall name.
	Name string

	// Args is the number of argument words read from the user stack.
	Args int

	// Returns indicates that the return value is written to Eax.
	Returns bool

	// Fn is the implementation of the syscall.
	Fn SyscallFn
}

// SyscallControl is returned by syscalls to control the behavior of the trap
// stub. A nil *SyscallControl means that user execution continues.
type SyscallControl struct {
	// stop indicates that the task must not return to user code.
	stop bool
}

// CtrlStop is returned by syscalls after which the task stops executing user
// code, such as exit and halt.
var CtrlStop = &SyscallControl{stop: true}

// Stop returns true if the task must stop executing user code.
func (c *SyscallControl) Stop() bool {
	return c != nil && c.stop
}

// SyscallTable is a lookup table of system calls.
type SyscallTable struct {
	// Arch is the architecture that this syscall table targets.
	Arch arch.Arch

	// Table is the collection of functions, indexed by syscall number.
	Table [trap.NumSyscalls]Syscall
}

// Lookup returns the syscall for sysno, or false if sysno is not
// implemented.
func (s *SyscallTable) Lookup(sysno trap.Sysno) (*Syscall, bool) {
	if !sysno.Valid() || s.Table[sysno].Fn == nil {
		return nil, false
	}
	return &s.Table[sysno], true
}

// Validate checks that every entry of s is well formed.
func (s *SyscallTable) Validate() error {
	for i := range s.Table {
		sysno := trap.Sysno(i)
		sc := &s.Table[i]
		if sc.Fn == nil {
			continue
		}
		if sc.Name != sysno.String() {
			return fmt.Errorf("syscall %d is named %q, want %q", i, sc.Name, sysno)
		}
		if sc.Args < 0 || sc.Args > trap.MaxArgs {
			return fmt.Errorf("syscall %s takes %d arguments, at most %d allowed", sysno, sc.Args, trap.MaxArgs)
		}
	}
	return nil
}

// Stracer traces syscall execution.
type Stracer interface {
	// SyscallEnter is called on syscall entry with marshaled arguments. The
	// returned value is passed to SyscallExit.
	SyscallEnter(t *Task, sysno trap.Sysno, args arch.SyscallArguments) any

	// SyscallExit is called on syscall exit, unless the syscall stopped the
	// task.
	SyscallExit(info any, t *Task, sysno trap.Sysno, rval uintptr, err error)
}
