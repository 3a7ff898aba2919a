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

// Package trap contains the implementation of the trap ABI syscalls.
package trap

import (
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
	"gvisor.dev/trapgate/pkg/sentry/syscalls"
)

// I386 is the trap ABI syscall table.
var I386 = &kernel.SyscallTable{
	Arch: arch.I386,
	Table: [trap.NumSyscalls]kernel.Syscall{
		trap.SYS_HALT:     syscalls.Supported("halt", 0, false, Halt),
		trap.SYS_EXIT:     syscalls.Supported("exit", 1, false, Exit),
		trap.SYS_EXEC:     syscalls.Supported("exec", 1, true, Exec),
		trap.SYS_WAIT:     syscalls.Supported("wait", 1, true, Wait),
		trap.SYS_CREATE:   syscalls.Supported("create", 2, true, Create),
		trap.SYS_REMOVE:   syscalls.Supported("remove", 1, true, Remove),
		trap.SYS_OPEN:     syscalls.Supported("open", 1, true, Open),
		trap.SYS_FILESIZE: syscalls.Supported("filesize", 1, true, Filesize),
		trap.SYS_READ:     syscalls.Supported("read", 3, true, Read),
		trap.SYS_WRITE:    syscalls.Supported("write", 3, true, Write),
		trap.SYS_SEEK:     syscalls.Supported("seek", 2, false, Seek),
		trap.SYS_TELL:     syscalls.Supported("tell", 1, true, Tell),
		trap.SYS_CLOSE:    syscalls.Supported("close", 1, false, Close),
	},
}
