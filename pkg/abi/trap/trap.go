// Copyright 2026 The gVisor Authors.
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

// Package trap contains the constants of the 32-bit user trap ABI: syscall
// numbers, the user address bounds and the reserved descriptors.
//
// These values are shared with existing user binaries and must not change.
package trap

import "fmt"

// Sysno is a syscall number as found in the first word above the return
// address on the user stack.
type Sysno uint32

// Syscall numbers, in ABI order.
const (
	SYS_HALT Sysno = iota
	SYS_EXIT
	SYS_EXEC
	SYS_WAIT
	SYS_CREATE
	SYS_REMOVE
	SYS_OPEN
	SYS_FILESIZE
	SYS_READ
	SYS_WRITE
	SYS_SEEK
	SYS_TELL
	SYS_CLOSE

	// NumSyscalls is the number of defined syscalls.
	NumSyscalls
)

var sysnoNames = [NumSyscalls]string{
	SYS_HALT:     "halt",
	SYS_EXIT:     "exit",
	SYS_EXEC:     "exec",
	SYS_WAIT:     "wait",
	SYS_CREATE:   "create",
	SYS_REMOVE:   "remove",
	SYS_OPEN:     "open",
	SYS_FILESIZE: "filesize",
	SYS_READ:     "read",
	SYS_WRITE:    "write",
	SYS_SEEK:     "seek",
	SYS_TELL:     "tell",
	SYS_CLOSE:    "close",
}

// String implements fmt.Stringer.String.
func (s Sysno) String() string {
	if s < NumSyscalls {
		return sysnoNames[s]
	}
	return fmt.Sprintf("sys_%d", uint32(s))
}

// Valid returns true if s names a defined syscall.
func (s Sysno) Valid() bool {
	return s < NumSyscalls
}

// MaxArgs is the largest number of argument words any syscall takes.
const MaxArgs = 4

// WordSize is the size in bytes of a machine word on the user stack.
const WordSize = 4

// User address bounds. An address is in the user region iff it lies strictly
// between UserLow (the lowest user code address) and UserHigh (the start of
// the kernel's reserved region).
const (
	UserLow  = 0x08048000
	UserHigh = 0xc0000000
)

// Reserved descriptors.
const (
	STDIN_FILENO  = 0
	STDOUT_FILENO = 1

	// FirstFD is the first descriptor handed out by open.
	FirstFD = 2
)

// ExitAbnormal is the exit status of a task killed by the kernel.
const ExitAbnormal = -1

// Failure is the sentinel return value of failed syscalls.
const Failure = ^uint32(0)

// MaxPathLen is the longest file name or command line, excluding the
// terminating NUL, that the kernel will copy in.
const MaxPathLen = 4095

// MaxNameLen is the longest task name; longer names are truncated.
const MaxNameLen = 15
