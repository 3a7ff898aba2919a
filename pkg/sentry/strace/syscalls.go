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

// Package strace implements the logic to print out the input and the return
// value of each traced syscall.
package strace

import (
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
)

// FormatSpecifier values describe how an individual syscall argument should be
// formatted.
type FormatSpecifier int

// Valid FormatSpecifiers.
//
// Unless otherwise specified, values are formatted before syscall execution
// and not updated after syscall execution (the same value is output).
const (
	// Hex is just a hexadecimal number.
	Hex FormatSpecifier = iota

	// Int is a signed decimal number.
	Int

	// Size is an unsigned decimal number.
	Size

	// FD is a file descriptor.
	FD

	// TID is a thread ID returned by exec.
	TID

	// ReadBuffer is a buffer for a read-style call. The syscall return
	// value is used for the length.
	//
	// Formatted after syscall execution.
	ReadBuffer

	// WriteBuffer is a buffer for a write-style call. The following arg is
	// used for the length.
	//
	// Contents omitted after syscall execution.
	WriteBuffer

	// Path is a pointer to a NUL-terminated file name.
	Path

	// Cmdline is a pointer to a NUL-terminated command line.
	Cmdline
)

// defaultFormat is the syscall argument format to use if the actual format is
// not known. It formats all arguments as hex.
var defaultFormat = []FormatSpecifier{Hex, Hex, Hex, Hex}

// SyscallInfo captures the name and printing format of a syscall.
type SyscallInfo struct {
	// name is the name of the syscall.
	name string

	// format contains the format specifiers for each argument.
	//
	// Arguments without a corresponding entry in format will not be
	// printed.
	format []FormatSpecifier

	// result is the format of the return value, for syscalls that return
	// one.
	result FormatSpecifier
}

// makeSyscallInfo returns a SyscallInfo for a syscall.
func makeSyscallInfo(name string, f ...FormatSpecifier) SyscallInfo {
	return SyscallInfo{name: name, format: f, result: Int}
}

// SyscallMap maps syscalls into names and printing formats.
type SyscallMap map[trap.Sysno]SyscallInfo

// i386 is the format of every syscall of the trap ABI.
var i386 = SyscallMap{
	trap.SYS_HALT:     makeSyscallInfo("halt"),
	trap.SYS_EXIT:     makeSyscallInfo("exit", Int),
	trap.SYS_EXEC:     {name: "exec", format: []FormatSpecifier{Cmdline}, result: TID},
	trap.SYS_WAIT:     makeSyscallInfo("wait", TID),
	trap.SYS_CREATE:   makeSyscallInfo("create", Path, Size),
	trap.SYS_REMOVE:   makeSyscallInfo("remove", Path),
	trap.SYS_OPEN:     {name: "open", format: []FormatSpecifier{Path}, result: FD},
	trap.SYS_FILESIZE: makeSyscallInfo("filesize", FD),
	trap.SYS_READ:     makeSyscallInfo("read", FD, ReadBuffer, Size),
	trap.SYS_WRITE:    makeSyscallInfo("write", FD, WriteBuffer, Size),
	trap.SYS_SEEK:     makeSyscallInfo("seek", FD, Size),
	trap.SYS_TELL:     {name: "tell", format: []FormatSpecifier{FD}, result: Size},
	trap.SYS_CLOSE:    makeSyscallInfo("close", FD),
}

// syscallTable contains the syscalls for a specific Arch.
type syscallTable struct {
	// arch is the architecture this table targets.
	arch arch.Arch

	// syscalls contains the syscall mappings.
	syscalls SyscallMap
}

// syscallTables contains all syscall tables.
var syscallTables = []syscallTable{
	{
		arch:     arch.I386,
		syscalls: i386,
	},
}

// Lookup returns the SyscallMap for the Arch. The returned map must not be
// changed.
func Lookup(a arch.Arch) (SyscallMap, bool) {
	for _, s := range syscallTables {
		if s.arch == a {
			return s.syscalls, true
		}
	}
	return nil, false
}

// info returns the SyscallInfo for sysno, falling back to the default format
// for syscalls the map does not know.
func (s SyscallMap) info(sysno trap.Sysno) SyscallInfo {
	if info, ok := s[sysno]; ok {
		return info
	}
	return SyscallInfo{name: sysno.String(), format: defaultFormat, result: Hex}
}

var _ kernel.Stracer = (*Tracer)(nil)
