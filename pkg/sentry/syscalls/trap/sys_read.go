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

package trap

import (
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
)

// Read implements the read syscall. Reads from STDIN_FILENO take one byte at
// a time from the console. The user buffer is filled after the filesystem
// lock has been released.
func Read(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].Uint()

	// Check the whole buffer before allocating a kernel copy of it.
	if err := t.CheckBuffer(addr, size); err != nil {
		return 0, nil, err
	}

	switch fd {
	case trap.STDIN_FILENO:
		buf := make([]byte, size)
		cons := t.Kernel().Console()
		for i := range buf {
			buf[i] = cons.Getc()
		}
		if _, err := t.CopyOutBytes(addr, buf); err != nil {
			return 0, nil, err
		}
		return uintptr(size), nil, nil
	case trap.STDOUT_FILENO:
		return 0, nil, linuxerr.EBADF
	}

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}
	buf := make([]byte, size)
	n := t.Kernel().FS().Read(file, buf)
	if _, err := t.CopyOutBytes(addr, buf[:n]); err != nil {
		return 0, nil, err
	}
	return uintptr(n), nil, nil
}

// Write implements the write syscall. Writes to STDOUT_FILENO go to the
// console in one piece. The user buffer is copied in before the filesystem
// lock is taken.
func Write(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].Uint()

	if err := t.CheckBuffer(addr, size); err != nil {
		return 0, nil, err
	}

	switch fd {
	case trap.STDIN_FILENO:
		return 0, nil, linuxerr.EBADF
	case trap.STDOUT_FILENO:
		buf := make([]byte, size)
		if _, err := t.CopyInBytes(addr, buf); err != nil {
			return 0, nil, err
		}
		t.Kernel().Console().Putbuf(buf)
		return uintptr(size), nil, nil
	}

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}
	buf := make([]byte, size)
	if _, err := t.CopyInBytes(addr, buf); err != nil {
		return 0, nil, err
	}
	return uintptr(t.Kernel().FS().Write(file, buf)), nil, nil
}
