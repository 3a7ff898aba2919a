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
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
	"gvisor.dev/trapgate/pkg/sentry/vfs"
)

func boolRet(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

// getFile returns the open file for fd.
func getFile(t *kernel.Task, fd int32) (vfs.FileDescription, error) {
	file, ok := t.FDTable().Get(fd)
	if !ok {
		return nil, linuxerr.EBADF
	}
	return file, nil
}

// copyInName copies in a file name. A name too long to name any file is
// reported as ok == false rather than as an error.
func copyInName(t *kernel.Task, args arch.SyscallArguments) (name string, ok bool, err error) {
	name, err = t.CopyInString(args[0].Pointer())
	if linuxerr.Equals(linuxerr.ENAMETOOLONG, err) {
		t.Debugf("File name too long")
		return "", false, nil
	}
	return name, err == nil && name != "", err
}

// Create implements the create syscall.
func Create(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	name, ok, err := copyInName(t, args)
	if !ok {
		return 0, nil, err
	}
	size := args[1].Uint()
	return boolRet(t.Kernel().FS().Create(name, int64(size))), nil, nil
}

// Remove implements the remove syscall.
func Remove(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	name, ok, err := copyInName(t, args)
	if !ok {
		return 0, nil, err
	}
	return boolRet(t.Kernel().FS().Remove(name)), nil, nil
}

// Open implements the open syscall.
func Open(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	name, err := t.CopyInString(args[0].Pointer())
	if err != nil {
		return 0, nil, err
	}
	if name == "" {
		return 0, nil, linuxerr.ENOENT
	}
	fs := t.Kernel().FS()
	file, ok := fs.Open(name)
	if !ok {
		return 0, nil, linuxerr.ENOENT
	}
	fd, err := t.FDTable().Add(file)
	if err != nil {
		fs.Close(file)
		return 0, nil, err
	}
	return uintptr(fd), nil, nil
}

// Filesize implements the filesize syscall.
func Filesize(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	file, err := getFile(t, args[0].Int())
	if err != nil {
		return 0, nil, err
	}
	return uintptr(t.Kernel().FS().Length(file)), nil, nil
}

// Seek implements the seek syscall.
func Seek(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	file, err := getFile(t, args[0].Int())
	if err != nil {
		return 0, nil, err
	}
	t.Kernel().FS().Seek(file, int64(args[1].Uint()))
	return 0, nil, nil
}

// Tell implements the tell syscall.
func Tell(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	file, err := getFile(t, args[0].Int())
	if err != nil {
		return 0, nil, err
	}
	return uintptr(t.Kernel().FS().Tell(file)), nil, nil
}

// Close implements the close syscall.
func Close(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	file := t.FDTable().Remove(args[0].Int())
	if file == nil {
		return 0, nil, linuxerr.EBADF
	}
	t.Kernel().FS().Close(file)
	return 0, nil, nil
}
