// Copyright 2021 The gVisor Authors.
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

// Package linuxerr contains syscall error codes exported as error interface
// pointers, so that they can be compared and returned as cheaply as
// unix.Errno constants.
package linuxerr

import (
	"golang.org/x/sys/unix"
	"gvisor.dev/trapgate/pkg/errors"
)

// The following errors carry the same numbers as their unix.Errno
// counterparts (unix.Errno(EBADF.Errno()) == unix.EBADF), but are distinct
// values; use Equals or ToUnix to compare across the two.
var (
	ENOENT       = errors.New(unix.ENOENT, "no such file or directory")
	EBADF        = errors.New(unix.EBADF, "bad file number")
	ECHILD       = errors.New(unix.ECHILD, "no child processes")
	ENOEXEC      = errors.New(unix.ENOEXEC, "exec format error")
	EFAULT       = errors.New(unix.EFAULT, "bad address")
	EINVAL       = errors.New(unix.EINVAL, "invalid argument")
	ENFILE       = errors.New(unix.ENFILE, "file table overflow")
	ENOSYS       = errors.New(unix.ENOSYS, "invalid system call number")
	ENAMETOOLONG = errors.New(unix.ENAMETOOLONG, "file name too long")
	ENOMEM       = errors.New(unix.ENOMEM, "out of memory")
)

var errnoMap = map[unix.Errno]*errors.Error{
	unix.ENOENT:       ENOENT,
	unix.EBADF:        EBADF,
	unix.ECHILD:       ECHILD,
	unix.ENOEXEC:      ENOEXEC,
	unix.EFAULT:       EFAULT,
	unix.EINVAL:       EINVAL,
	unix.ENFILE:       ENFILE,
	unix.ENOSYS:       ENOSYS,
	unix.ENAMETOOLONG: ENAMETOOLONG,
	unix.ENOMEM:       ENOMEM,
}

// ErrorFromUnix returns the *errors.Error for the given errno, or nil if the
// errno has no declared counterpart.
func ErrorFromUnix(err unix.Errno) *errors.Error {
	if err == 0 {
		return nil
	}
	return errnoMap[err]
}

// ToUnix converts an error to a unix.Errno. Errors that do not carry an errno
// yield EINVAL.
func ToUnix(err error) unix.Errno {
	switch e := err.(type) {
	case nil:
		return 0
	case *errors.Error:
		return e.Errno()
	case unix.Errno:
		return e
	default:
		return unix.EINVAL
	}
}

// Equals compares a linuxerr to a given error.
func Equals(e *errors.Error, err error) bool {
	if err == nil {
		return e == nil
	}
	if e == nil {
		return false
	}
	return e == err || ToUnix(err) == e.Errno()
}
