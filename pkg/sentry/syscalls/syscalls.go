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

// Package syscalls is the interface from user tasks to the kernel. It
// provides helpers for building syscall tables.
package syscalls

import (
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
)

// Supported returns a syscall that is fully supported.
func Supported(name string, args int, returns bool, fn kernel.SyscallFn) kernel.Syscall {
	return kernel.Syscall{
		Name:    name,
		Args:    args,
		Returns: returns,
		Fn:      fn,
	}
}

// Error returns a syscall handler that will always give the passed error.
func Error(err error) kernel.SyscallFn {
	return func(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
		return 0, nil, err
	}
}
