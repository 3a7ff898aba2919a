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
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
)

// Halt implements the halt syscall.
func Halt(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, t.Halt(), nil
}

// Exit implements the exit syscall.
func Exit(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, t.Exit(args[0].Int()), nil
}

// Exec implements the exec syscall.
func Exec(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	cmdline, err := t.CopyInString(args[0].Pointer())
	if err != nil {
		return 0, nil, err
	}
	tid, ctrl, err := t.Exec(cmdline)
	return uintptr(tid), ctrl, err
}

// Wait implements the wait syscall.
func Wait(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	status, ctrl, err := t.Wait(kernel.ThreadID(args[0].Int()))
	return uintptr(uint32(status)), ctrl, err
}
