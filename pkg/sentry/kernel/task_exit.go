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

import "fmt"

// Exit kinds.
const (
	exitNormal = "normal"
	exitForced = "forced"
	exitHalted = "halted"
)

// Exit implements the exit syscall: it records status, closes every open
// file, reports the termination on the console and wakes the parent.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Exit(status int32) *SyscallControl {
	t.exit(status, exitNormal)
	return CtrlStop
}

// exit tears down t. Only the first call has an effect.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) exit(status int32, kind string) {
	if t.exiting {
		return
	}
	t.exiting = true
	t.exitStatus = status
	t.exitKind = kind
	t.k.fs.CloseAll(t.fdTable.RemoveAll())

	if kind != exitHalted {
		t.k.console.Putbuf([]byte(fmt.Sprintf("%s: exit(%d)\n", t.name, status)))
		taskExits.Increment(kind)
		t.Infof("Exited with status %d (%s)", status, kind)
	} else {
		t.Debugf("Stopped by halt")
	}

	// A task that never loaded reports its exit before its parent's exec
	// returns.
	if !t.loaded.Fired() {
		t.loadState = LoadFailed
		t.loaded.Fire()
	}

	t.abandonChildren()
	t.exited.Fire()
	t.decRef()
}

// Halt implements the halt syscall.
func (t *Task) Halt() *SyscallControl {
	t.Infof("Halt requested")
	t.k.Halt()
	return CtrlStop
}
