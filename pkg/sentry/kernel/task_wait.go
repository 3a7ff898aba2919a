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

import "gvisor.dev/trapgate/pkg/errors/linuxerr"

// Wait implements the wait syscall. If tid is a child of t that has not been
// waited for, Wait blocks until it exits and returns its exit status.
// Otherwise it returns ECHILD immediately.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Wait(tid ThreadID) (int32, *SyscallControl, error) {
	t.mu.Lock()
	c, ok := t.children[tid]
	if ok {
		delete(t.children, tid)
	}
	t.mu.Unlock()
	if !ok {
		t.Debugf("Wait for %d: not a waitable child", tid)
		return -1, nil, linuxerr.ECHILD
	}

	select {
	case <-c.exited.Done():
	case <-t.k.haltedCh:
		if !c.exited.Fired() {
			go c.decRefOnExit()
			return -1, CtrlStop, nil
		}
	}
	status := c.exitStatus
	c.decRef()
	return status, nil, nil
}
