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

// Exec implements the exec syscall. It starts a child task for cmdline and
// blocks until the child has tried to load its image. It returns the child's
// ID, or an error if the child could not be started or loaded. A child that
// failed to load is abandoned and can never be waited for.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Exec(cmdline string) (ThreadID, *SyscallControl, error) {
	child, err := t.k.spawn(t, cmdline)
	if err == ErrHalted {
		return -1, CtrlStop, nil
	}
	if err != nil {
		t.Debugf("Exec of %q failed: %v", cmdline, err)
		return -1, nil, err
	}

	select {
	case <-child.loaded.Done():
	case <-t.k.haltedCh:
		return -1, CtrlStop, nil
	}

	c := t.lookupChild(child.tid)
	if c == nil {
		return -1, nil, linuxerr.ECHILD
	}
	if c.loadState != LoadSucceeded {
		t.abandonChild(c)
		return -1, nil, linuxerr.ENOEXEC
	}
	return c.tid, nil, nil
}

// lookupChild returns the child of t with the given ID that has not been
// waited for or abandoned, or nil.
func (t *Task) lookupChild(tid ThreadID) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.children[tid]
}

// abandonChild gives up t's interest in c.
func (t *Task) abandonChild(c *Task) {
	t.mu.Lock()
	delete(t.children, c.tid)
	t.mu.Unlock()
	c.decRef()
}

// abandonChildren gives up t's interest in all of its children.
func (t *Task) abandonChildren() {
	t.mu.Lock()
	children := t.children
	t.children = make(map[ThreadID]*Task)
	t.mu.Unlock()
	for _, c := range children {
		c.decRef()
	}
}
