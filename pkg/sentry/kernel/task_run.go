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

import (
	"runtime/debug"

	"gvisor.dev/trapgate/pkg/abi/trap"
)

// run is the task goroutine.
func (t *Task) run() {
	defer t.k.running.Done()
	defer func() {
		if r := recover(); r != nil {
			t.k.faultLog.Warningf("%sKilled by panic in user code: %v", t.logPrefix, r)
			t.Debugf("Panic stack:\n%s", debug.Stack())
			t.exit(trap.ExitAbnormal, exitForced)
			return
		}
		// User code stopped without exiting: the kernel halted.
		t.exit(trap.ExitAbnormal, exitHalted)
	}()

	entry, err := t.k.loader.Load(t, t.argv)
	if err != nil {
		t.Debugf("Load of %q failed: %v", t.argv[0], err)
		t.loadState = LoadFailed
		t.exit(trap.ExitAbnormal, exitForced)
		return
	}
	t.loadState = LoadSucceeded
	t.loaded.Fire()
	t.Debugf("Loaded, sp %v", t.regs.StackPointer())

	entry(t)
	if !t.exiting {
		t.Warningf("User code returned without exiting")
		t.exit(trap.ExitAbnormal, exitForced)
	}
}
