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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/sentry/arch"
)

// execAt runs the exec syscall for cmdline and returns its result.
func execAt(t *Task, cmdline string) int32 {
	return int32(doTrap(t, uint32(trap.SYS_EXEC), uint32(putString(t, dataStart, cmdline))))
}

func waitFor(t *Task, tid int32) int32 {
	return int32(doTrap(t, uint32(trap.SYS_WAIT), uint32(tid)))
}

func TestExecWait(t *testing.T) {
	var pid, first, second int32
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			pid = execAt(task, "child 42")
			first = waitFor(task, pid)
			second = waitFor(task, pid)
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
		"child": exitWithArg,
	}}, newTestTable(nil))

	if status := tk.run(t, "parent"); status != 0 {
		t.Fatalf("parent exit status: got %d, want 0", status)
	}
	tk.Wait()
	if pid <= 0 {
		t.Errorf("exec: got %d, want a pid", pid)
	}
	if first != 42 {
		t.Errorf("first wait: got %d, want 42", first)
	}
	if second != -1 {
		t.Errorf("second wait: got %d, want -1", second)
	}
	if diff := cmp.Diff("child: exit(42)\nparent: exit(0)\n", tk.console.Output()); diff != "" {
		t.Errorf("console mismatch (-want +got):\n%s", diff)
	}
	if tids := tk.TaskIDs(); len(tids) != 0 {
		t.Errorf("tasks not released: %v", tids)
	}
}

func TestExecMissing(t *testing.T) {
	var pid int32
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			pid = execAt(task, "nonexistent_binary")
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
	}}, newTestTable(nil))

	done := make(chan struct{})
	go func() {
		tk.RunInit(context.Background(), "parent")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("exec of a missing binary blocked")
	}
	tk.Wait()
	if pid != -1 {
		t.Errorf("exec: got %d, want -1", pid)
	}
	if !strings.Contains(tk.console.Output(), "nonexistent_bin: exit(-1)\n") {
		t.Errorf("console %q does not report the failed child", tk.console.Output())
	}
	if tids := tk.TaskIDs(); len(tids) != 0 {
		t.Errorf("tasks not released: %v", tids)
	}
}

func TestExecEmpty(t *testing.T) {
	var pid int32
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			pid = execAt(task, "   ")
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
	}}, newTestTable(nil))
	tk.run(t, "parent")
	if pid != -1 {
		t.Errorf("exec: got %d, want -1", pid)
	}
	if _, err := tk.RunInit(context.Background(), ""); err == nil {
		t.Errorf("RunInit of an empty command line succeeded")
	}
}

func TestExecBadPointer(t *testing.T) {
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			doTrap(task, uint32(trap.SYS_EXEC), trap.UserHigh)
		},
	}}, newTestTable(nil))
	if status := tk.run(t, "parent"); status != trap.ExitAbnormal {
		t.Errorf("exit status: got %d, want %d", status, trap.ExitAbnormal)
	}
}

func TestWaitInvalid(t *testing.T) {
	var results []int32
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			self := int32(task.ThreadID())
			results = append(results, waitFor(task, self))
			results = append(results, waitFor(task, 12345))
			results = append(results, waitFor(task, -1))

			// A grandchild is not a child.
			child := execAt(task, "middle")
			grandchild := waitFor(task, child)
			results = append(results, waitFor(task, grandchild))
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
		"middle": func(task *Task) {
			pid := execAt(task, "leaf")
			waitFor(task, pid)
			// Report the grandchild's pid as the exit status.
			doTrap(task, uint32(trap.SYS_EXIT), uint32(pid))
		},
		"leaf": exitWith(1),
	}}, newTestTable(nil))
	tk.run(t, "parent")
	if diff := cmp.Diff([]int32{-1, -1, -1, -1}, results); diff != "" {
		t.Errorf("wait results mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitBlocks(t *testing.T) {
	release := make(chan struct{})
	waited := make(chan int32, 1)
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			pid := execAt(task, "child")
			waited <- waitFor(task, pid)
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
		"child": func(task *Task) {
			<-release
			doTrap(task, uint32(trap.SYS_EXIT), 9)
		},
	}}, newTestTable(nil))

	done := make(chan struct{})
	go func() {
		tk.RunInit(context.Background(), "parent")
		close(done)
	}()

	select {
	case status := <-waited:
		t.Fatalf("wait returned %d before the child exited", status)
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	if status := <-waited; status != 9 {
		t.Errorf("wait: got %d, want 9", status)
	}
	<-done
}

func TestExitAbandonsChildren(t *testing.T) {
	release := make(chan struct{})
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			execAt(task, "child")
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
		"child": func(task *Task) {
			<-release
			doTrap(task, uint32(trap.SYS_EXIT), 1)
		},
	}}, newTestTable(nil))

	tk.run(t, "parent")
	if n := len(tk.TaskIDs()); n != 1 {
		t.Errorf("got %d live tasks, want 1 (the running child)", n)
	}
	close(release)
	tk.Wait()
	if tids := tk.TaskIDs(); len(tids) != 0 {
		t.Errorf("abandoned child not released: %v", tids)
	}
}

func TestExitClosesFiles(t *testing.T) {
	files := []*testFile{{}, {}}
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"prog": func(task *Task) {
			for _, f := range files {
				task.FDTable().Add(f)
			}
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
	}}, newTestTable(nil))
	tk.run(t, "prog")
	for i, f := range files {
		if !f.closed {
			t.Errorf("file %d not closed at exit", i)
		}
	}
}

func TestForcedExits(t *testing.T) {
	before := taskExits.Value(exitForced)
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"panics": func(*Task) {
			var m map[string]int
			m["x"] = 1
		},
		"returns": func(*Task) {},
	}}, newTestTable(nil))
	for _, prog := range []string{"panics", "returns"} {
		if status := tk.run(t, prog); status != trap.ExitAbnormal {
			t.Errorf("%s: exit status %d, want %d", prog, status, trap.ExitAbnormal)
		}
	}
	if got := taskExits.Value(exitForced) - before; got != 2 {
		t.Errorf("forced exits: got %d, want 2", got)
	}
	if diff := cmp.Diff("panics: exit(-1)\nreturns: exit(-1)\n", tk.console.Output()); diff != "" {
		t.Errorf("console mismatch (-want +got):\n%s", diff)
	}
}

func TestHalt(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	waiting := make(chan struct{})
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"waiter": func(task *Task) {
			pid := execAt(task, "sleeper")
			close(waiting)
			waitFor(task, pid)
			panic("wait returned after halt")
		},
		"sleeper": func(task *Task) {
			<-release
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
		"halt": func(task *Task) {
			<-waiting
			doTrap(task, uint32(trap.SYS_HALT))
			panic("halt returned")
		},
	}}, newTestTable(nil))

	var g errgroup.Group
	for _, cmdline := range []string{"waiter", "halt"} {
		cmdline := cmdline
		g.Go(func() error {
			_, err := tk.RunInit(context.Background(), cmdline)
			if !errors.Is(err, ErrHalted) {
				return fmt.Errorf("RunInit(%q): got %v, want ErrHalted", cmdline, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Error(err)
	}
	if n := tk.shutdown.calls.Load(); n != 1 {
		t.Errorf("PowerOff called %d times, want 1", n)
	}
	if out := tk.console.Output(); strings.Contains(out, "waiter") || strings.Contains(out, "halt") {
		t.Errorf("stopped tasks reported an exit: %q", out)
	}
	if _, err := tk.RunInit(context.Background(), "waiter"); !errors.Is(err, ErrHalted) {
		t.Errorf("RunInit after halt: got %v, want ErrHalted", err)
	}
}

func TestHaltStopsRunningTasks(t *testing.T) {
	running := make(chan struct{})
	resume := make(chan struct{})
	var tells, returned atomic.Int32
	table := newTestTable(map[trap.Sysno]SyscallFn{
		trap.SYS_TELL: func(task *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error) {
			tells.Add(1)
			return 0, nil, nil
		},
	})
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"runner": func(task *Task) {
			close(running)
			<-resume
			for i := 0; i < 3; i++ {
				doTrap(task, uint32(trap.SYS_TELL), 2)
				returned.Add(1)
			}
			doTrap(task, uint32(trap.SYS_EXIT), 7)
		},
	}}, table)

	errCh := make(chan error, 1)
	go func() {
		status, err := tk.RunInit(context.Background(), "runner")
		if err == nil {
			err = fmt.Errorf("exited with status %d", status)
		}
		errCh <- err
	}()
	<-running
	tk.Halt()
	close(resume)
	if err := <-errCh; !errors.Is(err, ErrHalted) {
		t.Errorf("RunInit: got %v, want ErrHalted", err)
	}
	tk.Wait()

	if n := tells.Load(); n != 0 {
		t.Errorf("tell ran %d times after halt", n)
	}
	if n := returned.Load(); n != 0 {
		t.Errorf("%d traps returned to user code after halt", n)
	}
	if out := tk.console.Output(); out != "" {
		t.Errorf("console: got %q, want nothing", out)
	}
}

func TestConcurrentFamilies(t *testing.T) {
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"parent": func(task *Task) {
			var sum int32
			for i := int32(1); i <= 4; i++ {
				pid := execAt(task, fmt.Sprintf("child %d", i))
				sum += waitFor(task, pid)
			}
			doTrap(task, uint32(trap.SYS_EXIT), uint32(sum))
		},
		"child": exitWithArg,
	}}, newTestTable(nil))

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			status, err := tk.RunInit(context.Background(), "parent")
			if err != nil {
				return err
			}
			if status != 10 {
				return fmt.Errorf("parent exit status: got %d, want 10", status)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	tk.Wait()
	if tids := tk.TaskIDs(); len(tids) != 0 {
		t.Errorf("tasks not released: %v", tids)
	}
}

func TestRunInitContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	tk := newTestKernel(t, &testLoader{progs: map[string]Entry{
		"sleeper": func(task *Task) {
			<-release
			doTrap(task, uint32(trap.SYS_EXIT), 0)
		},
	}}, newTestTable(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := tk.RunInit(ctx, "sleeper"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunInit: got %v, want %v", err, context.DeadlineExceeded)
	}
}
