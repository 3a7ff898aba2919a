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

package userprog

import (
	"fmt"
	"strconv"
	"strings"

	"gvisor.dev/trapgate/pkg/userlib"
)

// Halt powers off the machine.
func Halt(p *userlib.Proc, argv []string) int {
	p.Halt()
	return 0
}

// ExecChild runs a child, by default "child-simple", and waits for it.
func ExecChild(p *userlib.Proc, argv []string) int {
	cmdline := "child-simple"
	if len(argv) > 1 {
		cmdline = strings.Join(argv[1:], " ")
	}
	pid := p.Exec(cmdline)
	if pid < 0 {
		p.Print(fmt.Sprintf("exec-child: exec(%q) failed\n", cmdline))
		return 1
	}
	status := p.Wait(pid)
	p.Print(fmt.Sprintf("exec-child: wait(exec(%q)) = %d\n", cmdline, status))
	return 0
}

// WaitTwice waits for the same child twice.
func WaitTwice(p *userlib.Proc, argv []string) int {
	pid := p.Exec("child-simple")
	if pid < 0 {
		return 1
	}
	first := p.Wait(pid)
	second := p.Wait(pid)
	p.Print(fmt.Sprintf("wait-twice: %d %d\n", first, second))
	if second != -1 {
		return 1
	}
	return 0
}

// childStatus is the default exit status of child-simple.
const childStatus = 81

// ChildSimple exits with the given status.
func ChildSimple(p *userlib.Proc, argv []string) int {
	status := childStatus
	if len(argv) > 1 {
		s, err := strconv.Atoi(argv[1])
		if err != nil {
			return 2
		}
		status = s
	}
	p.Print("child-simple: run\n")
	return status
}

// ChildBad makes a syscall with an invalid pointer and is killed.
func ChildBad(p *userlib.Proc, argv []string) int {
	p.Print("child-bad: run\n")
	BadPtr(p, []string{"bad-ptr", "kernel"})
	return 0
}
