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

// Package userprog contains the built-in user programs.
package userprog

import (
	"gvisor.dev/trapgate/pkg/sentry/loader"
)

// Programs returns every built-in program.
func Programs() []loader.Program {
	return []loader.Program{
		{Name: "echo", Usage: "echo [args...]", Main: Echo},
		{Name: "cat", Usage: "cat [files...]", Main: Cat},
		{Name: "cp", Usage: "cp src dst", Main: Cp},
		{Name: "mkfile", Usage: "mkfile name [words...]", Main: Mkfile},
		{Name: "rm", Usage: "rm files...", Main: Rm},
		{Name: "halt", Usage: "halt", Main: Halt},
		{Name: "exec-child", Usage: "exec-child [cmdline...]", Main: ExecChild},
		{Name: "wait-twice", Usage: "wait-twice", Main: WaitTwice},
		{Name: "child-simple", Usage: "child-simple [status]", Main: ChildSimple},
		{Name: "child-bad", Usage: "child-bad", Main: ChildBad},
		{Name: "bad-ptr", Usage: "bad-ptr [null|kernel|unmapped]", Main: BadPtr},
		{Name: "bad-buf", Usage: "bad-buf [kernel|unmapped]", Main: BadBuf},
		{Name: "bad-sp", Usage: "bad-sp [null|kernel|straddle]", Main: BadSP},
		{Name: "open-twice", Usage: "open-twice file", Main: OpenTwice},
		{Name: "fd-leak", Usage: "fd-leak file [count]", Main: FDLeak},
	}
}
