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

// Package loader loads built-in programs into a task's address space.
package loader

import (
	"fmt"
	"sort"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
	"gvisor.dev/trapgate/pkg/userlib"
	"gvisor.dev/trapgate/pkg/usermem"
)

// Task image layout.
const (
	// CodeStart is the start of the code segment. It is the lowest address
	// of the image, and not itself a valid user address.
	CodeStart = hostarch.Addr(trap.UserLow)
	CodeSize  = 0x1000

	// HeapStart is the start of the heap, right after the code segment.
	HeapStart = CodeStart + CodeSize
	HeapSize  = 0x40000

	// StackStart is the lowest stack address. The stack ends at
	// trap.UserHigh.
	StackStart = hostarch.Addr(trap.UserHigh - StackSize)
	StackSize  = 0x8000

	// maxArgBytes bounds the size of the argument block on the stack.
	maxArgBytes = StackSize / 2
)

// Program is a built-in program.
type Program struct {
	// Name is the name used to run the program.
	Name string

	// Usage is a one-line description of the program's arguments.
	Usage string

	// Main is the program.
	Main userlib.Main
}

// Loader implements kernel.Loader for built-in programs.
type Loader struct {
	programs map[string]Program
}

var _ kernel.Loader = (*Loader)(nil)

// New returns a Loader for the given programs.
func New(programs []Program) (*Loader, error) {
	l := &Loader{programs: make(map[string]Program, len(programs))}
	for _, p := range programs {
		if p.Name == "" || len(p.Name) > trap.MaxNameLen {
			return nil, fmt.Errorf("invalid program name %q", p.Name)
		}
		if _, ok := l.programs[p.Name]; ok {
			return nil, fmt.Errorf("duplicate program %q", p.Name)
		}
		if p.Main == nil {
			return nil, fmt.Errorf("program %q has no main function", p.Name)
		}
		l.programs[p.Name] = p
	}
	return l, nil
}

// Programs returns the known programs sorted by name.
func (l *Loader) Programs() []Program {
	ps := make([]Program, 0, len(l.programs))
	for _, p := range l.programs {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps
}

// Load implements kernel.Loader.Load.
func (l *Loader) Load(t *kernel.Task, argv []string) (kernel.Entry, error) {
	p, ok := l.programs[argv[0]]
	if !ok {
		return nil, linuxerr.ENOEXEC
	}
	mm := t.MemoryManager()
	for _, seg := range []struct {
		start  hostarch.Addr
		length uint32
	}{
		{CodeStart, CodeSize},
		{HeapStart, HeapSize},
		{StackStart, StackSize},
	} {
		if err := mm.Map(seg.start, seg.length); err != nil {
			return nil, fmt.Errorf("mapping %#x bytes at %v: %w", seg.length, seg.start, err)
		}
	}
	if _, err := mm.CopyOut(CodeStart, []byte(p.Name)); err != nil {
		return nil, err
	}
	sp, err := setupStack(mm, argv)
	if err != nil {
		return nil, err
	}
	t.Regs().SetStack(sp)
	return func(t *kernel.Task) {
		userlib.Start(t, p.Main, HeapStart, HeapStart+HeapSize)
	}, nil
}

// setupStack lays out argv below trap.UserHigh and returns the initial stack
// pointer. From the top of the stack down: the argument strings, padding to
// a word boundary, a NULL sentinel, pointers to each argument, a pointer to
// the first of those, argc and a zero return address.
func setupStack(mm usermem.IO, argv []string) (hostarch.Addr, error) {
	size := 0
	for _, arg := range argv {
		size += len(arg) + 1 + trap.WordSize
	}
	if size+4*trap.WordSize > maxArgBytes {
		return 0, linuxerr.ENOMEM
	}

	sp := hostarch.Addr(trap.UserHigh)
	addrs := make([]uint32, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		sp -= hostarch.Addr(len(argv[i]) + 1)
		if _, err := mm.CopyOut(sp, append([]byte(argv[i]), 0)); err != nil {
			return 0, err
		}
		addrs[i] = uint32(sp)
	}
	sp &^= trap.WordSize - 1

	push := func(v uint32) error {
		sp -= trap.WordSize
		return usermem.CopyOutUint32(mm, sp, v)
	}
	if err := push(0); err != nil {
		return 0, err
	}
	for i := len(addrs) - 1; i >= 0; i-- {
		if err := push(addrs[i]); err != nil {
			return 0, err
		}
	}
	for _, v := range []uint32{uint32(sp), uint32(len(argv)), 0} {
		if err := push(v); err != nil {
			return 0, err
		}
	}
	return sp, nil
}
