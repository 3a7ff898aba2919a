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

// Package userlib is the user-side runtime of built-in programs: the trap
// stubs that push syscall arguments on the user stack, and helpers for
// placing data in user memory.
//
// Everything here runs as user code on the task goroutine. User code reaches
// the kernel only through Task.Trap; its own memory accesses go straight to
// the task's address space and a bad one panics with a Fault, which the
// kernel treats like a page fault.
package userlib

import (
	"fmt"
	"runtime"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
	"gvisor.dev/trapgate/pkg/usermem"
)

// Main is the main function of a program. Its result is the exit status.
type Main func(p *Proc, argv []string) int

// Fault is the panic value of a bad user memory access.
type Fault struct {
	Addr hostarch.Addr
	Err  error
}

// Error implements error.Error.
func (f Fault) Error() string {
	return fmt.Sprintf("user fault at %v: %v", f.Addr, f.Err)
}

// Proc is the user-side view of a running task.
type Proc struct {
	t *kernel.Task

	// brk is the next free heap address and heapEnd the end of the heap.
	brk     hostarch.Addr
	heapEnd hostarch.Addr
}

// NewProc returns a Proc for t with the heap [heapStart, heapEnd).
func NewProc(t *kernel.Task, heapStart, heapEnd hostarch.Addr) *Proc {
	return &Proc{
		t:       t,
		brk:     heapStart,
		heapEnd: heapEnd,
	}
}

// Start is the entry point of a program: it reads argc and argv from the
// stack laid out by the loader, runs main and exits with its result.
func Start(t *kernel.Task, main Main, heapStart, heapEnd hostarch.Addr) {
	p := NewProc(t, heapStart, heapEnd)
	p.Exit(int32(main(p, p.args())))
}

// args reads argv. On entry the stack holds a return address, argc and a
// pointer to argv.
func (p *Proc) args() []string {
	sp := p.t.Regs().StackPointer()
	argc := p.PeekWord(sp + trap.WordSize)
	argvp := hostarch.Addr(p.PeekWord(sp + 2*trap.WordSize))
	argv := make([]string, 0, argc)
	for i := uint32(0); i < argc; i++ {
		argv = append(argv, p.PeekString(hostarch.Addr(p.PeekWord(argvp+hostarch.Addr(i*trap.WordSize)))))
	}
	return argv
}

// Task returns the task running p.
func (p *Proc) Task() *kernel.Task {
	return p.t
}

// Alloc reserves n bytes of heap, aligned to a word.
func (p *Proc) Alloc(n uint32) hostarch.Addr {
	addr := p.brk
	end, ok := addr.AddLength((n + trap.WordSize - 1) &^ (trap.WordSize - 1))
	if !ok || end > p.heapEnd {
		panic(Fault{Addr: addr, Err: fmt.Errorf("out of heap allocating %d bytes", n)})
	}
	p.brk = end
	return addr
}

// mark returns the heap position, for release.
func (p *Proc) mark() hostarch.Addr {
	return p.brk
}

// release frees everything allocated since m.
func (p *Proc) release(m hostarch.Addr) {
	p.brk = m
}

// CString copies s with a trailing NUL to a new heap allocation.
func (p *Proc) CString(s string) hostarch.Addr {
	addr := p.Alloc(uint32(len(s)) + 1)
	p.Poke(addr, append([]byte(s), 0))
	return addr
}

// Poke writes b at addr.
func (p *Proc) Poke(addr hostarch.Addr, b []byte) {
	if _, err := p.t.MemoryManager().CopyOut(addr, b); err != nil {
		panic(Fault{Addr: addr, Err: err})
	}
}

// Peek reads n bytes at addr.
func (p *Proc) Peek(addr hostarch.Addr, n uint32) []byte {
	b := make([]byte, n)
	if _, err := p.t.MemoryManager().CopyIn(addr, b); err != nil {
		panic(Fault{Addr: addr, Err: err})
	}
	return b
}

// PokeWord writes the word v at addr.
func (p *Proc) PokeWord(addr hostarch.Addr, v uint32) {
	if err := usermem.CopyOutUint32(p.t.MemoryManager(), addr, v); err != nil {
		panic(Fault{Addr: addr, Err: err})
	}
}

// PeekWord reads the word at addr.
func (p *Proc) PeekWord(addr hostarch.Addr) uint32 {
	v, err := usermem.CopyInUint32(p.t.MemoryManager(), addr)
	if err != nil {
		panic(Fault{Addr: addr, Err: err})
	}
	return v
}

// PeekString reads the NUL-terminated string at addr.
func (p *Proc) PeekString(addr hostarch.Addr) string {
	var s []byte
	for {
		b := p.Peek(addr+hostarch.Addr(len(s)), 1)
		if b[0] == 0 {
			return string(s)
		}
		s = append(s, b[0])
	}
}

// Syscall pushes sysno and args on the stack and traps. It returns Eax. If
// the kernel stops the task, Syscall does not return.
func (p *Proc) Syscall(sysno trap.Sysno, args ...uint32) uint32 {
	regs := p.t.Regs()
	sp := regs.StackPointer()
	newSP := sp - hostarch.Addr((len(args)+1)*trap.WordSize)
	p.PokeWord(newSP, uint32(sysno))
	for i, a := range args {
		p.PokeWord(newSP+hostarch.Addr((i+1)*trap.WordSize), a)
	}
	return p.RawTrap(newSP)
}

// RawTrap traps with the stack pointer set to sp, whatever it holds. It
// returns Eax. If the kernel stops the task, RawTrap does not return.
func (p *Proc) RawTrap(sp hostarch.Addr) uint32 {
	regs := p.t.Regs()
	old := regs.StackPointer()
	regs.SetStack(sp)
	ctrl := p.t.Trap()
	regs.SetStack(old)
	if ctrl.Stop() {
		runtime.Goexit()
	}
	return regs.Return()
}
