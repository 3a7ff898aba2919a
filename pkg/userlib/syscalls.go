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

package userlib

import (
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/hostarch"
)

// Halt powers off the machine. It does not return.
func (p *Proc) Halt() {
	p.Syscall(trap.SYS_HALT)
	panic("halt returned")
}

// Exit terminates the task with status. It does not return.
func (p *Proc) Exit(status int32) {
	p.Syscall(trap.SYS_EXIT, uint32(status))
	panic("exit returned")
}

// Exec starts cmdline and returns the child's ID, or -1.
func (p *Proc) Exec(cmdline string) int32 {
	m := p.mark()
	defer p.release(m)
	return int32(p.Syscall(trap.SYS_EXEC, uint32(p.CString(cmdline))))
}

// Wait waits for child pid and returns its exit status, or -1.
func (p *Proc) Wait(pid int32) int32 {
	return int32(p.Syscall(trap.SYS_WAIT, uint32(pid)))
}

// Create creates a file of the given size.
func (p *Proc) Create(name string, size uint32) bool {
	m := p.mark()
	defer p.release(m)
	return p.Syscall(trap.SYS_CREATE, uint32(p.CString(name)), size) != 0
}

// Remove removes a file.
func (p *Proc) Remove(name string) bool {
	m := p.mark()
	defer p.release(m)
	return p.Syscall(trap.SYS_REMOVE, uint32(p.CString(name))) != 0
}

// Open opens a file and returns its descriptor, or -1.
func (p *Proc) Open(name string) int32 {
	m := p.mark()
	defer p.release(m)
	return int32(p.Syscall(trap.SYS_OPEN, uint32(p.CString(name))))
}

// Filesize returns the size of the open file fd, or -1.
func (p *Proc) Filesize(fd int32) int32 {
	return int32(p.Syscall(trap.SYS_FILESIZE, uint32(fd)))
}

// Read reads up to n bytes from fd into buf and returns the count, or -1.
func (p *Proc) Read(fd int32, buf hostarch.Addr, n uint32) int32 {
	return int32(p.Syscall(trap.SYS_READ, uint32(fd), uint32(buf), n))
}

// Write writes n bytes from buf to fd and returns the count, or -1.
func (p *Proc) Write(fd int32, buf hostarch.Addr, n uint32) int32 {
	return int32(p.Syscall(trap.SYS_WRITE, uint32(fd), uint32(buf), n))
}

// Seek sets the position of fd.
func (p *Proc) Seek(fd int32, pos uint32) {
	p.Syscall(trap.SYS_SEEK, uint32(fd), pos)
}

// Tell returns the position of fd.
func (p *Proc) Tell(fd int32) uint32 {
	return p.Syscall(trap.SYS_TELL, uint32(fd))
}

// Close closes fd.
func (p *Proc) Close(fd int32) {
	p.Syscall(trap.SYS_CLOSE, uint32(fd))
}

// WriteString writes s to fd.
func (p *Proc) WriteString(fd int32, s string) int32 {
	if s == "" {
		return 0
	}
	m := p.mark()
	defer p.release(m)
	buf := p.Alloc(uint32(len(s)))
	p.Poke(buf, []byte(s))
	return p.Write(fd, buf, uint32(len(s)))
}

// Print writes s to the console.
func (p *Proc) Print(s string) {
	p.WriteString(trap.STDOUT_FILENO, s)
}
