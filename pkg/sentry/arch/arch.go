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

// Package arch provides abstractions around architecture-dependent details,
// such as syscall calling conventions, native types, etc.
package arch

import (
	"fmt"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/hostarch"
)

// Arch describes an architecture.
type Arch int

const (
	// I386 is the 32-bit x86 architecture of the trap ABI.
	I386 Arch = iota
)

// String implements fmt.Stringer.
func (a Arch) String() string {
	switch a {
	case I386:
		return "i386"
	default:
		return fmt.Sprintf("Arch(%d)", a)
	}
}

// Registers is the part of the trap frame visible to the syscall layer: the
// user stack pointer at the time of the trap and the accumulator that carries
// the return value back to user mode.
type Registers struct {
	Esp uint32
	Eax uint32
}

// StackPointer returns the user stack pointer.
func (r *Registers) StackPointer() hostarch.Addr {
	return hostarch.Addr(r.Esp)
}

// SetStack sets the user stack pointer.
func (r *Registers) SetStack(sp hostarch.Addr) {
	r.Esp = uint32(sp)
}

// Return returns the value of the return register.
func (r *Registers) Return() uint32 {
	return r.Eax
}

// SetReturn sets the return register.
func (r *Registers) SetReturn(v uint32) {
	r.Eax = v
}

// String implements fmt.Stringer.
func (r Registers) String() string {
	return fmt.Sprintf("esp=%#x eax=%#x", r.Esp, r.Eax)
}

// SyscallArgument is an argument word supplied to a syscall implementation.
// The methods used to access the argument are named after the ***C type
// name*** and they convert to the closest Go type available. For example,
// Int() refers to a 32-bit signed integer argument represented in Go as an
// int32.
//
// Using the accessor methods guarantees that the conversion between types
// is correct, taking into account size and signedness (i.e., zero-extension vs
// signed-extension).
type SyscallArgument struct {
	// Prefer to use accessor methods instead of 'Value' directly.
	Value uint32
}

// SyscallArguments represents the set of arguments passed to a syscall.
// Unused trailing entries are zero.
type SyscallArguments [trap.MaxArgs]SyscallArgument

// Pointer returns the hostarch.Addr representation of a pointer argument.
func (a SyscallArgument) Pointer() hostarch.Addr {
	return hostarch.Addr(a.Value)
}

// Int returns the int32 representation of a 32-bit signed integer argument.
func (a SyscallArgument) Int() int32 {
	return int32(a.Value)
}

// Uint returns the uint32 representation of a 32-bit unsigned integer argument.
func (a SyscallArgument) Uint() uint32 {
	return a.Value
}

// SizeT returns the uint representation of a size_t argument.
func (a SyscallArgument) SizeT() uint {
	return uint(a.Value)
}
