// Copyright 2026 The gVisor Authors.
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

// Package hostarch describes the user address space of the 32-bit trap ABI.
package hostarch

import (
	"fmt"

	"gvisor.dev/trapgate/pkg/abi/trap"
)

// Addr represents a user virtual address.
type Addr uint32

// String implements fmt.Stringer.String.
func (v Addr) String() string {
	return fmt.Sprintf("%#x", uint32(v))
}

// AddLength adds the given length to start and returns the result. ok is true
// iff adding the length did not overflow Addr.
//
// Note that the sum can be zero only when length is zero.
func (v Addr) AddLength(length uint32) (end Addr, ok bool) {
	end = v + Addr(length)
	ok = end >= v
	return
}

// ToRange returns [v, v+length).
func (v Addr) ToRange(length uint32) (AddrRange, bool) {
	end, ok := v.AddLength(length)
	return AddrRange{v, end}, ok
}

// AddrRange is a range of Addrs.
type AddrRange struct {
	// Start is the inclusive start of the range.
	Start Addr

	// End is the exclusive end of the range.
	End Addr
}

// Length returns the length of the range.
func (ar AddrRange) Length() uint32 {
	return uint32(ar.End - ar.Start)
}

// WellFormed returns true if ar.Start <= ar.End.
func (ar AddrRange) WellFormed() bool {
	return ar.Start <= ar.End
}

// Contains returns true if ar contains x.
func (ar AddrRange) Contains(x Addr) bool {
	return ar.Start <= x && x < ar.End
}

// IsSupersetOf returns true if ar is a superset of other.
func (ar AddrRange) IsSupersetOf(other AddrRange) bool {
	return ar.Start <= other.Start && other.End <= ar.End
}

// String implements fmt.Stringer.String.
func (ar AddrRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", uint32(ar.Start), uint32(ar.End))
}

// Bounds are the exclusive limits of the user region. An address a is a user
// address iff Low < a < High.
type Bounds struct {
	Low  Addr
	High Addr
}

// UserBounds are the bounds of the trap ABI.
var UserBounds = Bounds{
	Low:  trap.UserLow,
	High: trap.UserHigh,
}

// IsUserAddr returns true if a lies strictly inside the user region.
//
// This is necessary but not sufficient for a dereference to be safe: the
// address may still be unmapped.
func (b Bounds) IsUserAddr(a Addr) bool {
	return a > b.Low && a < b.High
}

// CheckRange returns the range [a, a+length) and true if every byte of it is
// a user address. A zero-length range only requires a to be a user address.
func (b Bounds) CheckRange(a Addr, length uint32) (AddrRange, bool) {
	if !b.IsUserAddr(a) {
		return AddrRange{}, false
	}
	ar, ok := a.ToRange(length)
	if !ok || ar.End > b.High {
		return AddrRange{}, false
	}
	return ar, true
}
