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

// Package usermem governs access to user memory.
package usermem

import (
	"encoding/binary"
	"sort"
	"sync"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/hostarch"
)

// IO provides access to the contents of a virtual memory space.
type IO interface {
	// CopyOut copies len(src) bytes from src to the memory mapped at addr. It
	// returns the number of bytes copied. If the number of bytes copied is <
	// len(src), it returns a non-nil error explaining why.
	CopyOut(addr hostarch.Addr, src []byte) (int, error)

	// CopyIn copies len(dst) bytes from the memory mapped at addr to dst.
	// It returns the number of bytes copied. If the number of bytes copied is
	// < len(dst), it returns a non-nil error explaining why.
	CopyIn(addr hostarch.Addr, dst []byte) (int, error)
}

// segment is a contiguous run of mapped memory.
type segment struct {
	start hostarch.Addr
	data  []byte
}

func (s *segment) end() hostarch.Addr {
	return s.start + hostarch.Addr(len(s.data))
}

// AddressSpace is the memory of one task: a set of non-overlapping mapped
// segments. Accesses to addresses outside every segment fail with EFAULT,
// which is how an unbacked page looks to the kernel.
//
// AddressSpace implements IO.
type AddressSpace struct {
	// mu protects segs.
	mu sync.RWMutex

	// segs is sorted by start.
	segs []*segment
}

// NewAddressSpace returns an empty AddressSpace.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{}
}

// Map maps length zero-filled bytes at start. The new mapping must not
// overlap an existing one or wrap around the address space.
func (as *AddressSpace) Map(start hostarch.Addr, length uint32) error {
	ar, ok := start.ToRange(length)
	if !ok || length == 0 {
		return linuxerr.EINVAL
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	for _, s := range as.segs {
		if ar.Start < s.end() && s.start < ar.End {
			return linuxerr.EINVAL
		}
	}
	as.segs = append(as.segs, &segment{start: start, data: make([]byte, length)})
	sort.Slice(as.segs, func(i, j int) bool {
		return as.segs[i].start < as.segs[j].start
	})
	return nil
}

// Mapped returns the mapped ranges, in ascending order.
func (as *AddressSpace) Mapped() []hostarch.AddrRange {
	as.mu.RLock()
	defer as.mu.RUnlock()
	ars := make([]hostarch.AddrRange, 0, len(as.segs))
	for _, s := range as.segs {
		ars = append(ars, hostarch.AddrRange{Start: s.start, End: s.end()})
	}
	return ars
}

// IsMapped returns true if every byte of ar is mapped.
func (as *AddressSpace) IsMapped(ar hostarch.AddrRange) bool {
	as.mu.RLock()
	defer as.mu.RUnlock()
	for cur := ar.Start; cur < ar.End; {
		s := as.find(cur)
		if s == nil {
			return false
		}
		cur = s.end()
		if cur == 0 {
			// The segment ends at the top of the address space.
			return true
		}
	}
	return true
}

// find returns the segment containing addr, or nil.
//
// Preconditions: as.mu must be locked.
func (as *AddressSpace) find(addr hostarch.Addr) *segment {
	i := sort.Search(len(as.segs), func(i int) bool {
		return as.segs[i].end() > addr
	})
	if i < len(as.segs) && as.segs[i].start <= addr {
		return as.segs[i]
	}
	return nil
}

// apply calls fn on each mapped chunk of [addr, addr+n), in order, stopping
// at the first unmapped byte.
//
// Preconditions: as.mu must be locked.
func (as *AddressSpace) apply(addr hostarch.Addr, n int, fn func(chunk []byte, off int)) (int, error) {
	done := 0
	for done < n {
		cur := addr + hostarch.Addr(done)
		if cur < addr {
			// Wrapped around.
			return done, linuxerr.EFAULT
		}
		s := as.find(cur)
		if s == nil {
			return done, linuxerr.EFAULT
		}
		chunk := s.data[cur-s.start:]
		if rem := n - done; len(chunk) > rem {
			chunk = chunk[:rem]
		}
		fn(chunk, done)
		done += len(chunk)
	}
	return done, nil
}

// CopyOut implements IO.CopyOut.
func (as *AddressSpace) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.apply(addr, len(src), func(chunk []byte, off int) {
		copy(chunk, src[off:])
	})
}

// CopyIn implements IO.CopyIn.
func (as *AddressSpace) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return as.apply(addr, len(dst), func(chunk []byte, off int) {
		copy(dst[off:], chunk)
	})
}

// CopyInUint32 reads one little-endian machine word at addr.
func CopyInUint32(uio IO, addr hostarch.Addr) (uint32, error) {
	var buf [trap.WordSize]byte
	if _, err := uio.CopyIn(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// CopyOutUint32 writes one little-endian machine word at addr.
func CopyOutUint32(uio IO, addr hostarch.Addr, v uint32) error {
	var buf [trap.WordSize]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := uio.CopyOut(addr, buf[:])
	return err
}

// copyStringIncrement is the maximum number of bytes that are copied from
// virtual memory at a time by CopyStringIn.
const copyStringIncrement = 64

// CopyStringIn copies a NUL-terminated string of unknown length from the
// memory mapped at addr in uio and returns it as a string (not including the
// trailing NUL). If the length of the string, including the terminating NUL,
// would exceed maxlen, CopyStringIn returns the string truncated to maxlen and
// ENAMETOOLONG.
//
// Every byte is checked against bounds before it is read; the string may not
// run past bounds.High.
func CopyStringIn(uio IO, bounds hostarch.Bounds, addr hostarch.Addr, maxlen int) (string, error) {
	buf := make([]byte, 0, copyStringIncrement)
	var tmp [copyStringIncrement]byte
	for len(buf) < maxlen {
		start := addr + hostarch.Addr(len(buf))
		if start < addr || !bounds.IsUserAddr(start) {
			return string(buf), linuxerr.EFAULT
		}
		chunk := copyStringIncrement
		if rem := maxlen - len(buf); chunk > rem {
			chunk = rem
		}
		if rem := uint32(bounds.High - start); uint32(chunk) > rem {
			chunk = int(rem)
		}
		n, err := uio.CopyIn(start, tmp[:chunk])
		// A string that ends right before an unmapped page is fine, so scan
		// what was copied before reporting a fault.
		for i := 0; i < n; i++ {
			if tmp[i] == 0 {
				return string(buf), nil
			}
			buf = append(buf, tmp[i])
		}
		if err != nil {
			return string(buf), err
		}
	}
	return string(buf), linuxerr.ENAMETOOLONG
}
