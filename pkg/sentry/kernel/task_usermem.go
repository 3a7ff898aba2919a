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
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/usermem"
)

// The methods below are the only way the kernel reads or writes user memory.
// Every address is checked against hostarch.UserBounds before it is touched,
// and any failure is reported as EFAULT. A failed check never partially
// copies.

// CopyInWord reads the machine word at addr.
func (t *Task) CopyInWord(addr hostarch.Addr) (uint32, error) {
	if _, ok := hostarch.UserBounds.CheckRange(addr, trap.WordSize); !ok {
		return 0, linuxerr.EFAULT
	}
	return usermem.CopyInUint32(t.mm, addr)
}

// CheckBuffer returns EFAULT if the user buffer [addr, addr+n) may not be
// accessed. Syscalls call it before allocating kernel buffers of size n.
func (t *Task) CheckBuffer(addr hostarch.Addr, n uint32) error {
	switch t.k.bufferCheck {
	case BufferCheckStart:
		if !hostarch.UserBounds.IsUserAddr(addr) {
			return linuxerr.EFAULT
		}
	default:
		if _, ok := hostarch.UserBounds.CheckRange(addr, n); !ok {
			return linuxerr.EFAULT
		}
	}
	ar, ok := addr.ToRange(n)
	if !ok || !t.mm.IsMapped(ar) {
		return linuxerr.EFAULT
	}
	return nil
}

// CopyInBytes copies len(dst) bytes from addr.
func (t *Task) CopyInBytes(addr hostarch.Addr, dst []byte) (int, error) {
	if err := t.CheckBuffer(addr, uint32(len(dst))); err != nil {
		return 0, err
	}
	return t.mm.CopyIn(addr, dst)
}

// CopyOutBytes copies src to addr.
func (t *Task) CopyOutBytes(addr hostarch.Addr, src []byte) (int, error) {
	if err := t.CheckBuffer(addr, uint32(len(src))); err != nil {
		return 0, err
	}
	return t.mm.CopyOut(addr, src)
}

// CopyInString copies a NUL-terminated string of at most trap.MaxPathLen
// bytes from addr. Longer strings fail with ENAMETOOLONG; strings running
// out of the user region or into unmapped memory fail with EFAULT.
func (t *Task) CopyInString(addr hostarch.Addr) (string, error) {
	s, err := usermem.CopyStringIn(t.mm, hostarch.UserBounds, addr, trap.MaxPathLen+1)
	switch {
	case err == nil:
		return s, nil
	case linuxerr.Equals(linuxerr.ENAMETOOLONG, err):
		return "", err
	default:
		return "", linuxerr.EFAULT
	}
}
