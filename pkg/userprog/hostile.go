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

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/sentry/loader"
	"gvisor.dev/trapgate/pkg/userlib"
)

// unmapped is a user address that no image maps.
const unmapped = hostarch.Addr(0x10000000)

// badAddr returns the address named by kind.
func badAddr(kind string) (hostarch.Addr, bool) {
	switch kind {
	case "null":
		return 0, true
	case "kernel":
		return trap.UserHigh, true
	case "unmapped":
		return unmapped, true
	case "straddle":
		return trap.UserHigh - 2, true
	}
	return 0, false
}

func kindArg(argv []string, def string) string {
	if len(argv) > 1 {
		return argv[1]
	}
	return def
}

// BadPtr passes an invalid string pointer to open. It is killed.
func BadPtr(p *userlib.Proc, argv []string) int {
	addr, ok := badAddr(kindArg(argv, "null"))
	if !ok {
		return 2
	}
	p.Syscall(trap.SYS_OPEN, uint32(addr))
	p.Print("bad-ptr: should have been killed\n")
	return 0
}

// BadBuf writes a buffer that runs out of the user region or into
// unmapped memory. It is killed.
func BadBuf(p *userlib.Proc, argv []string) int {
	var addr hostarch.Addr
	var n uint32
	switch kindArg(argv, "kernel") {
	case "kernel":
		// Starts on the stack, ends in the kernel.
		addr, n = trap.UserHigh-8, 16
	case "unmapped":
		// Starts in the heap, runs past its end.
		addr, n = loader.HeapStart+loader.HeapSize-8, 16
	default:
		return 2
	}
	n32 := p.Write(trap.STDOUT_FILENO, addr, n)
	p.Print(fmt.Sprintf("bad-buf: should have been killed, wrote %d\n", n32))
	return 0
}

// BadSP traps with an invalid stack pointer. It is killed.
func BadSP(p *userlib.Proc, argv []string) int {
	addr, ok := badAddr(kindArg(argv, "null"))
	if !ok {
		return 2
	}
	p.RawTrap(addr)
	p.Print("bad-sp: should have been killed\n")
	return 0
}
