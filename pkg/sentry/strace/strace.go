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

package strace

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
)

// DefaultLogMaximumSize is the default LogMaximumSize.
const DefaultLogMaximumSize = 1024

// Options configures a Tracer.
type Options struct {
	// Syscalls are the names of the syscalls to trace. If empty, every
	// syscall is traced.
	Syscalls []string

	// LogMaximumSize is the maximum number of buffer bytes displayed. Zero
	// means DefaultLogMaximumSize.
	LogMaximumSize uint32

	// Logger receives the trace. Nil means the global logger.
	Logger log.Logger
}

// Tracer logs the entry and exit of syscalls. It implements kernel.Stracer.
type Tracer struct {
	syscalls SyscallMap
	enabled  [trap.NumSyscalls]bool
	maxSize  uint32
	logger   log.Logger
}

// New returns a Tracer for the syscalls of a.
func New(a arch.Arch, opts Options) (*Tracer, error) {
	m, ok := Lookup(a)
	if !ok {
		return nil, fmt.Errorf("no syscall table for %v", a)
	}
	tr := &Tracer{
		syscalls: m,
		maxSize:  opts.LogMaximumSize,
		logger:   opts.Logger,
	}
	if tr.maxSize == 0 {
		tr.maxSize = DefaultLogMaximumSize
	}
	if tr.logger == nil {
		tr.logger = log.Log()
	}
	if len(opts.Syscalls) == 0 {
		for i := range tr.enabled {
			tr.enabled[i] = true
		}
		return tr, nil
	}
	for _, name := range opts.Syscalls {
		name = strings.TrimSpace(name)
		found := false
		for sysno, info := range m {
			if info.name == name {
				tr.enabled[sysno] = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("syscall %q not found", name)
		}
	}
	return tr, nil
}

// Enabled returns true if sysno is traced.
func (tr *Tracer) Enabled(sysno trap.Sysno) bool {
	return sysno.Valid() && tr.enabled[sysno]
}

// syscallEvent is the state carried from syscall entry to exit.
type syscallEvent struct {
	info   SyscallInfo
	args   arch.SyscallArguments
	output []string
	start  time.Time
}

func prefix(t *kernel.Task) string {
	return fmt.Sprintf("[%5d:%s]", t.ThreadID(), t.Name())
}

// SyscallEnter implements kernel.Stracer.SyscallEnter.
func (tr *Tracer) SyscallEnter(t *kernel.Task, sysno trap.Sysno, args arch.SyscallArguments) any {
	if sysno.Valid() && !tr.enabled[sysno] {
		return nil
	}
	info := tr.syscalls.info(sysno)
	output := make([]string, len(info.format))
	for i, f := range info.format {
		output[i] = tr.pre(t, f, args, i)
	}
	tr.logger.Infof("%s E %s(%s)", prefix(t), info.name, strings.Join(output, ", "))
	return &syscallEvent{
		info:   info,
		args:   args,
		output: output,
		start:  time.Now(),
	}
}

// SyscallExit implements kernel.Stracer.SyscallExit.
func (tr *Tracer) SyscallExit(v any, t *kernel.Task, sysno trap.Sysno, rval uintptr, err error) {
	e, ok := v.(*syscallEvent)
	if !ok {
		return
	}
	elapsed := time.Since(e.start)
	for i, f := range e.info.format {
		if s, ok := tr.post(t, f, e.args, i, rval, err); ok {
			e.output[i] = s
		}
	}
	args := strings.Join(e.output, ", ")
	if err != nil {
		tr.logger.Infof("%s X %s(%s) = -1 %s (%v) (%v)", prefix(t), e.info.name, args, errName(err), err, elapsed)
		return
	}
	tr.logger.Infof("%s X %s(%s) = %s (%v)", prefix(t), e.info.name, args, result(e.info.result, rval), elapsed)
}

func errName(err error) string {
	if name := unix.ErrnoName(linuxerr.ToUnix(err)); name != "" {
		return name
	}
	return "?"
}

func result(f FormatSpecifier, rval uintptr) string {
	switch f {
	case Int, FD, TID:
		return fmt.Sprintf("%d", int32(uint32(rval)))
	case Size:
		return fmt.Sprintf("%d", uint32(rval))
	default:
		return fmt.Sprintf("%#x", rval)
	}
}

// pre formats argument i before syscall execution.
func (tr *Tracer) pre(t *kernel.Task, f FormatSpecifier, args arch.SyscallArguments, i int) string {
	a := args[i]
	switch f {
	case Int, FD, TID:
		return fmt.Sprintf("%d", a.Int())
	case Size:
		return fmt.Sprintf("%d", a.Uint())
	case Path, Cmdline:
		return str(t, a.Pointer())
	case WriteBuffer:
		if i+1 < len(args) {
			return tr.dump(t, a.Pointer(), args[i+1].Uint())
		}
	}
	return fmt.Sprintf("%#x", a.Value)
}

// post formats argument i after syscall execution. It returns false if the
// value formatted before execution stands.
func (tr *Tracer) post(t *kernel.Task, f FormatSpecifier, args arch.SyscallArguments, i int, rval uintptr, err error) (string, bool) {
	switch f {
	case ReadBuffer:
		if err != nil {
			return "", false
		}
		return tr.dump(t, args[i].Pointer(), uint32(rval)), true
	case WriteBuffer:
		return fmt.Sprintf("%#x", args[i].Value), true
	}
	return "", false
}

func str(t *kernel.Task, addr hostarch.Addr) string {
	s, err := t.CopyInString(addr)
	if err != nil {
		return fmt.Sprintf("%#x (error decoding string: %v)", uint32(addr), err)
	}
	return fmt.Sprintf("%#x %q", uint32(addr), s)
}

func (tr *Tracer) dump(t *kernel.Task, addr hostarch.Addr, size uint32) string {
	n := size
	if n > tr.maxSize {
		n = tr.maxSize
	}
	b := make([]byte, n)
	if _, err := t.CopyInBytes(addr, b); err != nil {
		return fmt.Sprintf("%#x (error decoding buffer: %v)", uint32(addr), err)
	}
	dot := ""
	if n < size {
		dot = "..."
	}
	return fmt.Sprintf("%#x %q%s", uint32(addr), b, dot)
}
