// Copyright 2020 The gVisor Authors.
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

package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
	"gvisor.dev/trapgate/pkg/log"
)

// Host is a Device backed by host files, typically stdin and stdout.
type Host struct {
	inMu sync.Mutex
	in   *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	inFD int

	// restore is the terminal state to restore on Close, or nil if the
	// input was not switched to raw mode.
	restore *term.State
}

var _ Device = (*Host)(nil)

// NewHost returns a Host reading from in and writing to out. If raw is true
// and in is a terminal, it is switched to raw mode until Close.
func NewHost(in *os.File, out io.Writer, raw bool) (*Host, error) {
	h := &Host{
		in:   bufio.NewReader(in),
		out:  out,
		inFD: int(in.Fd()),
	}
	if raw && term.IsTerminal(h.inFD) {
		state, err := term.MakeRaw(h.inFD)
		if err != nil {
			return nil, fmt.Errorf("setting raw mode on console: %w", err)
		}
		h.restore = state
	}
	return h, nil
}

// Getc implements Device.Getc.
func (h *Host) Getc() byte {
	h.inMu.Lock()
	defer h.inMu.Unlock()
	c, err := h.in.ReadByte()
	if err != nil {
		if err != io.EOF {
			log.Warningf("Console read failed: %v", err)
		}
		return 0
	}
	return c
}

// Putbuf implements Device.Putbuf.
func (h *Host) Putbuf(p []byte) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	if _, err := h.out.Write(p); err != nil {
		log.Warningf("Console write failed: %v", err)
	}
}

// Close restores the terminal state changed by NewHost.
func (h *Host) Close() error {
	if h.restore == nil {
		return nil
	}
	err := term.Restore(h.inFD, h.restore)
	h.restore = nil
	return err
}
