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
	"bytes"
	"sync"
)

// Buffer is an in-memory Device. Input is supplied with Feed and output is
// accumulated until read with Output.
type Buffer struct {
	mu sync.Mutex

	// cond is signalled when input arrives or is closed.
	cond sync.Cond

	in       []byte
	inClosed bool
	out      bytes.Buffer
}

var _ Device = (*Buffer)(nil)

// NewBuffer returns a Buffer whose input is initially input. If closed is
// true, no more input may be fed and Getc returns 0 once input is drained.
func NewBuffer(input []byte, closed bool) *Buffer {
	b := &Buffer{
		in:       append([]byte(nil), input...),
		inClosed: closed,
	}
	b.cond.L = &b.mu
	return b
}

// Feed appends p to pending input.
func (b *Buffer) Feed(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.in = append(b.in, p...)
	b.cond.Broadcast()
}

// CloseInput marks the end of input.
func (b *Buffer) CloseInput() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inClosed = true
	b.cond.Broadcast()
}

// Getc implements Device.Getc.
func (b *Buffer) Getc() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.in) == 0 {
		if b.inClosed {
			return 0
		}
		b.cond.Wait()
	}
	c := b.in[0]
	b.in = b.in[1:]
	return c
}

// Putbuf implements Device.Putbuf.
func (b *Buffer) Putbuf(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out.Write(p)
}

// Output returns everything written so far.
func (b *Buffer) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out.String()
}
