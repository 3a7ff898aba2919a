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

package vfs

import (
	"runtime"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

// overlapFS records whether any two calls into it ever overlapped.
type overlapFS struct {
	inside   atomic.Int32
	overlaps atomic.Int32
	calls    atomic.Int32
}

func (o *overlapFS) enter() func() {
	if o.inside.Add(1) > 1 {
		o.overlaps.Add(1)
	}
	o.calls.Add(1)
	// Widen the window for a racing caller.
	runtime.Gosched()
	return func() { o.inside.Add(-1) }
}

func (o *overlapFS) Create(name string, size int64) bool {
	defer o.enter()()
	return true
}

func (o *overlapFS) Remove(name string) bool {
	defer o.enter()()
	return true
}

func (o *overlapFS) Open(name string) (FileDescription, bool) {
	defer o.enter()()
	return &overlapFD{o}, true
}

type overlapFD struct {
	o *overlapFS
}

func (f *overlapFD) Length() int64 {
	defer f.o.enter()()
	return 0
}

func (f *overlapFD) Read(dst []byte) int {
	defer f.o.enter()()
	return len(dst)
}

func (f *overlapFD) Write(src []byte) int {
	defer f.o.enter()()
	return len(src)
}

func (f *overlapFD) Seek(pos int64) {
	defer f.o.enter()()
}

func (f *overlapFD) Tell() int64 {
	defer f.o.enter()()
	return 0
}

func (f *overlapFD) Close() {
	defer f.o.enter()()
}

func TestSerializerExcludes(t *testing.T) {
	fs := &overlapFS{}
	s := NewSerializer(fs)

	const workers = 16
	const iterations = 100
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			buf := make([]byte, 8)
			for j := 0; j < iterations; j++ {
				s.Create("f", 0)
				fd, _ := s.Open("f")
				s.Write(fd, buf)
				s.Seek(fd, 0)
				s.Read(fd, buf)
				s.Tell(fd)
				s.Length(fd)
				s.Close(fd)
				s.Remove("f")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("workers failed: %v", err)
	}
	if n := fs.overlaps.Load(); n != 0 {
		t.Errorf("filesystem calls overlapped %d times", n)
	}
	if got, want := fs.calls.Load(), int32(workers*iterations*9); got != want {
		t.Errorf("filesystem calls: got %d, want %d", got, want)
	}
}

type panicFS struct{ overlapFS }

func (p *panicFS) Remove(name string) bool {
	panic("remove failed")
}

func TestSerializerReleasesOnPanic(t *testing.T) {
	s := NewSerializer(&panicFS{})
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("Remove did not panic")
			}
		}()
		s.Remove("x")
	}()
	if !s.mu.TryLock() {
		t.Fatalf("lock still held after a panicking call")
	}
	s.mu.Unlock()
}
