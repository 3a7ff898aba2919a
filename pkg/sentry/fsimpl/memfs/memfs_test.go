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

package memfs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCreateRemove(t *testing.T) {
	fs := New()
	if !fs.Create("a", 10) {
		t.Fatalf("Create(a): got false, want true")
	}
	if fs.Create("a", 10) {
		t.Errorf("Create(a) twice: got true, want false")
	}
	for _, bad := range []struct {
		name string
		size int64
	}{
		{"", 0},
		{"neg", -1},
		{"huge", MaxFileSize + 1},
	} {
		if fs.Create(bad.name, bad.size) {
			t.Errorf("Create(%q, %d): got true, want false", bad.name, bad.size)
		}
	}
	if !fs.Remove("a") {
		t.Errorf("Remove(a): got false, want true")
	}
	if fs.Remove("a") {
		t.Errorf("Remove(a) twice: got true, want false")
	}
	if _, ok := fs.Open("a"); ok {
		t.Errorf("Open of removed file succeeded")
	}
}

func TestIndependentDescriptions(t *testing.T) {
	fs := New()
	fs.Populate("f", []byte("hello world"))

	a, ok := fs.Open("f")
	if !ok {
		t.Fatalf("Open(f) failed")
	}
	b, _ := fs.Open("f")

	buf := make([]byte, 5)
	if n := a.Read(buf); n != 5 || string(buf) != "hello" {
		t.Errorf("a.Read: got (%d, %q), want (5, hello)", n, buf)
	}
	if b.Tell() != 0 {
		t.Errorf("b.Tell after a.Read: got %d, want 0", b.Tell())
	}
	b.Seek(6)
	if n := b.Read(buf); n != 5 || string(buf) != "world" {
		t.Errorf("b.Read: got (%d, %q), want (5, world)", n, buf)
	}

	a.Close()
	b.Seek(0)
	if n := b.Read(buf); n != 5 {
		t.Errorf("b.Read after a.Close: got %d, want 5", n)
	}
}

func TestWriteDoesNotExtend(t *testing.T) {
	fs := New()
	fs.Create("f", 4)
	fd, _ := fs.Open("f")
	fd.Seek(2)
	if n := fd.Write([]byte("xyz")); n != 2 {
		t.Errorf("Write at 2 of 3 bytes into 4-byte file: got %d, want 2", n)
	}
	if n := fd.Write([]byte("q")); n != 0 {
		t.Errorf("Write at EOF: got %d, want 0", n)
	}
	if fd.Length() != 4 {
		t.Errorf("Length: got %d, want 4", fd.Length())
	}
	got, _ := fs.Contents("f")
	if want := []byte("\x00\x00xy"); !cmp.Equal(got, want) {
		t.Errorf("Contents: got %q, want %q", got, want)
	}
}

func TestRemoveKeepsOpenDescriptions(t *testing.T) {
	fs := New()
	fs.Populate("f", []byte("data"))
	fd, _ := fs.Open("f")
	fs.Remove("f")
	buf := make([]byte, 4)
	if n := fd.Read(buf); n != 4 || string(buf) != "data" {
		t.Errorf("Read after Remove: got (%d, %q), want (4, data)", n, buf)
	}
}

func TestNames(t *testing.T) {
	fs := New()
	for _, name := range []string{"c", "a", "b"} {
		fs.Create(name, 0)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, fs.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}
