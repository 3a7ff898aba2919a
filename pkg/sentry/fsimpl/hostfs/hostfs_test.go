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

package hostfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newFS(t *testing.T) (*FileSystem, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := New(dir)
	if err != nil {
		t.Fatalf("New(%q): %v", dir, err)
	}
	t.Cleanup(func() { fs.Release() })
	return fs, dir
}

func TestRootLocked(t *testing.T) {
	_, dir := newFS(t)
	if _, err := New(dir); err == nil {
		t.Errorf("second New(%q) succeeded, want error", dir)
	}
}

func TestNotDirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(f); err == nil {
		t.Errorf("New(%q) on a regular file succeeded", f)
	}
}

func TestCreateOpenReadWrite(t *testing.T) {
	fs, dir := newFS(t)
	if !fs.Create("f", 6) {
		t.Fatalf("Create(f) failed")
	}
	if fs.Create("f", 6) {
		t.Errorf("Create(f) twice succeeded")
	}
	fd, ok := fs.Open("f")
	if !ok {
		t.Fatalf("Open(f) failed")
	}
	defer fd.Close()
	if got := fd.Length(); got != 6 {
		t.Errorf("Length: got %d, want 6", got)
	}
	if n := fd.Write([]byte("abcdefgh")); n != 6 {
		t.Errorf("Write: got %d, want 6", n)
	}
	if got := fd.Tell(); got != 6 {
		t.Errorf("Tell: got %d, want 6", got)
	}
	fd.Seek(2)
	buf := make([]byte, 10)
	n := fd.Read(buf)
	if diff := cmp.Diff("cdef", string(buf[:n])); diff != "" {
		t.Errorf("Read mismatch (-want +got):\n%s", diff)
	}
	data, err := os.ReadFile(filepath.Join(dir, "f"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abcdef" {
		t.Errorf("host contents: got %q, want abcdef", data)
	}
}

func TestBadNames(t *testing.T) {
	fs, _ := newFS(t)
	for _, name := range []string{"", ".", "..", "a/b", LockName} {
		if fs.Create(name, 0) {
			t.Errorf("Create(%q) succeeded", name)
		}
		if _, ok := fs.Open(name); ok {
			t.Errorf("Open(%q) succeeded", name)
		}
	}
}

func TestRemove(t *testing.T) {
	fs, _ := newFS(t)
	fs.Create("f", 1)
	fd, _ := fs.Open("f")
	defer fd.Close()
	if !fs.Remove("f") {
		t.Errorf("Remove(f) failed")
	}
	if fs.Remove("f") {
		t.Errorf("Remove(f) twice succeeded")
	}
	if got := fd.Length(); got != 1 {
		t.Errorf("Length after Remove: got %d, want 1", got)
	}
}
