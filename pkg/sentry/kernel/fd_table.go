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
	"bytes"
	"fmt"
	"math"
	"sort"
	"sync"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/sentry/vfs"
)

// FDTable is used to manage the open files of a task.
//
// Descriptors STDIN_FILENO and STDOUT_FILENO name the console and are never
// stored in the table. Other descriptors are allocated in increasing order
// from trap.FirstFD and are never reused.
type FDTable struct {
	// mu protects below.
	mu sync.Mutex

	// files maps descriptors to open files.
	files map[int32]vfs.FileDescription

	// next is the next descriptor to allocate.
	next int32

	// limit is the maximum number of open files, or 0 for no limit.
	limit int
}

// NewFDTable returns an empty FDTable holding at most limit files. A limit of
// 0 means no limit.
func NewFDTable(limit int) *FDTable {
	return &FDTable{
		files: make(map[int32]vfs.FileDescription),
		next:  trap.FirstFD,
		limit: limit,
	}
}

// Size returns the number of open files.
func (f *FDTable) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// FDs returns the open descriptors in increasing order.
func (f *FDTable) FDs() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fdsLocked()
}

// Preconditions: f.mu must be locked.
func (f *FDTable) fdsLocked() []int32 {
	fds := make([]int32, 0, len(f.files))
	for fd := range f.files {
		fds = append(fds, fd)
	}
	sort.Slice(fds, func(i, j int) bool { return fds[i] < fds[j] })
	return fds
}

// String is a stringer for FDTable.
func (f *FDTable) String() string {
	var buf bytes.Buffer
	for _, fd := range f.FDs() {
		fmt.Fprintf(&buf, "\tfd:%d\n", fd)
	}
	return buf.String()
}

// Add installs file under a new descriptor and returns it. It returns ENFILE
// if the table is full, in which case the caller still owns file.
func (f *FDTable) Add(file vfs.FileDescription) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limit > 0 && len(f.files) >= f.limit {
		return -1, linuxerr.ENFILE
	}
	if f.next == math.MaxInt32 {
		return -1, linuxerr.ENFILE
	}
	fd := f.next
	f.next++
	f.files[fd] = file
	return fd, nil
}

// Get returns the file for fd, or false if fd is not open. The console
// descriptors are never found.
func (f *FDTable) Get(fd int32) (vfs.FileDescription, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fd]
	return file, ok
}

// Remove removes fd from the table and returns its file, or nil if fd was not
// open. The caller takes ownership of the returned file.
func (f *FDTable) Remove(fd int32) vfs.FileDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fd]
	if !ok {
		return nil
	}
	delete(f.files, fd)
	return file
}

// RemoveAll empties the table and returns every file in descriptor order. The
// caller takes ownership of the returned files.
func (f *FDTable) RemoveAll() []vfs.FileDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	files := make([]vfs.FileDescription, 0, len(f.files))
	for _, fd := range f.fdsLocked() {
		files = append(files, f.files[fd])
	}
	f.files = make(map[int32]vfs.FileDescription)
	return files
}
