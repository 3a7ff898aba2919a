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

// Package memfs provides an in-memory, flat filesystem.
//
// Files have a fixed size chosen at creation; writes never extend a file.
// Neither FileSystem nor its descriptions are safe for concurrent use; the
// kernel serializes calls with a vfs.Serializer.
package memfs

import (
	"github.com/google/btree"
	"gvisor.dev/trapgate/pkg/sentry/vfs"
)

// MaxFileSize is the largest file that can be created.
const MaxFileSize = 8 << 20

// inode is the contents of one file. It outlives its directory entry while
// descriptions refer to it.
type inode struct {
	data []byte
}

// dirent is a directory entry, ordered by name.
type dirent struct {
	name  string
	inode *inode
}

func direntLess(a, b dirent) bool {
	return a.name < b.name
}

// FileSystem implements vfs.FileSystem.
type FileSystem struct {
	root *btree.BTreeG[dirent]
}

var _ vfs.FileSystem = (*FileSystem)(nil)

// New returns an empty FileSystem.
func New() *FileSystem {
	return &FileSystem{
		root: btree.NewG[dirent](2, direntLess),
	}
}

// Create implements vfs.FileSystem.Create.
func (fs *FileSystem) Create(name string, size int64) bool {
	if name == "" || size < 0 || size > MaxFileSize {
		return false
	}
	if _, ok := fs.root.Get(dirent{name: name}); ok {
		return false
	}
	fs.root.ReplaceOrInsert(dirent{name: name, inode: &inode{data: make([]byte, size)}})
	return true
}

// Remove implements vfs.FileSystem.Remove.
func (fs *FileSystem) Remove(name string) bool {
	_, ok := fs.root.Delete(dirent{name: name})
	return ok
}

// Open implements vfs.FileSystem.Open.
func (fs *FileSystem) Open(name string) (vfs.FileDescription, bool) {
	d, ok := fs.root.Get(dirent{name: name})
	if !ok {
		return nil, false
	}
	return &fileDescription{inode: d.inode}, true
}

// Populate creates name with the given contents, replacing any existing file.
func (fs *FileSystem) Populate(name string, contents []byte) {
	data := make([]byte, len(contents))
	copy(data, contents)
	fs.root.ReplaceOrInsert(dirent{name: name, inode: &inode{data: data}})
}

// Contents returns a copy of the named file's contents.
func (fs *FileSystem) Contents(name string) ([]byte, bool) {
	d, ok := fs.root.Get(dirent{name: name})
	if !ok {
		return nil, false
	}
	return append([]byte(nil), d.inode.data...), true
}

// Names returns the names of all files in ascending order.
func (fs *FileSystem) Names() []string {
	names := make([]string, 0, fs.root.Len())
	fs.root.Ascend(func(d dirent) bool {
		names = append(names, d.name)
		return true
	})
	return names
}

// fileDescription implements vfs.FileDescription.
type fileDescription struct {
	inode  *inode
	pos    int64
	closed bool
}

// Length implements vfs.FileDescription.Length.
func (fd *fileDescription) Length() int64 {
	return int64(len(fd.inode.data))
}

// Read implements vfs.FileDescription.Read.
func (fd *fileDescription) Read(dst []byte) int {
	if fd.closed || fd.pos >= int64(len(fd.inode.data)) {
		return 0
	}
	n := copy(dst, fd.inode.data[fd.pos:])
	fd.pos += int64(n)
	return n
}

// Write implements vfs.FileDescription.Write.
func (fd *fileDescription) Write(src []byte) int {
	if fd.closed || fd.pos >= int64(len(fd.inode.data)) {
		return 0
	}
	n := copy(fd.inode.data[fd.pos:], src)
	fd.pos += int64(n)
	return n
}

// Seek implements vfs.FileDescription.Seek.
func (fd *fileDescription) Seek(pos int64) {
	if pos < 0 {
		pos = 0
	}
	fd.pos = pos
}

// Tell implements vfs.FileDescription.Tell.
func (fd *fileDescription) Tell() int64 {
	return fd.pos
}

// Close implements vfs.FileDescription.Close.
func (fd *fileDescription) Close() {
	fd.closed = true
}
