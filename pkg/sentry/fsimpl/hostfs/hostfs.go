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

// Package hostfs provides a flat filesystem backed by a host directory.
//
// Only regular files directly inside the root directory are visible. The
// root is locked with an advisory lock for the lifetime of the FileSystem so
// that two kernels never share it.
package hostfs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/sentry/vfs"
)

// LockName is the name of the lock file created in the root directory.
const LockName = ".trapgate.lock"

// FileSystem implements vfs.FileSystem.
type FileSystem struct {
	root string
	lock *flock.Flock
}

var _ vfs.FileSystem = (*FileSystem)(nil)

// New returns a FileSystem rooted at the given host directory. The caller
// must call Release when done.
func New(root string) (*FileSystem, error) {
	var st unix.Stat_t
	if err := unix.Stat(root, &st); err != nil {
		return nil, fmt.Errorf("stat %q: %w", root, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return nil, fmt.Errorf("%q is not a directory", root)
	}
	lock := flock.New(filepath.Join(root, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %q: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%q is in use by another kernel", root)
	}
	return &FileSystem{root: root, lock: lock}, nil
}

// Release drops the lock on the root directory.
func (fs *FileSystem) Release() error {
	return fs.lock.Unlock()
}

// path returns the host path for name, or false if name does not denote a
// file directly inside the root.
func (fs *FileSystem) path(name string) (string, bool) {
	if name == "" || name == "." || name == ".." || name == LockName || strings.ContainsRune(name, '/') {
		return "", false
	}
	return filepath.Join(fs.root, name), true
}

// Create implements vfs.FileSystem.Create.
func (fs *FileSystem) Create(name string, size int64) bool {
	p, ok := fs.path(name)
	if !ok || size < 0 {
		return false
	}
	fd, err := unix.Open(p, unix.O_CREAT|unix.O_EXCL|unix.O_WRONLY|unix.O_CLOEXEC, 0644)
	if err != nil {
		if err != unix.EEXIST {
			log.Debugf("hostfs: create %q: %v", p, err)
		}
		return false
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, size); err != nil {
		log.Warningf("hostfs: truncating %q to %d: %v", p, size, err)
		unix.Unlink(p)
		return false
	}
	return true
}

// Remove implements vfs.FileSystem.Remove.
func (fs *FileSystem) Remove(name string) bool {
	p, ok := fs.path(name)
	if !ok {
		return false
	}
	return unix.Unlink(p) == nil
}

// Open implements vfs.FileSystem.Open.
func (fs *FileSystem) Open(name string) (vfs.FileDescription, bool) {
	p, ok := fs.path(name)
	if !ok {
		return nil, false
	}
	fd, err := unix.Open(p, unix.O_RDWR|unix.O_CLOEXEC|unix.O_NOFOLLOW, 0)
	if err != nil {
		return nil, false
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil || st.Mode&unix.S_IFMT != unix.S_IFREG {
		unix.Close(fd)
		return nil, false
	}
	return &fileDescription{fd: fd, name: p}, true
}

// fileDescription implements vfs.FileDescription over a host fd.
type fileDescription struct {
	fd   int
	name string
	pos  int64
}

// Length implements vfs.FileDescription.Length.
func (fd *fileDescription) Length() int64 {
	var st unix.Stat_t
	if err := unix.Fstat(fd.fd, &st); err != nil {
		log.Warningf("hostfs: fstat %q: %v", fd.name, err)
		return 0
	}
	return st.Size
}

// Read implements vfs.FileDescription.Read.
func (fd *fileDescription) Read(dst []byte) int {
	done := 0
	for done < len(dst) {
		n, err := unix.Pread(fd.fd, dst[done:], fd.pos)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			log.Warningf("hostfs: pread %q: %v", fd.name, err)
			break
		}
		if n == 0 {
			break
		}
		done += n
		fd.pos += int64(n)
	}
	return done
}

// Write implements vfs.FileDescription.Write. Files are never extended.
func (fd *fileDescription) Write(src []byte) int {
	avail := fd.Length() - fd.pos
	if avail <= 0 {
		return 0
	}
	if int64(len(src)) > avail {
		src = src[:avail]
	}
	done := 0
	for done < len(src) {
		n, err := unix.Pwrite(fd.fd, src[done:], fd.pos)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			log.Warningf("hostfs: pwrite %q: %v", fd.name, err)
			break
		}
		if n == 0 {
			break
		}
		done += n
		fd.pos += int64(n)
	}
	return done
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
	if fd.fd < 0 {
		return
	}
	if err := unix.Close(fd.fd); err != nil {
		log.Warningf("hostfs: close %q: %v", fd.name, err)
	}
	fd.fd = -1
}
