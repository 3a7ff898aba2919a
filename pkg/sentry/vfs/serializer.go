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
	"sync"

	"gvisor.dev/trapgate/pkg/metric"
)

var fsOps = metric.MustCreateNewUint64Metric("/vfs/ops", "Number of calls into the filesystem, by operation.",
	metric.NewField("op", []string{"create", "remove", "open", "length", "read", "write", "seek", "tell", "close"}))

// Serializer is the filesystem serialization lock. It funnels every call
// into a FileSystem, and into the descriptions it returns, through one
// mutex, so no two filesystem operations from any tasks ever overlap.
//
// The lock is held only for the duration of the single collaborator call and
// is always released when the call returns, including when it panics.
type Serializer struct {
	// mu serializes calls into fs and its descriptions.
	mu sync.Mutex

	fs FileSystem
}

// NewSerializer returns a Serializer for fs.
func NewSerializer(fs FileSystem) *Serializer {
	return &Serializer{fs: fs}
}

// Create calls FileSystem.Create under the lock.
func (s *Serializer) Create(name string, size int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("create")
	return s.fs.Create(name, size)
}

// Remove calls FileSystem.Remove under the lock.
func (s *Serializer) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("remove")
	return s.fs.Remove(name)
}

// Open calls FileSystem.Open under the lock.
func (s *Serializer) Open(name string) (FileDescription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("open")
	return s.fs.Open(name)
}

// Length calls fd.Length under the lock.
func (s *Serializer) Length(fd FileDescription) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("length")
	return fd.Length()
}

// Read calls fd.Read under the lock.
func (s *Serializer) Read(fd FileDescription, dst []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("read")
	return fd.Read(dst)
}

// Write calls fd.Write under the lock.
func (s *Serializer) Write(fd FileDescription, src []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("write")
	return fd.Write(src)
}

// Seek calls fd.Seek under the lock.
func (s *Serializer) Seek(fd FileDescription, pos int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("seek")
	fd.Seek(pos)
}

// Tell calls fd.Tell under the lock.
func (s *Serializer) Tell(fd FileDescription) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("tell")
	return fd.Tell()
}

// Close calls fd.Close under the lock.
func (s *Serializer) Close(fd FileDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsOps.Increment("close")
	fd.Close()
}

// CloseAll closes every description in fds, taking the lock once per
// description so other tasks can interleave.
func (s *Serializer) CloseAll(fds []FileDescription) {
	for _, fd := range fds {
		s.Close(fd)
	}
}
