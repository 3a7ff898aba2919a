// Copyright 2019 The gVisor Authors.
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

// Package vfs defines the filesystem collaborator consumed by the syscall
// layer and the lock that serializes every call into it.
//
// The kernel never assumes a FileSystem or FileDescription is safe for
// concurrent use; all calls go through a Serializer.
package vfs

// FileSystem is the filesystem collaborator.
type FileSystem interface {
	// Create creates a file of the given initial size. It returns false if
	// the file exists or cannot be created.
	Create(name string, size int64) bool

	// Remove removes the named file. Open descriptions of the file stay
	// usable. It returns false if there is no such file.
	Remove(name string) bool

	// Open opens the named file. Every call returns a new, independent
	// description with its own position.
	Open(name string) (FileDescription, bool)
}

// A FileDescription represents an open file description, which is the entity
// referred to by a file descriptor. Its contents are opaque to the kernel.
type FileDescription interface {
	// Length returns the size of the file in bytes.
	Length() int64

	// Read reads up to len(dst) bytes at the current position and advances
	// it, returning the number of bytes read.
	Read(dst []byte) int

	// Write writes src at the current position and advances it, returning
	// the number of bytes written. Writes past the end of file may be short.
	Write(src []byte) int

	// Seek sets the current position. Positions past the end of file are
	// allowed.
	Seek(pos int64)

	// Tell returns the current position.
	Tell() int64

	// Close releases the description.
	Close()
}
