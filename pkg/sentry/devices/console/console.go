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

// Package console provides the character devices backing descriptors 0 and 1.
package console

// Device is a console.
//
// Implementations must be safe for concurrent use. Putbuf writes its whole
// argument atomically with respect to other Putbuf calls.
type Device interface {
	// Getc returns the next input byte, blocking until one is available. At
	// end of input it returns 0.
	Getc() byte

	// Putbuf writes p to the console.
	Putbuf(p []byte)
}
