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

package linuxerr

import (
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
)

func TestEquals(t *testing.T) {
	for _, test := range []struct {
		name string
		err  error
		want bool
	}{
		{"same pointer", EFAULT, true},
		{"unix errno", unix.EFAULT, true},
		{"other errno", unix.EBADF, false},
		{"other linuxerr", EBADF, false},
		{"plain error", fmt.Errorf("bad address"), false},
		{"nil", nil, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := Equals(EFAULT, test.err); got != test.want {
				t.Errorf("Equals(EFAULT, %v): got %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestErrorFromUnix(t *testing.T) {
	for errno, want := range errnoMap {
		if got := ErrorFromUnix(errno); got != want {
			t.Errorf("ErrorFromUnix(%v): got %v, want %v", errno, got, want)
		}
		if got := ToUnix(want); got != errno {
			t.Errorf("ToUnix(%v): got %v, want %v", want, got, errno)
		}
	}
	if got := ErrorFromUnix(0); got != nil {
		t.Errorf("ErrorFromUnix(0): got %v, want nil", got)
	}
}
