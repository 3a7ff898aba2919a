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

package loader

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/errors/linuxerr"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/userlib"
	"gvisor.dev/trapgate/pkg/usermem"
)

func word(t *testing.T, mm usermem.IO, addr hostarch.Addr) uint32 {
	t.Helper()
	v, err := usermem.CopyInUint32(mm, addr)
	if err != nil {
		t.Fatalf("reading word at %v: %v", addr, err)
	}
	return v
}

func str(t *testing.T, mm usermem.IO, addr hostarch.Addr) string {
	t.Helper()
	s, err := usermem.CopyStringIn(mm, hostarch.UserBounds, addr, 256)
	if err != nil {
		t.Fatalf("reading string at %v: %v", addr, err)
	}
	return s
}

func TestSetupStack(t *testing.T) {
	mm := usermem.NewAddressSpace()
	if err := mm.Map(StackStart, StackSize); err != nil {
		t.Fatalf("Map: %v", err)
	}
	argv := []string{"echo", "x", "hello"}
	sp, err := setupStack(mm, argv)
	if err != nil {
		t.Fatalf("setupStack: %v", err)
	}
	if sp%trap.WordSize != 0 {
		t.Errorf("sp %v not word aligned", sp)
	}
	if ret := word(t, mm, sp); ret != 0 {
		t.Errorf("return address: got %#x, want 0", ret)
	}
	argc := word(t, mm, sp+4)
	argvp := hostarch.Addr(word(t, mm, sp+8))
	if argc != uint32(len(argv)) {
		t.Fatalf("argc: got %d, want %d", argc, len(argv))
	}
	if argvp != sp+12 {
		t.Errorf("argv: got %v, want %v", argvp, sp+12)
	}
	var got []string
	for i := uint32(0); i < argc; i++ {
		p := hostarch.Addr(word(t, mm, argvp+hostarch.Addr(4*i)))
		if !hostarch.UserBounds.IsUserAddr(p) {
			t.Fatalf("argv[%d] = %v is not a user address", i, p)
		}
		got = append(got, str(t, mm, p))
	}
	if diff := cmp.Diff(argv, got); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
	if sentinel := word(t, mm, argvp+hostarch.Addr(4*argc)); sentinel != 0 {
		t.Errorf("argv[argc]: got %#x, want 0", sentinel)
	}
}

func TestSetupStackTooBig(t *testing.T) {
	mm := usermem.NewAddressSpace()
	mm.Map(StackStart, StackSize)
	argv := []string{"echo", strings.Repeat("a", maxArgBytes)}
	if _, err := setupStack(mm, argv); !linuxerr.Equals(linuxerr.ENOMEM, err) {
		t.Errorf("setupStack: got %v, want ENOMEM", err)
	}
}

func TestNew(t *testing.T) {
	main := func(*userlib.Proc, []string) int { return 0 }
	for _, test := range []struct {
		name  string
		progs []Program
		ok    bool
	}{
		{"ok", []Program{{Name: "b", Main: main}, {Name: "a", Main: main}}, true},
		{"duplicate", []Program{{Name: "a", Main: main}, {Name: "a", Main: main}}, false},
		{"empty name", []Program{{Name: "", Main: main}}, false},
		{"long name", []Program{{Name: strings.Repeat("n", trap.MaxNameLen+1), Main: main}}, false},
		{"no main", []Program{{Name: "a"}}, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			l, err := New(test.progs)
			if (err == nil) != test.ok {
				t.Fatalf("New: got err %v, want ok %t", err, test.ok)
			}
			if err != nil {
				return
			}
			var names []string
			for _, p := range l.Programs() {
				names = append(names, p.Name)
			}
			if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
				t.Errorf("Programs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
