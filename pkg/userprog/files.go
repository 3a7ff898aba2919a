// Copyright 2021 The gVisor Authors.
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

package userprog

import (
	"fmt"
	"strings"

	"gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/userlib"
)

// chunkSize is the buffer size used for copying files.
const chunkSize = 64

// Echo prints its arguments.
func Echo(p *userlib.Proc, argv []string) int {
	p.Print(strings.Join(argv[1:], " ") + "\n")
	return 0
}

// Cat prints files, or the console input up to its end if no file is given.
func Cat(p *userlib.Proc, argv []string) int {
	buf := p.Alloc(chunkSize)
	if len(argv) == 1 {
		for {
			p.Read(trap.STDIN_FILENO, buf, 1)
			if p.Peek(buf, 1)[0] == 0 {
				return 0
			}
			p.Write(trap.STDOUT_FILENO, buf, 1)
		}
	}
	status := 0
	for _, name := range argv[1:] {
		fd := p.Open(name)
		if fd < 0 {
			p.Print(fmt.Sprintf("cat: %s: no such file\n", name))
			status = 1
			continue
		}
		for {
			n := p.Read(fd, buf, chunkSize)
			if n <= 0 {
				break
			}
			p.Write(trap.STDOUT_FILENO, buf, uint32(n))
		}
		p.Close(fd)
	}
	return status
}

// Cp copies a file to a new file.
func Cp(p *userlib.Proc, argv []string) int {
	if len(argv) != 3 {
		p.Print("usage: cp src dst\n")
		return 2
	}
	src := p.Open(argv[1])
	if src < 0 {
		p.Print(fmt.Sprintf("cp: %s: no such file\n", argv[1]))
		return 1
	}
	size := p.Filesize(src)
	if !p.Create(argv[2], uint32(size)) {
		p.Print(fmt.Sprintf("cp: %s: cannot create\n", argv[2]))
		return 1
	}
	dst := p.Open(argv[2])
	if dst < 0 {
		return 1
	}
	buf := p.Alloc(chunkSize)
	for {
		n := p.Read(src, buf, chunkSize)
		if n <= 0 {
			break
		}
		if w := p.Write(dst, buf, uint32(n)); w != n {
			p.Print(fmt.Sprintf("cp: short write: %d of %d\n", w, n))
			return 1
		}
	}
	return 0
}

// Mkfile creates a file holding its remaining arguments.
func Mkfile(p *userlib.Proc, argv []string) int {
	if len(argv) < 2 {
		p.Print("usage: mkfile name [words...]\n")
		return 2
	}
	contents := strings.Join(argv[2:], " ")
	if !p.Create(argv[1], uint32(len(contents))) {
		p.Print(fmt.Sprintf("mkfile: %s: cannot create\n", argv[1]))
		return 1
	}
	fd := p.Open(argv[1])
	if fd < 0 {
		return 1
	}
	if n := p.WriteString(fd, contents); n != int32(len(contents)) {
		return 1
	}
	p.Close(fd)
	return 0
}

// Rm removes files.
func Rm(p *userlib.Proc, argv []string) int {
	status := 0
	for _, name := range argv[1:] {
		if !p.Remove(name) {
			p.Print(fmt.Sprintf("rm: %s: no such file\n", name))
			status = 1
		}
	}
	return status
}

// OpenTwice opens a file twice and checks that the descriptors are
// independent.
func OpenTwice(p *userlib.Proc, argv []string) int {
	if len(argv) != 2 {
		p.Print("usage: open-twice file\n")
		return 2
	}
	a := p.Open(argv[1])
	b := p.Open(argv[1])
	if a < 0 || b < 0 {
		p.Print("open-twice: open failed\n")
		return 1
	}
	buf := p.Alloc(1)
	p.Read(a, buf, 1)
	first := p.Peek(buf, 1)[0]
	p.Close(a)
	n := p.Read(b, buf, 1)
	second := p.Peek(buf, 1)[0]
	p.Print(fmt.Sprintf("open-twice: fds %d %d, first bytes %q %q, read after close %d, tell %d\n",
		a, b, first, second, n, p.Tell(b)))
	if a == b || first != second || n != 1 {
		return 1
	}
	return 0
}

// FDLeak opens a file repeatedly and exits without closing it.
func FDLeak(p *userlib.Proc, argv []string) int {
	if len(argv) < 2 {
		p.Print("usage: fd-leak file [count]\n")
		return 2
	}
	count := 16
	if len(argv) > 2 {
		fmt.Sscan(argv[2], &count)
	}
	opened := 0
	for i := 0; i < count; i++ {
		if p.Open(argv[1]) < 0 {
			break
		}
		opened++
	}
	p.Print(fmt.Sprintf("fd-leak: opened %d\n", opened))
	return opened
}
