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

// Package config provides basic infrastructure to set configuration settings
// for trapgate. The configuration is set by flags to the command line, and
// optionally by a TOML file.
package config

import (
	"fmt"
	"strings"

	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
)

// Config holds configuration that is not part of the command lines being run.
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if not empty. It may contain
	// the variables %TIMESTAMP% and %COMMAND%.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat LogFormat `flag:"log-format"`

	// Strace indicates that strace should be enabled.
	Strace bool `flag:"strace"`

	// StraceSyscalls is the set of syscalls to trace (comma-separated
	// values). If StraceEnable is true and this string is empty, then all
	// syscalls will be traced.
	StraceSyscalls string `flag:"strace-syscalls"`

	// StraceLogSize is the max size of data blobs to display.
	StraceLogSize uint `flag:"strace-log-size"`

	// FSRoot is a host directory backing the file system. If empty, files
	// live in memory.
	FSRoot string `flag:"fs-root"`

	// MaxFDs is the maximum number of open files per task. Zero means no
	// limit.
	MaxFDs int `flag:"max-fds"`

	// BufferCheck controls how syscall buffers are validated.
	BufferCheck BufferCheck `flag:"buffer-check"`

	// UnknownSyscall controls what happens on unknown syscall numbers.
	UnknownSyscall UnknownSyscall `flag:"unknown-syscall"`

	// MetricsFile is where metrics are written in Prometheus text format on
	// exit, if not empty.
	MetricsFile string `flag:"metrics-file"`
}

func (c *Config) validate() error {
	if c.MaxFDs < 0 {
		return fmt.Errorf("max-fds must be non-negative, got %d", c.MaxFDs)
	}
	if c.StraceSyscalls != "" && !c.Strace {
		return fmt.Errorf("strace-syscalls requires strace to be enabled")
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config.Debug: %t", c.Debug)
	log.Infof("Config.LogFormat: %v", c.LogFormat)
	log.Infof("Config.Strace: %t, Config.StraceSyscalls: %q, Config.StraceLogSize: %d", c.Strace, c.StraceSyscalls, c.StraceLogSize)
	if c.FSRoot != "" {
		log.Infof("Config.FSRoot: %s", c.FSRoot)
	} else {
		log.Infof("Config.FSRoot: (memory)")
	}
	log.Infof("Config.MaxFDs: %d", c.MaxFDs)
	log.Infof("Config.BufferCheck: %v", c.BufferCheck)
	log.Infof("Config.UnknownSyscall: %v", c.UnknownSyscall)
}

// StraceSyscallNames returns the syscalls named by StraceSyscalls.
func (c *Config) StraceSyscallNames() []string {
	if c.StraceSyscalls == "" {
		return nil
	}
	return strings.Split(c.StraceSyscalls, ",")
}

// BufferCheck is the type of syscall buffer validation.
type BufferCheck int

const (
	// BufferCheckFull validates every byte of a buffer.
	BufferCheckFull BufferCheck = iota

	// BufferCheckStart validates only the first byte of a buffer.
	BufferCheckStart
)

func bufferCheckPtr(v BufferCheck) *BufferCheck {
	return &v
}

// Set implements flag.Value.
func (b *BufferCheck) Set(v string) error {
	switch v {
	case "full":
		*b = BufferCheckFull
	case "start":
		*b = BufferCheckStart
	default:
		return fmt.Errorf("invalid buffer check %q", v)
	}
	return nil
}

// Get implements flag.Getter.
func (b *BufferCheck) Get() any {
	return *b
}

// String implements flag.Value.
func (b BufferCheck) String() string {
	switch b {
	case BufferCheckFull:
		return "full"
	case BufferCheckStart:
		return "start"
	}
	panic(fmt.Sprintf("Invalid buffer check %d", b))
}

// Kernel returns the kernel's value for b.
func (b BufferCheck) Kernel() kernel.BufferCheck {
	if b == BufferCheckStart {
		return kernel.BufferCheckStart
	}
	return kernel.BufferCheckFull
}

// UnknownSyscall is the action taken on unknown syscall numbers.
type UnknownSyscall int

const (
	// UnknownSyscallKill kills the task.
	UnknownSyscallKill UnknownSyscall = iota

	// UnknownSyscallENOSYS fails the syscall.
	UnknownSyscallENOSYS
)

func unknownSyscallPtr(v UnknownSyscall) *UnknownSyscall {
	return &v
}

// Set implements flag.Value.
func (u *UnknownSyscall) Set(v string) error {
	switch v {
	case "kill":
		*u = UnknownSyscallKill
	case "enosys":
		*u = UnknownSyscallENOSYS
	default:
		return fmt.Errorf("invalid unknown syscall action %q", v)
	}
	return nil
}

// Get implements flag.Getter.
func (u *UnknownSyscall) Get() any {
	return *u
}

// String implements flag.Value.
func (u UnknownSyscall) String() string {
	switch u {
	case UnknownSyscallKill:
		return "kill"
	case UnknownSyscallENOSYS:
		return "enosys"
	}
	panic(fmt.Sprintf("Invalid unknown syscall action %d", u))
}

// Kernel returns the kernel's value for u.
func (u UnknownSyscall) Kernel() kernel.UnknownSyscall {
	if u == UnknownSyscallENOSYS {
		return kernel.UnknownSyscallENOSYS
	}
	return kernel.UnknownSyscallKill
}

// LogFormat is the format of log lines.
type LogFormat int

const (
	// LogFormatText is the glog text format.
	LogFormatText LogFormat = iota

	// LogFormatJSON is one JSON object per line.
	LogFormatJSON
)

func logFormatPtr(v LogFormat) *LogFormat {
	return &v
}

// Set implements flag.Value.
func (l *LogFormat) Set(v string) error {
	switch v {
	case "text":
		*l = LogFormatText
	case "json":
		*l = LogFormatJSON
	default:
		return fmt.Errorf("invalid log format %q", v)
	}
	return nil
}

// Get implements flag.Getter.
func (l *LogFormat) Get() any {
	return *l
}

// String implements flag.Value.
func (l LogFormat) String() string {
	switch l {
	case LogFormatText:
		return "text"
	case LogFormatJSON:
		return "json"
	}
	panic(fmt.Sprintf("Invalid log format %d", l))
}
