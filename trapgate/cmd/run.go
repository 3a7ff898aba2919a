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

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"gvisor.dev/trapgate/pkg/cleanup"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/metric"
	"gvisor.dev/trapgate/pkg/sentry/arch"
	"gvisor.dev/trapgate/pkg/sentry/devices/console"
	"gvisor.dev/trapgate/pkg/sentry/fsimpl/hostfs"
	"gvisor.dev/trapgate/pkg/sentry/fsimpl/memfs"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
	"gvisor.dev/trapgate/pkg/sentry/loader"
	"gvisor.dev/trapgate/pkg/sentry/strace"
	"gvisor.dev/trapgate/pkg/sentry/syscalls/trap"
	"gvisor.dev/trapgate/pkg/sentry/vfs"
	"gvisor.dev/trapgate/pkg/userprog"
	"gvisor.dev/trapgate/trapgate/config"
)

// metricPrefix prefixes the names of exported metrics.
const metricPrefix = "trapgate"

// Run implements subcommands.Command for the "run" command.
type Run struct {
	// raw puts a terminal on stdin into raw mode.
	raw bool

	// input, if set, replaces stdin as the console input.
	input string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run built-in programs in a new kernel"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <cmdline>... - boot a kernel and run each command line as a root task.

Command lines run concurrently and share the console and the file system. The
exit code is the exit status of the first command line.

Example:
  trapgate run "mkfile greeting hello" "cat greeting"
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.raw, "raw", false, "put the terminal on stdin into raw mode.")
	f.StringVar(&r.input, "input", "", "console input to use instead of stdin.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	exitCode := args[1].(*int)

	var cons console.Device
	var buf *console.Buffer
	if r.input != "" {
		buf = console.NewBuffer([]byte(r.input), true)
		cons = buf
	} else {
		host, err := console.NewHost(os.Stdin, os.Stdout, r.raw)
		if err != nil {
			return Errorf("setting up the console: %v", err)
		}
		defer host.Close()
		cons = host
	}

	k, release, err := newKernel(conf, cons, powerOff{input: buf})
	if err != nil {
		return Errorf("booting the kernel: %v", err)
	}
	defer release()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, unix.SIGTERM)
	defer stop()
	results, err := runAll(ctx, k, f.Args())
	if buf != nil {
		os.Stdout.WriteString(buf.Output())
	}
	if err != nil {
		return Errorf("%v", err)
	}
	for _, res := range results {
		if res.halted {
			fmt.Fprintf(os.Stderr, "%q: halted\n", res.cmdline)
		} else {
			fmt.Fprintf(os.Stderr, "%q: exit status %d\n", res.cmdline, res.status)
		}
	}

	if conf.MetricsFile != "" {
		if err := writeMetrics(conf.MetricsFile); err != nil {
			return Errorf("writing metrics: %v", err)
		}
	}

	if !results[0].halted {
		*exitCode = int(uint8(results[0].status))
	}
	return subcommands.ExitSuccess
}

// powerOff implements kernel.Shutdown.
type powerOff struct {
	// input is the console buffer, or nil if the console is the host's.
	input *console.Buffer
}

// PowerOff implements kernel.Shutdown.PowerOff. It ends console input so
// that no task stays blocked reading it.
func (p powerOff) PowerOff() {
	if p.input != nil {
		p.input.CloseInput()
	}
	log.Debugf("Console input closed")
}

// newKernel boots a kernel running the built-in programs, as configured by
// conf. The returned function releases the kernel's host resources.
func newKernel(conf *config.Config, cons console.Device, shutdown kernel.Shutdown) (*kernel.Kernel, func(), error) {
	var cu cleanup.Cleanup
	defer cu.Clean()

	var fs vfs.FileSystem
	if conf.FSRoot != "" {
		hfs, err := hostfs.New(conf.FSRoot)
		if err != nil {
			return nil, nil, err
		}
		cu.Add(func() {
			if err := hfs.Release(); err != nil {
				log.Warningf("Releasing %q: %v", conf.FSRoot, err)
			}
		})
		fs = hfs
	} else {
		fs = memfs.New()
	}

	l, err := loader.New(userprog.Programs())
	if err != nil {
		return nil, nil, err
	}

	var stracer kernel.Stracer
	if conf.Strace {
		tr, err := strace.New(arch.I386, strace.Options{
			Syscalls:       conf.StraceSyscallNames(),
			LogMaximumSize: uint32(conf.StraceLogSize),
		})
		if err != nil {
			return nil, nil, err
		}
		stracer = tr
	}

	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{
		Table:          trap.I386,
		FS:             vfs.NewSerializer(fs),
		Console:        cons,
		Loader:         l,
		Shutdown:       shutdown,
		MaxFDs:         conf.MaxFDs,
		BufferCheck:    conf.BufferCheck.Kernel(),
		UnknownSyscall: conf.UnknownSyscall.Kernel(),
		Stracer:        stracer,
	}); err != nil {
		return nil, nil, err
	}
	return k, cu.Release(), nil
}

// result is the outcome of a root task.
type result struct {
	cmdline string
	status  int32
	halted  bool
}

// runAll runs each command line as a concurrent root task and waits for all
// of them.
func runAll(ctx context.Context, k *kernel.Kernel, cmdlines []string) ([]result, error) {
	results := make([]result, len(cmdlines))
	g, ctx := errgroup.WithContext(ctx)
	for i, cmdline := range cmdlines {
		i, cmdline := i, cmdline
		g.Go(func() error {
			results[i].cmdline = cmdline
			status, err := k.RunInit(ctx, cmdline)
			switch {
			case errors.Is(err, kernel.ErrHalted):
				results[i].halted = true
			case err != nil:
				return fmt.Errorf("running %q: %w", cmdline, err)
			default:
				results[i].status = status
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeMetrics(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := metric.WritePrometheus(f, metricPrefix); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
